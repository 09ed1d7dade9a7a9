package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/kiesman99/pano/internal/api"
	"github.com/kiesman99/pano/internal/bridge"
	"github.com/kiesman99/pano/internal/logging"
	"github.com/kiesman99/pano/internal/stitch"
	"github.com/kiesman99/pano/internal/store"
	"github.com/kiesman99/pano/internal/version"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Server implements api.ServerInterface
type Server struct {
	startTime time.Time
	bridge    *bridge.Bridge
	jobs      *store.Store
	outputDir string
}

// Option customizes a Server.
type Option func(*Server)

// WithOutputDir lets stitch requests write their panorama below dir. Without
// it, requests carrying output_path are rejected.
func WithOutputDir(dir string) Option {
	return func(s *Server) { s.outputDir = dir }
}

// NewServer creates a server that stitches with b and records jobs in jobs.
// jobs may be nil, in which case the job endpoints report 503.
func NewServer(b *bridge.Bridge, jobs *store.Store, opts ...Option) *Server {
	s := &Server{
		startTime: time.Now(),
		bridge:    b,
		jobs:      jobs,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetHealth implements the health check endpoint
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	uptime := int(time.Since(s.startTime).Seconds())
	v := s.bridge.Version()

	writeJSON(w, http.StatusOK, api.HealthResponse{
		Status:    api.Healthy,
		Timestamp: time.Now(),
		Uptime:    &uptime,
		Version:   &v,
	})
}

// GetVersion reports build information
func (s *Server) GetVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.VersionResponse{
		Version:   version.Version,
		GitSha:    version.GitSHA,
		BuildTime: version.BuildTime,
	})
}

// GetOpenAPI serves the API description
func (s *Server) GetOpenAPI(w http.ResponseWriter, r *http.Request) {
	doc, err := api.SpecJSON()
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, api.UNKNOWNERROR, err.Error(), nil, nil)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// CreateStitch implements the main stitching endpoint
func (s *Server) CreateStitch(w http.ResponseWriter, r *http.Request, params api.CreateStitchParams) {
	requestID := requestID(r)

	var req api.StitchRequest
	if !s.decodeBody(w, r, "StitchRequest", &req, requestID) {
		return
	}

	format := api.Png
	if params.Format != nil {
		format = *params.Format
	}
	if !format.Valid() {
		s.writeValidationErrorResponse(w, fmt.Sprintf("unsupported format %q", format), "format", &requestID)
		return
	}

	out := ""
	if req.OutputPath != nil {
		var err error
		if out, err = s.resolveOutput(*req.OutputPath); err != nil {
			s.writeValidationErrorResponse(w, err.Error(), "output_path", &requestID)
			return
		}
	}

	start := time.Now()
	res := s.bridge.StitchContext(r.Context(), req.Images, out)
	defer res.Release()
	s.recordJob(r, req.Images, res, time.Since(start))

	if !res.Success {
		s.handleStitchingError(w, res, &requestID)
		return
	}

	body, err := encodeResult(res, format)
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, api.UNKNOWNERROR,
			fmt.Sprintf("encode panorama: %v", err), &requestID, nil)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("X-Request-ID", requestID)
	w.Header().Set("X-Pano-Width", strconv.Itoa(res.Width))
	w.Header().Set("X-Pano-Height", strconv.Itoa(res.Height))
	w.Header().Set("X-Pano-Channels", strconv.Itoa(res.Channels))
	if res.Error != "" {
		w.Header().Set("X-Pano-Warning", res.Error)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logging.Logger().Warn("error writing response", "request_id", requestID, "error", err)
	}
}

// ReloadConfig loads and commits a configuration file
func (s *Server) ReloadConfig(w http.ResponseWriter, r *http.Request) {
	requestID := requestID(r)

	var req api.ConfigRequest
	if !s.decodeBody(w, r, "ConfigRequest", &req, requestID) {
		return
	}

	cfg, err := s.bridge.LoadConfig(req.Path)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, api.ConfigResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}
	mode := cfg.Mode.String()
	writeJSON(w, http.StatusOK, api.ConfigResponse{
		Success: true,
		Message: fmt.Sprintf("configuration loaded from %s", cfg.Source),
		Mode:    &mode,
	})
}

// ListJobs returns recent stitch jobs
func (s *Server) ListJobs(w http.ResponseWriter, r *http.Request, params api.ListJobsParams) {
	requestID := requestID(r)
	if s.jobs == nil {
		s.writeErrorResponse(w, http.StatusServiceUnavailable, api.UNAVAILABLE, "job history is disabled", &requestID, nil)
		return
	}

	limit := 0
	if params.Limit != nil {
		limit = *params.Limit
	}
	if params.Limit != nil && (limit < 1 || limit > 500) {
		s.writeValidationErrorResponse(w, "limit must be between 1 and 500", "limit", &requestID)
		return
	}

	jobs, err := s.jobs.List(r.Context(), limit)
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, api.UNKNOWNERROR, err.Error(), &requestID, nil)
		return
	}
	resp := api.JobsResponse{Jobs: make([]api.Job, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, toAPIJob(j))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetJob returns one stitch job
func (s *Server) GetJob(w http.ResponseWriter, r *http.Request, id string) {
	requestID := requestID(r)
	if s.jobs == nil {
		s.writeErrorResponse(w, http.StatusServiceUnavailable, api.UNAVAILABLE, "job history is disabled", &requestID, nil)
		return
	}

	jobID, err := uuid.Parse(id)
	if err != nil {
		s.writeValidationErrorResponse(w, fmt.Sprintf("invalid job id %q", id), "id", &requestID)
		return
	}
	job, err := s.jobs.Get(r.Context(), jobID)
	if errors.Is(err, store.ErrNotFound) {
		s.writeErrorResponse(w, http.StatusNotFound, api.NOTFOUND, err.Error(), &requestID, nil)
		return
	}
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, api.UNKNOWNERROR, err.Error(), &requestID, nil)
		return
	}
	writeJSON(w, http.StatusOK, toAPIJob(job))
}

// BindError reports a request parameter that could not be bound.
func (s *Server) BindError(w http.ResponseWriter, r *http.Request, err error) {
	field := "request"
	var pe *api.InvalidParamError
	if errors.As(err, &pe) {
		field = pe.ParamName
	}
	id := requestID(r)
	s.writeValidationErrorResponse(w, err.Error(), field, &id)
}

// resolveOutput maps a requested output path onto the output directory.
// Absolute paths and paths leaving the directory are rejected.
func (s *Server) resolveOutput(p string) (string, error) {
	if s.outputDir == "" {
		return "", errors.New("output_path is not accepted: the server has no output directory")
	}
	if !filepath.IsLocal(p) {
		return "", fmt.Errorf("output_path %q must be a relative path inside the output directory", p)
	}
	return filepath.Join(s.outputDir, p), nil
}

// decodeBody reads a JSON body, validates it against schema and decodes it
// into dst. It writes the error response and returns false on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, schema string, dst any, requestID string) bool {
	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mt != "application/json" {
		s.writeErrorResponse(w, http.StatusUnsupportedMediaType, api.UNSUPPORTEDMEDIATYPE,
			"Content-Type must be application/json", &requestID, nil)
		return false
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, api.INVALIDJSON, "Could not read request body", &requestID, nil)
		return false
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, api.INVALIDJSON, "Invalid JSON in request body", &requestID, nil)
		return false
	}
	if err := api.ValidateBody(schema, generic); err != nil {
		s.writeValidationErrorResponse(w, err.Error(), "body", &requestID)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.writeValidationErrorResponse(w, err.Error(), "body", &requestID)
		return false
	}
	return true
}

func (s *Server) recordJob(r *http.Request, images []string, res *bridge.Result, elapsed time.Duration) {
	if s.jobs == nil {
		return
	}
	job := store.Job{
		Images:   images,
		Mode:     res.Mode,
		Width:    res.Width,
		Height:   res.Height,
		Success:  res.Success,
		Error:    res.Error,
		Duration: elapsed,
	}
	if _, err := s.jobs.Record(r.Context(), job); err != nil {
		logging.Logger().Warn("failed to record job", "error", err)
	}
}

// handleStitchingError maps a failed result onto an HTTP error
func (s *Server) handleStitchingError(w http.ResponseWriter, res *bridge.Result, requestID *string) {
	status, code := http.StatusInternalServerError, api.UNKNOWNERROR
	switch res.Kind {
	case stitch.KindInput:
		status, code = http.StatusBadRequest, api.INPUTERROR
	case stitch.KindConfiguration:
		status, code = http.StatusInternalServerError, api.CONFIGURATIONERROR
	case stitch.KindEngine:
		status, code = http.StatusUnprocessableEntity, api.ENGINEERROR
	}
	s.writeErrorResponse(w, status, code, res.Error, requestID, map[string]any{
		"kind": res.Kind.String(),
	})
}

// writeErrorResponse writes a standard error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string, requestID *string, details map[string]any) {
	response := api.ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestId: requestID,
	}
	if details != nil {
		response.Details = &details
	}
	writeJSON(w, statusCode, response)
}

// writeValidationErrorResponse writes a validation error response
func (s *Server) writeValidationErrorResponse(w http.ResponseWriter, message, field string, requestID *string) {
	s.writeErrorResponse(w, http.StatusBadRequest, api.VALIDATIONERROR, message, requestID, map[string]any{
		"field": field,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Logger().Warn("error encoding response", "error", err)
	}
}

// requestID returns the ID set by middleware.RequestID, or a new one.
func requestID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}

func toAPIJob(j store.Job) api.Job {
	out := api.Job{
		Id:         j.ID.String(),
		Images:     j.Images,
		Mode:       j.Mode,
		Width:      j.Width,
		Height:     j.Height,
		Success:    j.Success,
		DurationMs: j.Duration.Milliseconds(),
		CreatedAt:  j.CreatedAt,
	}
	if j.Error != "" {
		e := j.Error
		out.Error = &e
	}
	return out
}

// encodeResult renders the RGB buffer in the requested format.
func encodeResult(res *bridge.Result, format api.StitchFormat) ([]byte, error) {
	if format == api.Raw {
		return res.Data, nil
	}

	img := image.NewNRGBA(image.Rect(0, 0, res.Width, res.Height))
	for i := range res.Width * res.Height {
		copy(img.Pix[i*4:i*4+3], res.Data[i*3:i*3+3])
		img.Pix[i*4+3] = 0xff
	}

	var buf bytes.Buffer
	var err error
	if format == api.Jpeg {
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	} else {
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
