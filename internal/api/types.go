package api

import "time"

// HealthResponseStatus is the reported service state.
type HealthResponseStatus string

// Healthy is the only state a running server reports.
const Healthy HealthResponseStatus = "healthy"

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    HealthResponseStatus `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
	Uptime    *int                 `json:"uptime,omitempty"`
	Version   *string              `json:"version,omitempty"`
}

// VersionResponse is returned by GET /version.
type VersionResponse struct {
	Version   string `json:"version"`
	GitSha    string `json:"git_sha"`
	BuildTime string `json:"build_time"`
}

// StitchFormat selects the encoding of a stitched panorama.
type StitchFormat string

// Supported panorama encodings.
const (
	Png  StitchFormat = "png"
	Jpeg StitchFormat = "jpeg"
	Raw  StitchFormat = "raw"
)

// Valid reports whether f is a known format.
func (f StitchFormat) Valid() bool {
	switch f {
	case Png, Jpeg, Raw:
		return true
	}
	return false
}

// ContentType is the response media type for f.
func (f StitchFormat) ContentType() string {
	switch f {
	case Jpeg:
		return "image/jpeg"
	case Raw:
		return "application/octet-stream"
	default:
		return "image/png"
	}
}

// CreateStitchParams are the query parameters of POST /stitch.
type CreateStitchParams struct {
	Format *StitchFormat `form:"format,omitempty" json:"format,omitempty"`
}

// StitchRequest is the body of POST /stitch.
type StitchRequest struct {
	Images     []string `json:"images"`
	OutputPath *string  `json:"output_path,omitempty"`
}

// ConfigRequest is the body of POST /config. An empty path reloads the
// default configuration file.
type ConfigRequest struct {
	Path string `json:"path"`
}

// ConfigResponse reports the outcome of a configuration reload.
type ConfigResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Mode    *string `json:"mode,omitempty"`
}

// ListJobsParams are the query parameters of GET /jobs.
type ListJobsParams struct {
	Limit *int `form:"limit,omitempty" json:"limit,omitempty"`
}

// Job is a recorded stitch.
type Job struct {
	Id         string    `json:"id"`
	Images     []string  `json:"images"`
	Mode       string    `json:"mode"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Success    bool      `json:"success"`
	Error      *string   `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// JobsResponse is returned by GET /jobs.
type JobsResponse struct {
	Jobs []Job `json:"jobs"`
}

// Error codes returned in ErrorResponse.Error.
const (
	INPUTERROR         = "INPUT_ERROR"
	CONFIGURATIONERROR = "CONFIGURATION_ERROR"
	ENGINEERROR        = "ENGINE_ERROR"
	UNKNOWNERROR       = "UNKNOWN_ERROR"
	INVALIDJSON        = "INVALID_JSON"
	VALIDATIONERROR    = "VALIDATION_ERROR"
	NOTFOUND           = "NOT_FOUND"
	UNAVAILABLE        = "UNAVAILABLE"

	UNSUPPORTEDMEDIATYPE = "UNSUPPORTED_MEDIA_TYPE"
)

// ErrorResponse is the body of every JSON error.
type ErrorResponse struct {
	Error     string          `json:"error"`
	Message   string          `json:"message"`
	RequestId *string         `json:"request_id,omitempty"`
	Details   *map[string]any `json:"details,omitempty"`
}
