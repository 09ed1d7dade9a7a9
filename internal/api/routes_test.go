package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder implements ServerInterface and remembers the last call.
type recorder struct {
	called string
	stitch CreateStitchParams
	jobs   ListJobsParams
	id     string
}

func (rc *recorder) GetHealth(w http.ResponseWriter, r *http.Request)  { rc.called = "GetHealth" }
func (rc *recorder) GetVersion(w http.ResponseWriter, r *http.Request) { rc.called = "GetVersion" }
func (rc *recorder) GetOpenAPI(w http.ResponseWriter, r *http.Request) { rc.called = "GetOpenAPI" }
func (rc *recorder) ReloadConfig(w http.ResponseWriter, r *http.Request) {
	rc.called = "ReloadConfig"
}

func (rc *recorder) CreateStitch(w http.ResponseWriter, r *http.Request, params CreateStitchParams) {
	rc.called, rc.stitch = "CreateStitch", params
}

func (rc *recorder) ListJobs(w http.ResponseWriter, r *http.Request, params ListJobsParams) {
	rc.called, rc.jobs = "ListJobs", params
}

func (rc *recorder) GetJob(w http.ResponseWriter, r *http.Request, id string) {
	rc.called, rc.id = "GetJob", id
}

func serve(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader("{}")))
	return rec
}

func TestHandlerRoutes(t *testing.T) {
	tests := []struct {
		method, target, want string
	}{
		{http.MethodGet, "/health", "GetHealth"},
		{http.MethodGet, "/version", "GetVersion"},
		{http.MethodGet, "/openapi.json", "GetOpenAPI"},
		{http.MethodPost, "/config", "ReloadConfig"},
		{http.MethodPost, "/stitch", "CreateStitch"},
		{http.MethodGet, "/jobs", "ListJobs"},
		{http.MethodGet, "/jobs/abc", "GetJob"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			rc := &recorder{}
			serve(t, Handler(rc), tt.method, tt.target)
			assert.Equal(t, tt.want, rc.called)
		})
	}
}

func TestHandlerBindsParameters(t *testing.T) {
	rc := &recorder{}
	h := Handler(rc)

	serve(t, h, http.MethodPost, "/stitch?format=jpeg")
	require.NotNil(t, rc.stitch.Format)
	assert.Equal(t, Jpeg, *rc.stitch.Format)

	serve(t, h, http.MethodPost, "/stitch")
	assert.Nil(t, rc.stitch.Format)

	serve(t, h, http.MethodGet, "/jobs?limit=7")
	require.NotNil(t, rc.jobs.Limit)
	assert.Equal(t, 7, *rc.jobs.Limit)

	serve(t, h, http.MethodGet, "/jobs/6f1c2a9e-0b7d-4c1e-9a3b-2d5e8f7a1c40")
	assert.Equal(t, "6f1c2a9e-0b7d-4c1e-9a3b-2d5e8f7a1c40", rc.id)
}

func TestHandlerReportsBindErrors(t *testing.T) {
	rc := &recorder{}
	var got error
	h := HandlerWithOptions(rc, ChiServerOptions{
		ErrorHandlerFunc: func(w http.ResponseWriter, r *http.Request, err error) {
			got = err
			w.WriteHeader(http.StatusTeapot)
		},
	})

	rec := serve(t, h, http.MethodGet, "/jobs?limit=many")
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Empty(t, rc.called)

	var pe *InvalidParamError
	require.True(t, errors.As(got, &pe))
	assert.Equal(t, "limit", pe.ParamName)

	rec = serve(t, Handler(rc), http.MethodGet, "/jobs?limit=many")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
