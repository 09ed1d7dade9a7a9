package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface is implemented by the service.
type ServerInterface interface {
	// GET /health
	GetHealth(w http.ResponseWriter, r *http.Request)
	// GET /version
	GetVersion(w http.ResponseWriter, r *http.Request)
	// GET /openapi.json
	GetOpenAPI(w http.ResponseWriter, r *http.Request)
	// POST /stitch
	CreateStitch(w http.ResponseWriter, r *http.Request, params CreateStitchParams)
	// POST /config
	ReloadConfig(w http.ResponseWriter, r *http.Request)
	// GET /jobs
	ListJobs(w http.ResponseWriter, r *http.Request, params ListJobsParams)
	// GET /jobs/{id}
	GetJob(w http.ResponseWriter, r *http.Request, id string)
}

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseRouter chi.Router
	// ErrorHandlerFunc reports parameter binding failures. It defaults to a
	// plain 400 response.
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// InvalidParamError is passed to ErrorHandlerFunc when a parameter cannot
// be bound.
type InvalidParamError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %v", e.ParamName, e.Err)
}

func (e *InvalidParamError) Unwrap() error {
	return e.Err
}

// Handler routes the API onto a new chi router.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{})
}

// HandlerWithOptions routes the API onto options.BaseRouter.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	onError := options.ErrorHandlerFunc
	if onError == nil {
		onError = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}

	r.Get("/health", si.GetHealth)
	r.Get("/version", si.GetVersion)
	r.Get("/openapi.json", si.GetOpenAPI)
	r.Post("/config", si.ReloadConfig)

	r.Post("/stitch", func(w http.ResponseWriter, r *http.Request) {
		var params CreateStitchParams
		if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &params.Format); err != nil {
			onError(w, r, &InvalidParamError{ParamName: "format", Err: err})
			return
		}
		si.CreateStitch(w, r, params)
	})

	r.Get("/jobs", func(w http.ResponseWriter, r *http.Request) {
		var params ListJobsParams
		if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &params.Limit); err != nil {
			onError(w, r, &InvalidParamError{ParamName: "limit", Err: err})
			return
		}
		si.ListJobs(w, r, params)
	})

	r.Get("/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		var id string
		if err := runtime.BindStyledParameterWithLocation("simple", false, "id", runtime.ParamLocationPath, chi.URLParam(r, "id"), &id); err != nil {
			onError(w, r, &InvalidParamError{ParamName: "id", Err: err})
			return
		}
		si.GetJob(w, r, id)
	})

	return r
}
