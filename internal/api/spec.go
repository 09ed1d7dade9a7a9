// Package api defines the HTTP API of the stitching service: the OpenAPI
// document, the request and response types and the routing onto a
// ServerInterface.
package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var specYAML []byte

var (
	specOnce sync.Once
	spec     *openapi3.T
	specErr  error
)

// Spec returns the parsed and validated OpenAPI document.
func Spec() (*openapi3.T, error) {
	specOnce.Do(func() {
		loader := &openapi3.Loader{Context: context.Background()}
		doc, err := loader.LoadFromData(specYAML)
		if err != nil {
			specErr = fmt.Errorf("api: load document: %w", err)
			return
		}
		if err := doc.Validate(loader.Context, openapi3.DisableExamplesValidation()); err != nil {
			specErr = fmt.Errorf("api: validate document: %w", err)
			return
		}
		spec = doc
	})
	return spec, specErr
}

// SpecJSON returns the OpenAPI document encoded as JSON.
func SpecJSON() ([]byte, error) {
	doc, err := Spec()
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// ValidateBody checks a decoded JSON body against the named component
// schema.
func ValidateBody(schema string, body any) error {
	doc, err := Spec()
	if err != nil {
		return err
	}
	ref, ok := doc.Components.Schemas[schema]
	if !ok || ref.Value == nil {
		return fmt.Errorf("api: unknown schema %q", schema)
	}
	return ref.Value.VisitJSON(body)
}
