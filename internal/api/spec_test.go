package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecLoads(t *testing.T) {
	doc, err := Spec()
	require.NoError(t, err)
	for _, path := range []string{"/health", "/version", "/stitch", "/config", "/jobs", "/jobs/{id}"} {
		assert.NotNil(t, doc.Paths.Find(path), path)
	}

	raw, err := SpecJSON()
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "components")
}

func TestValidateBody(t *testing.T) {
	tests := []struct {
		name    string
		schema  string
		body    string
		wantErr bool
	}{
		{"two images", "StitchRequest", `{"images":["a.png","b.png"]}`, false},
		{"with output", "StitchRequest", `{"images":["a","b","c"],"output_path":"out.png"}`, false},
		{"one image", "StitchRequest", `{"images":["a.png"]}`, true},
		{"missing images", "StitchRequest", `{}`, true},
		{"wrong item type", "StitchRequest", `{"images":[1,2]}`, true},
		{"config path", "ConfigRequest", `{"path":"config.cfg"}`, false},
		{"empty config", "ConfigRequest", `{}`, false},
		{"config path type", "ConfigRequest", `{"path":false}`, true},
		{"unknown schema", "Nope", `{}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body any
			require.NoError(t, json.Unmarshal([]byte(tt.body), &body))
			err := ValidateBody(tt.schema, body)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStitchFormat(t *testing.T) {
	assert.True(t, Png.Valid())
	assert.True(t, Raw.Valid())
	assert.False(t, StitchFormat("gif").Valid())
	assert.Equal(t, "image/jpeg", Jpeg.ContentType())
	assert.Equal(t, "application/octet-stream", Raw.ContentType())
	assert.Equal(t, "image/png", StitchFormat("").ContentType())
}
