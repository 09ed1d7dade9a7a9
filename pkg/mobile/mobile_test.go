package mobile

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiesman99/pano/internal/engine/enginetest"
)

func initTestConfig(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.cfg")
	require.NoError(t, os.WriteFile(path, []byte("ESTIMATE_CAMERA 1\nCROP 1\nSTRAIGHTEN 0\n"), 0o644))
	require.True(t, InitConfig(path))
}

func TestVersionAndGreetings(t *testing.T) {
	assert.Equal(t, "0.0.1-mobile", Version())
	g := Greetings("tester")
	assert.Contains(t, g, "tester")
	assert.Contains(t, g, runtime.GOOS+"/"+runtime.GOARCH)
}

func TestInitConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.cfg")
	require.NoError(t, os.WriteFile(path, []byte("CYLINDER 1\nTRANS 1\n"), 0o644))
	assert.False(t, InitConfig(path))
}

func TestStitchImagesFromPaths(t *testing.T) {
	initTestConfig(t)
	_, paths := enginetest.WritePair(t)

	res := StitchImagesFromPaths(paths[0], paths[1], "")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 3, res.Channels)

	data, err := base64.StdEncoding.DecodeString(res.Base64Data)
	require.NoError(t, err)
	assert.Len(t, data, res.Width*res.Height*res.Channels)
}

func TestStitchImageList(t *testing.T) {
	initTestConfig(t)
	_, paths := enginetest.WritePair(t)

	res := StitchImageList(paths[0]+",\n"+paths[1]+",", ",", "")
	require.True(t, res.Success, res.Error)
	assert.Positive(t, res.Width)

	res = StitchImageList(paths[0], "", "")
	assert.False(t, res.Success)
	assert.Empty(t, res.Base64Data)
	assert.NotEmpty(t, res.Error)
}

func TestStitchImagesFromBase64(t *testing.T) {
	initTestConfig(t)
	_, paths := enginetest.WritePair(t)

	var encoded []string
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		require.NoError(t, err)
		encoded = append(encoded, base64.StdEncoding.EncodeToString(raw))
	}
	out := filepath.Join(t.TempDir(), "pano.png")

	res := StitchImagesFromBase64(encoded[0], encoded[1], out)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, out, res.OutputPath)
	assert.FileExists(t, out)
}

func TestStitchImagesFromBase64InvalidInput(t *testing.T) {
	res := StitchImagesFromBase64("not base64!", "", "")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "decode image 1")
}

func TestValidateEnvironment(t *testing.T) {
	initTestConfig(t)
	res := ValidateEnvironment()
	assert.True(t, res.Success, res.Error)
}

func TestGetTestImagePaths(t *testing.T) {
	_, paths := enginetest.WritePair(t)
	missing := filepath.Join(t.TempDir(), "missing.png")
	t.Setenv(TestImagesEnv, strings.Join([]string{paths[0], missing, paths[1]}, string(os.PathListSeparator)))

	assert.Equal(t, paths[0]+"\n"+paths[1], GetTestImagePaths())

	t.Setenv(TestImagesEnv, "")
	assert.Empty(t, GetTestImagePaths())
}
