package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiesman99/pano/internal/engine"
	"github.com/kiesman99/pano/internal/engine/enginetest"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.cfg")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "pano 0.0.1")
}

func TestConfigCheck(t *testing.T) {
	out, err := execute(t, "-q", "config", "check", writeConfig(t, "CYLINDER 1\nESTIMATE_CAMERA 0\nORDERED_INPUT 1\n"))
	require.NoError(t, err)
	assert.Contains(t, out, "ok (mode cylinder)")

	_, err = execute(t, "-q", "config", "check", writeConfig(t, "CYLINDER 1\nTRANS 1\n"))
	assert.Error(t, err)
}

func TestConfigDumpAppliesEnv(t *testing.T) {
	t.Setenv("PANO_CROP", "0")
	out, err := execute(t, "-q", "config", "dump", writeConfig(t, "CROP 1\nFOCAL_LENGTH 28\n"))
	require.NoError(t, err)
	assert.Contains(t, out, "CROP: 0")
	assert.Contains(t, out, "FOCAL_LENGTH: 28")
}

func TestStitchCommand(t *testing.T) {
	_, paths := enginetest.WritePair(t)
	cfg := writeConfig(t, "ESTIMATE_CAMERA 1\nCROP 1\nSTRAIGHTEN 0\n")
	output := filepath.Join(t.TempDir(), "pano.png")

	out, err := execute(t, "-q", "--config", cfg, "--output", output, paths[0], paths[1])
	require.NoError(t, err)
	assert.Contains(t, out, "Stitched 2 images")
	assert.Contains(t, out, "Wrote "+output)

	size, err := engine.ReadSize(output)
	require.NoError(t, err)
	assert.Positive(t, size.X)
	assert.Positive(t, size.Y)
}

func TestStitchCommandErrors(t *testing.T) {
	cfg := writeConfig(t, "CROP 1\n")
	dir := t.TempDir()

	_, err := execute(t, "-q", "--config", cfg, "--output=", filepath.Join(dir, "a.png"))
	assert.ErrorContains(t, err, "at least two images")

	_, err = execute(t, "-q", "--config", cfg, "--output=", filepath.Join(dir, "a.png"), filepath.Join(dir, "b.png"))
	assert.ErrorContains(t, err, "engine")

	_, err = execute(t, "-q", "--config", filepath.Join(dir, "missing.cfg"), "--output=", "a.png", "b.png")
	assert.ErrorContains(t, err, "load configuration")
}
