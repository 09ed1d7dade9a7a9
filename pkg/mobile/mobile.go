// Package mobile is the gomobile-bindable face of the stitcher. Every
// exported identifier uses only types gomobile can bind: strings, ints,
// bools and pointers to structs made of them.
package mobile

import (
	"encoding/base64"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/kiesman99/pano/internal/bridge"
	"github.com/kiesman99/pano/internal/config"
	"github.com/kiesman99/pano/internal/version"
)

// TestImagesEnv names the variable GetTestImagePaths reads.
const TestImagesEnv = "PANO_TEST_IMAGES"

// StitchResult is the outcome of a mobile stitch. Base64Data holds the
// interleaved RGB pixels, Width*Height*Channels bytes before encoding.
type StitchResult struct {
	Width      int
	Height     int
	Channels   int
	Success    bool
	Error      string
	Base64Data string
	OutputPath string
}

// Version returns the version of the mobile library.
func Version() string {
	return version.Mobile()
}

// Greetings returns a greeting naming the platform, used to check a binding.
func Greetings(name string) string {
	return fmt.Sprintf("Hello from pano mobile, %s! Platform: %s/%s", name, runtime.GOOS, runtime.GOARCH)
}

// InitConfig loads and commits the configuration at path. An empty path
// loads config.cfg from the working directory.
func InitConfig(path string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return bridge.Default.InitConfig(path)
}

// StitchImagesFromPaths stitches two images. outputPath may be empty.
func StitchImagesFromPaths(imagePath1, imagePath2, outputPath string) *StitchResult {
	return stitchPaths([]string{imagePath1, imagePath2}, outputPath)
}

// StitchImageList stitches the images in paths, separated by sep (a newline
// when sep is empty). Empty entries are skipped.
func StitchImageList(paths, sep, outputPath string) *StitchResult {
	if sep == "" {
		sep = "\n"
	}
	var list []string
	for _, p := range strings.Split(paths, sep) {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	return stitchPaths(list, outputPath)
}

// StitchImagesFromBase64 decodes two base64-encoded image files, stitches
// them and removes the temporary copies.
func StitchImagesFromBase64(image1, image2, outputPath string) (res *StitchResult) {
	defer recoverInto(&res)

	dir, err := os.MkdirTemp("", "pano-mobile-")
	if err != nil {
		return failed(fmt.Sprintf("create temp dir: %v", err))
	}
	defer func() { _ = os.RemoveAll(dir) }()

	var paths []string
	for i, enc := range []string{image1, image2} {
		data, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return failed(fmt.Sprintf("decode image %d: %v", i+1, err))
		}
		f, err := os.CreateTemp(dir, "input-*.img")
		if err != nil {
			return failed(fmt.Sprintf("create temp file: %v", err))
		}
		_, err = f.Write(data)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return failed(fmt.Sprintf("write temp file: %v", err))
		}
		paths = append(paths, f.Name())
	}
	return stitchPaths(paths, outputPath)
}

// ValidateEnvironment reports whether a configuration is available and the
// temporary directory is writable. Success is false when either check fails
// and Error lists the problems.
func ValidateEnvironment() (res *StitchResult) {
	defer recoverInto(&res)

	var problems []string
	if bridge.Default.Config() == nil {
		if _, err := os.Stat(config.DefaultPath); err != nil {
			problems = append(problems, fmt.Sprintf("no configuration loaded and %s not found", config.DefaultPath))
		}
	}
	f, err := os.CreateTemp("", "pano-check-*")
	if err != nil {
		problems = append(problems, fmt.Sprintf("temp dir not writable: %v", err))
	} else {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}

	return &StitchResult{
		Channels: 3,
		Success:  len(problems) == 0,
		Error:    strings.Join(problems, "; "),
	}
}

// GetTestImagePaths returns the newline-separated sample images listed in
// PANO_TEST_IMAGES that exist, or an empty string.
func GetTestImagePaths() string {
	var found []string
	for _, p := range strings.Split(os.Getenv(TestImagesEnv), string(os.PathListSeparator)) {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			found = append(found, p)
		}
	}
	return strings.Join(found, "\n")
}

func stitchPaths(paths []string, outputPath string) (res *StitchResult) {
	defer recoverInto(&res)

	_ = bridge.WithResult(bridge.Default, paths, outputPath, func(r *bridge.Result) error {
		res = &StitchResult{
			Width:      r.Width,
			Height:     r.Height,
			Channels:   r.Channels,
			Success:    r.Success,
			Error:      r.Error,
			OutputPath: r.OutputPath,
		}
		if r.Success {
			res.Base64Data = base64.StdEncoding.EncodeToString(r.Data)
		}
		return nil
	})
	return res
}

func failed(msg string) *StitchResult {
	return &StitchResult{Channels: 3, Error: msg}
}

func recoverInto(res **StitchResult) {
	if r := recover(); r != nil {
		*res = failed(fmt.Sprintf("unknown error occurred during stitching: %v", r))
	}
}
