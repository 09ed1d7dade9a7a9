// Command libpano builds the stitcher as a C library:
//
//	go build -buildmode=c-shared -o libpano.so ./cmd/libpano
//
// The generated header declares init_stitcher_config, stitch_images,
// free_stitch_result, pano_version, pano_greeting and pano_free_string.
// All memory handed to C is allocated with malloc; no Go pointer crosses
// the boundary.
package main

/*
#include <stdlib.h>
#include <string.h>
#include "stitch_result.h"
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/kiesman99/pano/internal/bridge"
	"github.com/kiesman99/pano/internal/logging"
)

//export init_stitcher_config
func init_stitcher_config(configFilePath *C.char) (ok C.int) {
	defer func() {
		if r := recover(); r != nil {
			logging.Logger().Error("init_stitcher_config panicked", "panic", r)
			ok = 0
		}
	}()

	path := ""
	if configFilePath != nil {
		path = C.GoString(configFilePath)
	}
	if bridge.Default.InitConfig(path) {
		return 1
	}
	return 0
}

//export stitch_images
func stitch_images(imagePaths **C.char, numImages C.int, outputPath *C.char) *C.StitchResult {
	res := (*C.StitchResult)(C.calloc(1, C.size_t(unsafe.Sizeof(C.StitchResult{}))))
	res.channels = 3
	defer func() {
		if r := recover(); r != nil {
			logging.Logger().Error("stitch_images panicked", "panic", r)
			if res.data != nil {
				C.free(unsafe.Pointer(res.data))
				res.data = nil
			}
			res.success = 0
			setError(res, fmt.Sprintf("unknown error occurred during stitching: %v", r))
		}
	}()

	var paths []string
	if imagePaths != nil && numImages > 0 {
		for _, p := range unsafe.Slice(imagePaths, int(numImages)) {
			if p != nil {
				paths = append(paths, C.GoString(p))
			}
		}
	}
	out := ""
	if outputPath != nil {
		out = C.GoString(outputPath)
	}

	_ = bridge.WithResult(bridge.Default, paths, out, func(r *bridge.Result) error {
		res.width = C.int(r.Width)
		res.height = C.int(r.Height)
		res.channels = C.int(r.Channels)
		if r.Success {
			res.success = 1
			if len(r.Data) > 0 {
				res.data = (*C.uchar)(C.CBytes(r.Data))
			}
		}
		if r.Error != "" {
			setError(res, r.Error)
		}
		return nil
	})
	return res
}

//export free_stitch_result
func free_stitch_result(result *C.StitchResult) {
	if result == nil {
		return
	}
	if result.data != nil {
		C.free(unsafe.Pointer(result.data))
	}
	if result.error_message != nil {
		C.free(unsafe.Pointer(result.error_message))
	}
	C.free(unsafe.Pointer(result))
}

//export pano_version
func pano_version() *C.char {
	return C.CString(bridge.Default.Version())
}

//export pano_greeting
func pano_greeting(name *C.char) *C.char {
	n := ""
	if name != nil {
		n = C.GoString(name)
	}
	return C.CString(bridge.Default.Greeting(n))
}

//export pano_free_string
func pano_free_string(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}

func setError(res *C.StitchResult, msg string) {
	if res.error_message != nil {
		C.free(unsafe.Pointer(res.error_message))
	}
	res.error_message = C.CString(msg)
}

// main is required by -buildmode=c-shared and never runs.
func main() {}
