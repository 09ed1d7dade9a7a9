package config

import "sort"

// Recognized configuration keys. Lookups are case-insensitive.
const (
	KeyCylinder       = "CYLINDER"
	KeyTrans          = "TRANS"
	KeyEstimateCamera = "ESTIMATE_CAMERA"
	KeyOrderedInput   = "ORDERED_INPUT"
	KeyCrop           = "CROP"
	KeyStraighten     = "STRAIGHTEN"
	KeyFocalLength    = "FOCAL_LENGTH"
	KeyMaxOutputSize  = "MAX_OUTPUT_SIZE"
	KeyLazyRead       = "LAZY_READ"

	KeySiftWorkingSize       = "SIFT_WORKING_SIZE"
	KeyNumOctave             = "NUM_OCTAVE"
	KeyNumScale              = "NUM_SCALE"
	KeyScaleFactor           = "SCALE_FACTOR"
	KeyGaussSigma            = "GAUSS_SIGMA"
	KeyGaussWindowFactor     = "GAUSS_WINDOW_FACTOR"
	KeyJudgeExtremaDiffThres = "JUDGE_EXTREMA_DIFF_THRES"
	KeyContrastThres         = "CONTRAST_THRES"
	KeyPreColorThres         = "PRE_COLOR_THRES"
	KeyEdgeRatio             = "EDGE_RATIO"
	KeyCalcOffsetDepth       = "CALC_OFFSET_DEPTH"
	KeyOffsetThres           = "OFFSET_THRES"
	KeyOriRadius             = "ORI_RADIUS"
	KeyOriHistSmoothCount    = "ORI_HIST_SMOOTH_COUNT"
	KeyDescHistScaleFactor   = "DESC_HIST_SCALE_FACTOR"
	KeyDescIntFactor         = "DESC_INT_FACTOR"
	KeyMatchRejectNextRatio  = "MATCH_REJECT_NEXT_RATIO"
	KeyRansacIterations      = "RANSAC_ITERATIONS"
	KeyRansacInlierThres     = "RANSAC_INLIER_THRES"
	KeyInlierInMatchRatio    = "INLIER_IN_MATCH_RATIO"
	KeyInlierInPointsRatio   = "INLIER_IN_POINTS_RATIO"
	KeySlopePlain            = "SLOPE_PLAIN"
	KeyLMLambda              = "LM_LAMBDA"
	KeyMultipassBA           = "MULTIPASS_BA"
	KeyMultiband             = "MULTIBAND"
)

// defaults are the built-in values used for keys missing from a source.
var defaults = map[string]any{
	KeyCylinder:       0,
	KeyTrans:          0,
	KeyEstimateCamera: 1,
	KeyOrderedInput:   0,
	KeyCrop:           1,
	KeyStraighten:     1,
	KeyFocalLength:    37.0,
	KeyMaxOutputSize:  8000,
	KeyLazyRead:       1,

	KeySiftWorkingSize:       800,
	KeyNumOctave:             3,
	KeyNumScale:              7,
	KeyScaleFactor:           1.4142135623,
	KeyGaussSigma:            1.4142135623,
	KeyGaussWindowFactor:     4.0,
	KeyJudgeExtremaDiffThres: 2e-3,
	KeyContrastThres:         3e-2,
	KeyPreColorThres:         5e-2,
	KeyEdgeRatio:             10.0,
	KeyCalcOffsetDepth:       4,
	KeyOffsetThres:           0.5,
	KeyOriRadius:             4.5,
	KeyOriHistSmoothCount:    2,
	KeyDescHistScaleFactor:   3.0,
	KeyDescIntFactor:         512.0,
	KeyMatchRejectNextRatio:  0.8,
	KeyRansacIterations:      1500,
	KeyRansacInlierThres:     3.5,
	KeyInlierInMatchRatio:    0.1,
	KeyInlierInPointsRatio:   0.04,
	KeySlopePlain:            8e-3,
	KeyLMLambda:              5.0,
	KeyMultipassBA:           1,
	KeyMultiband:             0,
}

// Keys returns every recognized key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsKey reports whether key (upper case) is recognized.
func IsKey(key string) bool {
	_, ok := defaults[key]
	return ok
}
