package engine

import "image"

// Crop returns the largest axis-aligned rectangle of img that contains no
// holes. An image without any valid pixel is returned unchanged.
func Crop(img *FloatImage) *FloatImage {
	r := largestValidRect(img)
	if r.Empty() || r == image.Rect(0, 0, img.W, img.H) {
		return img
	}
	out, err := img.SubImage(r)
	if err != nil {
		return img
	}
	return out
}

// largestValidRect runs the maximal-rectangle-in-histogram scan over rows.
func largestValidRect(img *FloatImage) image.Rectangle {
	heights := make([]int, img.W)
	stack := make([]int, 0, img.W+1)
	var best image.Rectangle
	bestArea := 0

	for y := range img.H {
		for x := range img.W {
			if img.IsHole(x, y) {
				heights[x] = 0
			} else {
				heights[x]++
			}
		}

		stack = stack[:0]
		for x := 0; x <= img.W; x++ {
			h := 0
			if x < img.W {
				h = heights[x]
			}
			for len(stack) > 0 && heights[stack[len(stack)-1]] >= h {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				left := 0
				if len(stack) > 0 {
					left = stack[len(stack)-1] + 1
				}
				if area := heights[top] * (x - left); area > bestArea {
					bestArea = area
					best = image.Rect(left, y-heights[top]+1, x, y+1)
				}
			}
			if x < img.W {
				stack = append(stack, x)
			}
		}
	}
	return best
}
