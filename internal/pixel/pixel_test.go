package pixel_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiesman99/pano/internal/engine"
	"github.com/kiesman99/pano/internal/pixel"
)

func TestByte(t *testing.T) {
	testCases := []struct {
		in   float32
		want byte
	}{
		{-0.1, 0},
		{engine.NoData, 0},
		{0, 0},
		{1, 255},
		{0.5, 128},
		{2, 255},
		{float32(math.NaN()), 0},
		{float32(math.Inf(1)), 255},
		{1.0 / 255, 1},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, pixel.Byte(tc.in), "Byte(%v)", tc.in)
	}
}

func TestConvert(t *testing.T) {
	img := engine.NewFloatImage(3, 2, 3)
	for i := range img.Pix {
		img.Pix[i] = float32(i) / float32(len(img.Pix)-1)
	}
	img.At(1, 1)[2] = engine.NoData

	buf, err := pixel.Convert(img)
	require.NoError(t, err)
	require.Len(t, buf, 3*2*3)
	assert.Equal(t, byte(0), buf[0])
	assert.Equal(t, byte(0), buf[(1*3+1)*3+2])
	assert.Equal(t, byte(255), buf[len(buf)-1])

	again, err := pixel.Convert(img)
	require.NoError(t, err)
	assert.Equal(t, buf, again)
}

func TestConvertIndexing(t *testing.T) {
	img := engine.NewFloatImage(4, 3, 3)
	img.At(2, 1)[0] = 1
	img.At(2, 1)[1] = 0.5

	buf, err := pixel.Convert(img)
	require.NoError(t, err)
	i := (1*4 + 2) * 3
	assert.Equal(t, []byte{255, 128, 0}, buf[i:i+3])
}

func TestConvertIntoReusesBuffer(t *testing.T) {
	img := engine.NewFloatImage(2, 2, 3)
	img.Fill(1)

	dst := make([]byte, 0, 64)
	got, err := pixel.ConvertInto(dst, img)
	require.NoError(t, err)
	assert.Len(t, got, 12)
	assert.Same(t, &dst[:1][0], &got[0])

	small := make([]byte, 4)
	got, err = pixel.ConvertInto(small, img)
	require.NoError(t, err)
	assert.Len(t, got, 12)
}

func TestConvertChannels(t *testing.T) {
	for _, c := range []int{1, 4} {
		_, err := pixel.Convert(engine.NewFloatImage(2, 2, c))
		assert.ErrorIs(t, err, pixel.ErrChannels)
	}
}

func TestConvertEmpty(t *testing.T) {
	buf, err := pixel.Convert(engine.NewFloatImage(0, 0, 3))
	require.NoError(t, err)
	assert.Empty(t, buf)
}
