package compositor

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSurfaceSize(t *testing.T) {
	tests := []struct {
		name      string
		buf       image.Point
		scale     int32
		transform Transform
		expected  image.Point
	}{
		{name: "Normal", buf: image.Pt(64, 32), scale: 1, expected: image.Pt(64, 32)},
		{name: "Scaled", buf: image.Pt(64, 32), scale: 2, expected: image.Pt(32, 16)},
		{name: "Rotated", buf: image.Pt(64, 32), scale: 1, transform: Transform270, expected: image.Pt(32, 64)},
		{name: "FlippedRotatedScaled", buf: image.Pt(64, 32), scale: 4, transform: TransformFlipped90, expected: image.Pt(8, 16)},
		{name: "Flipped", buf: image.Pt(64, 32), scale: 1, transform: TransformFlipped, expected: image.Pt(64, 32)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, surfaceSize(test.buf, test.scale, test.transform))
		})
	}
}

func TestBufferRectToSurface(t *testing.T) {
	buf := image.Pt(40, 20)
	r := image.Rect(0, 0, 10, 5)

	tests := []struct {
		transform Transform
		expected  image.Rectangle
	}{
		{TransformNormal, image.Rect(0, 0, 10, 5)},
		{Transform90, image.Rect(15, 0, 20, 10)},
		{Transform180, image.Rect(30, 15, 40, 20)},
		{Transform270, image.Rect(0, 30, 5, 40)},
		{TransformFlipped, image.Rect(30, 0, 40, 5)},
		{TransformFlipped90, image.Rect(0, 0, 5, 10)},
		{TransformFlipped180, image.Rect(0, 15, 10, 20)},
		{TransformFlipped270, image.Rect(15, 30, 20, 40)},
	}

	for _, test := range tests {
		t.Run(test.transform.String(), func(t *testing.T) {
			got := bufferRectToSurface(r, buf, 1, test.transform)
			assert.Equal(t, test.expected, got)
			assert.True(t, got.In(image.Rectangle{Max: surfaceSize(buf, 1, test.transform)}))
		})
	}
}

func TestBufferRectToSurfaceScaleRoundsOut(t *testing.T) {
	got := bufferRectToSurface(image.Rect(3, 3, 5, 5), image.Pt(8, 8), 2, TransformNormal)
	assert.Equal(t, image.Rect(1, 1, 3, 3), got)
}

func TestFloorCeilDiv(t *testing.T) {
	assert.Equal(t, -2, floorDiv(-3, 2))
	assert.Equal(t, 1, floorDiv(3, 2))
	assert.Equal(t, 2, ceilDiv(3, 2))
	assert.Equal(t, -1, ceilDiv(-3, 2))
	assert.Equal(t, 2, ceilDiv(4, 2))
}
