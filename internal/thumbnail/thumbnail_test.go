package thumbnail

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motionportal/internal/logger"
)

func TestCalculateNewDimensions(t *testing.T) {
	cases := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{"landscape", 3840, 2160, 1024, 576},
		{"portrait", 1080, 1920, 576, 1024},
		{"square", 2048, 2048, 1024, 1024},
		{"small stays", 640, 360, 640, 360},
		{"broken size", 0, 100, 1024, 1024},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, h := calculateNewDimensions(tc.width, tc.height, maxImageSize)
			assert.Equal(t, tc.wantW, w)
			assert.Equal(t, tc.wantH, h)
		})
	}
}

func TestCalculatePreviewTime(t *testing.T) {
	assert.Equal(t, "00:00:01", calculatePreviewTime("garbage"))
	assert.Equal(t, "00:00:01", calculatePreviewTime("9.5"))
	assert.Equal(t, "00:00:03", calculatePreviewTime("30.000000"))
	assert.Equal(t, "00:06:00", calculatePreviewTime("3600"))
	assert.Equal(t, "01:00:00", calculatePreviewTime("36000"))
}

func TestSupports(t *testing.T) {
	assert.True(t, Supports("image/png"))
	assert.True(t, Supports("Video/MP4; codecs=avc1"))
	assert.False(t, Supports("application/pdf"))
	assert.True(t, IsVideo("video/quicktime"))
	assert.False(t, IsVideo("image/jpeg"))
}

func TestGenerateUnsupported(t *testing.T) {
	g, err := NewGenerator(t.TempDir(), logger.Nop())
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "application/zip", strings.NewReader("PK"))
	assert.ErrorIs(t, err, ErrUnsupported)
}
