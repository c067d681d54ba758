package s3

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectURLRoundTrip(t *testing.T) {
	c := &Client{publicBaseURL: "https://storage.yandexcloud.net/reviews"}

	key := "deliverables/1b7c/5e1d/final cut (v2).mp4"
	u := c.ObjectURL(key)
	assert.Equal(t, "https://storage.yandexcloud.net/reviews/deliverables/1b7c/5e1d/final%20cut%20%28v2%29.mp4", u)

	got, ok := c.KeyFromURL(u)
	require.True(t, ok)
	assert.Equal(t, key, got)

	got, ok = c.KeyFromURL(u + "?response-content-disposition=attachment")
	require.True(t, ok)
	assert.Equal(t, key, got)
}

func TestKeyFromURLForeign(t *testing.T) {
	c := &Client{publicBaseURL: "https://storage.yandexcloud.net/reviews"}

	for _, raw := range []string{
		"https://vimeo.com/123",
		"https://storage.yandexcloud.net/other/a.mp4",
		"https://storage.yandexcloud.net/reviews/",
		"",
	} {
		_, ok := c.KeyFromURL(raw)
		assert.False(t, ok, raw)
	}
}

func TestNewConfigDefaults(t *testing.T) {
	for _, key := range []string{"S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY", "S3_BUCKET", "S3_ENDPOINT", "S3_REGION", "S3_PUBLIC_BASE_URL"} {
		t.Setenv(key, "")
	}
	path := filepath.Join(t.TempDir(), ".s3.env")
	require.NoError(t, os.WriteFile(path, []byte("AccessKeyID=key\nSecretAccessKey=secret\nBucket=reviews\n"), 0o600))

	cfg, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, defaultEndpoint, cfg.Endpoint)
	assert.Equal(t, defaultRegion, cfg.Region)
	assert.Equal(t, "https://storage.yandexcloud.net/reviews", cfg.PublicBaseURL)
}

func TestNewConfigRequiresBucket(t *testing.T) {
	t.Setenv("S3_BUCKET", "")
	path := filepath.Join(t.TempDir(), ".s3.env")
	require.NoError(t, os.WriteFile(path, []byte("AccessKeyID=key\nSecretAccessKey=secret\n"), 0o600))

	_, err := NewConfig(path)
	assert.Error(t, err)
}
