package models

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPayload() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("not-really-a-png"))
}

func TestValidatePayload(t *testing.T) {
	t.Run("accepts a base64 image data URI", func(t *testing.T) {
		require.NoError(t, ValidatePayload(validPayload(), 0))
	})

	t.Run("rejects empty payload", func(t *testing.T) {
		err := ValidatePayload("", 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty")
	})

	t.Run("rejects non data URI", func(t *testing.T) {
		require.Error(t, ValidatePayload("just some text", 0))
	})

	t.Run("rejects unsupported image type", func(t *testing.T) {
		err := ValidatePayload("data:image/tiff;base64,AAAA", 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tiff")
	})

	t.Run("rejects malformed base64", func(t *testing.T) {
		require.Error(t, ValidatePayload("data:image/png;base64,!!!not-base64!!!", 0))
	})

	t.Run("rejects payload over the size cap", func(t *testing.T) {
		payload := validPayload()
		err := ValidatePayload(payload, int64(len(payload)-1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds")
	})

	t.Run("missing base64 marker is rejected", func(t *testing.T) {
		require.Error(t, ValidatePayload("data:image/png,rawdata", 0))
	})
}

func TestDecodePayload(t *testing.T) {
	imageType, data, err := DecodePayload(validPayload())
	require.NoError(t, err)
	assert.Equal(t, "png", imageType)
	assert.Equal(t, []byte("not-really-a-png"), data)
}

func TestEncodePayload(t *testing.T) {
	payload := EncodePayload("jpeg", []byte{0xff, 0xd8, 0xff})
	require.True(t, strings.HasPrefix(payload, "data:image/jpeg;base64,"))

	imageType, data, err := DecodePayload(payload)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", imageType)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, data)
}
