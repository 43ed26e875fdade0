package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("ids carry the relay prefix", func(t *testing.T) {
		sid := New()
		assert.True(t, strings.HasPrefix(sid, Prefix), "sid %q should start with %q", sid, Prefix)
	})

	t.Run("every call yields a distinct id", func(t *testing.T) {
		seen := make(map[string]bool)
		for range 100 {
			sid := New()
			require.False(t, seen[sid], "duplicate sid %q", sid)
			seen[sid] = true
		}
	})
}

func TestHandoffURL(t *testing.T) {
	t.Run("builds an absolute URL with the sid as a path segment", func(t *testing.T) {
		url, err := HandoffURL("https://app.example.com", "up_ab12cd")
		require.NoError(t, err)
		assert.Equal(t, "https://app.example.com/upload/up_ab12cd", url)
	})

	t.Run("trailing slash on origin does not double the separator", func(t *testing.T) {
		url, err := HandoffURL("https://app.example.com/", "up_ab12cd")
		require.NoError(t, err)
		assert.Equal(t, "https://app.example.com/upload/up_ab12cd", url)
	})

	t.Run("rejects relative origins", func(t *testing.T) {
		_, err := HandoffURL("/upload-page", "up_ab12cd")
		require.Error(t, err)
	})

	t.Run("rejects non-http schemes", func(t *testing.T) {
		_, err := HandoffURL("ftp://app.example.com", "up_ab12cd")
		require.Error(t, err)
	})

	t.Run("rejects empty sid", func(t *testing.T) {
		_, err := HandoffURL("https://app.example.com", "")
		require.Error(t, err)
	})
}
