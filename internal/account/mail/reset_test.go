package mail

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRenderResetEmail(t *testing.T) {
	msg, err := RenderResetEmail("http://localhost:5173/", "alice@example.com", "tok+en/1", 48*time.Hour)
	require.NoError(t, err)

	require.Equal(t, "alice@example.com", msg.To)
	require.Contains(t, msg.Subject, "alice@example.com")

	t.Run("link lands on the frontend reset page", func(t *testing.T) {
		require.Contains(t, msg.HTML, "http://localhost:5173/reset-password?token=")
	})

	t.Run("token is query-escaped", func(t *testing.T) {
		require.Contains(t, msg.HTML, "token=tok%2Ben%2F1")
		require.NotContains(t, msg.HTML, "token=tok+en/1")
	})

	t.Run("expiry is spelled out", func(t *testing.T) {
		require.Contains(t, msg.HTML, "48 hours")
	})
}

func TestFormatTTL(t *testing.T) {
	require.Equal(t, "1 hour", formatTTL(time.Hour))
	require.Equal(t, "48 hours", formatTTL(48*time.Hour))
	require.Equal(t, "30 minutes", formatTTL(30*time.Minute))
}
