package bangumi

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transportOf(t *testing.T, cl *http.Client) *http.Transport {
	t.Helper()
	tr, ok := cl.Transport.(*http.Transport)
	require.True(t, ok)
	return tr
}

func TestNewHTTPClient(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "https://api.bgm.tv/v0/me", nil)

	t.Run("direct", func(t *testing.T) {
		cl := NewHTTPClient("", 5*time.Second)
		assert.Equal(t, 5*time.Second, cl.Timeout)
		assert.Nil(t, transportOf(t, cl).Proxy)
	})

	t.Run("http proxy", func(t *testing.T) {
		tr := transportOf(t, NewHTTPClient("http://127.0.0.1:7890", time.Second))
		require.NotNil(t, tr.Proxy)
		u, err := tr.Proxy(req)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:7890", u.Host)
	})

	t.Run("socks proxy", func(t *testing.T) {
		tr := transportOf(t, NewHTTPClient("socks5://127.0.0.1:1080", time.Second))
		assert.Nil(t, tr.Proxy)
		assert.NotNil(t, tr.DialContext)
	})

	t.Run("invalid proxy falls back to direct", func(t *testing.T) {
		tr := transportOf(t, NewHTTPClient("ftp://127.0.0.1:21", time.Second))
		assert.Nil(t, tr.Proxy)
		tr = transportOf(t, NewHTTPClient("http://", time.Second))
		assert.Nil(t, tr.Proxy)
	})
}
