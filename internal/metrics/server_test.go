package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCIDRs(t *testing.T) {
	nets, err := ParseCIDRs([]string{"10.0.0.0/8", "::1/128"})
	require.NoError(t, err)
	assert.Len(t, nets, 2)

	_, err = ParseCIDRs([]string{"10.0.0.0/33"})
	assert.Error(t, err)
}

func TestIsAllowedIP(t *testing.T) {
	nets, err := ParseCIDRs([]string{"192.168.0.0/16", "2a02:5180::/32"})
	require.NoError(t, err)

	assert.True(t, IsAllowedIP("192.168.1.20", nets))
	assert.True(t, IsAllowedIP("2a02:5180::1", nets))
	assert.False(t, IsAllowedIP("8.8.8.8", nets))
	assert.False(t, IsAllowedIP("not-an-ip", nets))
}

func TestRouter(t *testing.T) {
	nets, err := ParseCIDRs([]string{"192.0.2.0/24"})
	require.NoError(t, err)

	healthy := true
	router := NewRouter(nets, func(context.Context) error {
		if !healthy {
			return errors.New("db down")
		}
		return nil
	})

	// httptest requests come from 192.0.2.1
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	healthy = false
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
