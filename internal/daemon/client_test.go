package daemon

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/FalixNodes/falixpanel/internal/errors"
	"github.com/FalixNodes/falixpanel/internal/server"
)

func serverOn(t *testing.T, rawURL string) server.Server {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return server.Server{
		ID:     2,
		UUID:   "22222222-bbbb",
		Name:   "beta",
		NodeID: 5,
		Node: server.Node{
			ID:           5,
			Name:         "node-a",
			FQDN:         host,
			Scheme:       u.Scheme,
			DaemonListen: port,
			DaemonSecret: "secret-a",
		},
	}
}

func TestReinstallSendsOneRequest(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/server/reinstall", r.URL.Path)
		assert.Equal(t, "22222222-bbbb", r.Header.Get("X-Access-Server"))
		assert.Equal(t, "secret-a", r.Header.Get("X-Access-Token"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "{}", string(body))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient(Config{}, nil)
	require.NoError(t, client.Reinstall(context.Background(), serverOn(t, srv.URL)))
	assert.Equal(t, 1, calls)
}

func TestReinstallRemoteRejected(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"server is currently installing"}`))
	}))
	defer srv.Close()

	err := NewClient(Config{}, nil).Reinstall(context.Background(), serverOn(t, srv.URL))
	require.Error(t, err)

	ae, ok := perrors.AsActionError(err)
	require.True(t, ok)
	assert.Equal(t, perrors.RemoteRejectedErrorType, ae.Type)
	assert.Equal(t, http.StatusConflict, ae.StatusCode)
	assert.Contains(t, ae.Error(), "409 Conflict")
	assert.Contains(t, ae.Error(), "server is currently installing")
	assert.Equal(t, 1, calls, "client must not retry")
}

func TestReinstallConnectivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	s := serverOn(t, srv.URL)
	srv.Close()

	err := NewClient(Config{}, nil).Reinstall(context.Background(), s)
	ae, ok := perrors.AsActionError(err)
	require.True(t, ok)
	assert.Equal(t, perrors.ConnectivityErrorType, ae.Type)
}

func TestReinstallTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	err := NewClient(Config{Timeout: 50 * time.Millisecond}, nil).Reinstall(context.Background(), serverOn(t, srv.URL))
	ae, ok := perrors.AsActionError(err)
	require.True(t, ok)
	assert.Equal(t, perrors.TimeoutErrorType, ae.Type)
}

func TestDaemonMessage(t *testing.T) {
	assert.Equal(t, "boom", daemonMessage([]byte(`{"error":"boom"}`)))
	assert.Equal(t, "bad state", daemonMessage([]byte(`{"errors":[{"detail":"bad state"}]}`)))
	assert.Equal(t, "Internal Server Error", daemonMessage([]byte("  Internal Server Error\n")))
	assert.Equal(t, "empty response", daemonMessage(nil))

	long := daemonMessage([]byte(strings.Repeat("x", 500)))
	assert.True(t, strings.HasSuffix(long, "(truncated...)"))
}
