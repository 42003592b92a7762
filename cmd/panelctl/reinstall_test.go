package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FalixNodes/falixpanel/internal/config"
	"github.com/FalixNodes/falixpanel/internal/daemon"
	perrors "github.com/FalixNodes/falixpanel/internal/errors"
	"github.com/FalixNodes/falixpanel/internal/logging"
	"github.com/FalixNodes/falixpanel/internal/output"
	"github.com/FalixNodes/falixpanel/internal/repository"
	"github.com/FalixNodes/falixpanel/internal/server"
)

type fakeClient struct {
	calls []int
	fail  map[int]error
}

func (c *fakeClient) Reinstall(_ context.Context, s server.Server) error {
	c.calls = append(c.calls, s.ID)
	return c.fail[s.ID]
}

type harness struct {
	app       *app
	out       *bytes.Buffer
	errOut    *bytes.Buffer
	client    *fakeClient
	repoOpens int
}

func newHarness(input string, servers ...server.Server) *harness {
	h := &harness{
		out:    &bytes.Buffer{},
		errOut: &bytes.Buffer{},
		client: &fakeClient{fail: map[int]error{}},
	}
	h.app = &app{
		in:     strings.NewReader(input),
		out:    h.out,
		errOut: h.errOut,
		loadConfig: func(...config.Option) (*config.Config, error) {
			return &config.Config{
				Source:    "inventory",
				Output:    "text",
				Progress:  true,
				LogLevel:  "error",
				LogFormat: "text",
				Locale:    "en",
			}, nil
		},
		newRepository: func(*config.Config) (repository.ServerRepository, func(), error) {
			h.repoOpens++
			return repository.NewMemoryRepository(servers...), func() {}, nil
		},
		newClient: func(*config.Config, *logging.Logger) daemon.Client {
			return h.client
		},
	}
	return h
}

func (h *harness) run(args ...string) error {
	root := newRootCmd(h.app)
	root.SetArgs(append([]string{"server", "reinstall"}, args...))
	return root.ExecuteContext(context.Background())
}

var nodeA = server.Node{ID: 5, Name: "node-a"}

func fixtureServers() []server.Server {
	return []server.Server{
		{ID: 1, Name: "alpha", NodeID: 5, Node: nodeA},
		{ID: 2, Name: "beta", NodeID: 5, Node: nodeA},
		{ID: 3, Name: "gamma", NodeID: 6, Node: server.Node{ID: 6, Name: "node-b"}},
	}
}

func TestReinstallNodeWithFailure(t *testing.T) {
	h := newHarness("yes\n", fixtureServers()...)
	h.client.fail[2] = perrors.NewConnectivityError("timeout", nil)

	err := h.run("--node", "5")
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, h.client.calls)
	assert.Contains(t, h.out.String(), `[ERROR] Failed to reinstall server "beta" (#2) on node "node-a" with error: timeout`)
	assert.Contains(t, h.out.String(), "Reinstall requested for 1/2 servers (1 failed)")
	assert.Equal(t, 0, getExitCode(err))
}

func TestReinstallDeclined(t *testing.T) {
	h := newHarness("no\n", fixtureServers()...)

	require.NoError(t, h.run())
	assert.Empty(t, h.client.calls)
	assert.Contains(t, h.out.String(), "(yes/no) [no]:")
	assert.NotContains(t, h.out.String(), "Reinstall requested")
}

func TestReinstallEOFDeclines(t *testing.T) {
	h := newHarness("", fixtureServers()...)

	require.NoError(t, h.run("1"))
	assert.Empty(t, h.client.calls)
}

func TestReinstallForceSkipsPrompt(t *testing.T) {
	h := newHarness("", fixtureServers()...)

	require.NoError(t, h.run("--force"))
	assert.Equal(t, []int{1, 2, 3}, h.client.calls)
	assert.NotContains(t, h.out.String(), "(yes/no)")
}

func TestReinstallServerWinsOverNode(t *testing.T) {
	h := newHarness("y\n", fixtureServers()...)

	require.NoError(t, h.run("3", "--node", "5"))
	assert.Equal(t, []int{3}, h.client.calls)
}

func TestReinstallInvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "non-integer server", args: []string{"abc"}},
		{name: "fractional node", args: []string{"--node", "2.5"}},
		{name: "too many servers", args: []string{"1", "2"}},
		{name: "unknown flag", args: []string{"--nodes", "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness("yes\n", fixtureServers()...)

			err := h.run(tt.args...)
			require.Error(t, err)
			assert.True(t, perrors.IsInvalidArgument(err))
			assert.Equal(t, 2, getExitCode(err))
			assert.Zero(t, h.repoOpens, "store must not be touched")
			assert.Empty(t, h.client.calls)
			assert.NotContains(t, h.out.String(), "(yes/no)")
		})
	}
}

func TestReinstallServerNotFound(t *testing.T) {
	h := newHarness("yes\n", fixtureServers()...)

	require.NoError(t, h.run("42"))
	assert.Empty(t, h.client.calls)
	assert.Contains(t, h.out.String(), "No servers matched")
}

func TestReinstallJSONOutput(t *testing.T) {
	h := newHarness("", fixtureServers()...)
	h.client.fail[1] = perrors.NewRemoteRejectedError(409, "busy")

	require.NoError(t, h.run("--force", "--node", "5", "--output", "json"))

	var summary output.JSONOutput
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &summary))
	assert.Equal(t, 2, summary.Attempted)
	assert.Equal(t, 1, summary.Succeeded)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "remote_rejected", summary.Failures[0].ErrorType)
	assert.Contains(t, h.errOut.String(), `[ERROR] Failed to reinstall server "alpha"`)
}

func TestReinstallJSONStdoutOnlyHoldsSummary(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		args          []string
		wantAttempted int
		wantStderr    string
	}{
		{name: "confirmed prompt", input: "yes\n", args: []string{"--node", "5"}, wantAttempted: 2, wantStderr: "(yes/no) [no]:"},
		{name: "empty selection", input: "yes\n", args: []string{"42"}, wantAttempted: 0, wantStderr: "No servers matched"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(tt.input, fixtureServers()...)

			require.NoError(t, h.run(append(tt.args, "--output", "json")...))

			var summary output.JSONOutput
			require.NoError(t, json.Unmarshal(h.out.Bytes(), &summary), "stdout: %q", h.out.String())
			assert.Equal(t, tt.wantAttempted, summary.Attempted)
			assert.NotNil(t, summary.Failures)
			assert.Contains(t, h.errOut.String(), tt.wantStderr)
		})
	}
}

func TestReinstallHelpListsEnvironment(t *testing.T) {
	h := newHarness("")
	root := newRootCmd(h.app)
	root.SetArgs([]string{"server", "reinstall", "--help"})
	require.NoError(t, root.Execute())
	assert.Contains(t, h.out.String(), "PANELCTL_DAEMON_CONNECT_TIMEOUT")
}

func TestReinstallConfigFailureIsSetupError(t *testing.T) {
	h := newHarness("yes\n")
	h.app.loadConfig = func(...config.Option) (*config.Config, error) {
		return nil, assert.AnError
	}

	err := h.run("--force")
	require.Error(t, err)
	assert.Equal(t, 2, getExitCode(err))
}

// End to end over an inventory file and a real HTTP daemon.
func TestReinstallInventoryAgainstDaemon(t *testing.T) {
	var hits []string
	daemonSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits = append(hits, r.Header.Get("X-Access-Server"))
		if r.Header.Get("X-Access-Server") == "uuid-beta" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"disk full"}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer daemonSrv.Close()

	u, err := url.Parse(daemonSrv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	dir := t.TempDir()
	inventory := filepath.Join(dir, "inventory.yaml")
	require.NoError(t, os.WriteFile(inventory, []byte(`
nodes:
  - id: 5
    name: node-a
    fqdn: `+host+`
    scheme: http
    daemon_listen: `+strconv.Itoa(port)+`
    daemon_secret: s3cret
    servers:
      - {id: 1, uuid: uuid-alpha, name: alpha}
      - {id: 2, uuid: uuid-beta, name: beta}
`), 0o644))
	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("source: inventory\ninventory: "+inventory+"\nlog-level: error\n"), 0o644))

	out := &bytes.Buffer{}
	a := newApp()
	a.in = strings.NewReader("yes\n")
	a.out = out
	a.errOut = &bytes.Buffer{}

	root := newRootCmd(a)
	root.SetArgs([]string{"server", "reinstall", "--node", "5", "--config", cfgFile, "--no-progress"})
	require.NoError(t, root.ExecuteContext(context.Background()))

	assert.Equal(t, []string{"uuid-alpha", "uuid-beta"}, hits)
	assert.Contains(t, out.String(), `Failed to reinstall server "beta" (#2) on node "node-a" with error: POST http://`)
	assert.Contains(t, out.String(), "disk full")
	assert.Contains(t, out.String(), "Reinstall requested for 1/2 servers (1 failed)")
}

func TestVersionCommand(t *testing.T) {
	h := newHarness("")
	root := newRootCmd(h.app)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, h.out.String(), "panelctl dev")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, 0, getExitCode(nil))
	assert.Equal(t, 2, getExitCode(&SetupError{Message: "x"}))
	assert.Equal(t, 2, getExitCode(perrors.NewInvalidArgument("a", "b", "c")))
	assert.Equal(t, 1, getExitCode(assert.AnError))
}
