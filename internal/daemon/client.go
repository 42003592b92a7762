// Package daemon talks to the per-node daemon API on behalf of the panel.
package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	perrors "github.com/FalixNodes/falixpanel/internal/errors"
	"github.com/FalixNodes/falixpanel/internal/logging"
	"github.com/FalixNodes/falixpanel/internal/server"
)

const (
	// DefaultTimeout bounds a whole daemon request
	DefaultTimeout = 30 * time.Second

	// DefaultConnectTimeout bounds the TCP dial to a daemon
	DefaultConnectTimeout = 10 * time.Second

	maxResponseBody = 64 << 10
	maxDetailLength = 240
)

// Client defines the remote actions the panel performs on a server's daemon
type Client interface {
	// Reinstall asks the daemon to reinstall the server. A failure is always an
	// *errors.ActionError; the request is sent exactly once.
	Reinstall(ctx context.Context, s server.Server) error
}

// Config holds transport settings for daemon calls
type Config struct {
	Timeout        time.Duration
	ConnectTimeout time.Duration
}

// HTTPClient implements Client over the daemon's HTTP API
type HTTPClient struct {
	client *http.Client
	logger *logging.Logger
}

// NewClient creates a daemon client with its own transport
func NewClient(cfg Config, logger *logging.Logger) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext

	return NewClientWithHTTP(&http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}, logger)
}

// NewClientWithHTTP creates a daemon client around an existing http.Client
func NewClientWithHTTP(client *http.Client, logger *logging.Logger) *HTTPClient {
	return &HTTPClient{client: client, logger: logger}
}

// Reinstall sends POST server/reinstall to the server's node
func (c *HTTPClient) Reinstall(ctx context.Context, s server.Server) error {
	url := s.Node.DaemonBaseURL() + "server/reinstall"
	if c.logger != nil {
		c.logger.Debug("sending daemon request", "url", url, "server_id", s.ID)
	}

	if err := c.post(ctx, s, url, []byte("{}")); err != nil {
		return err
	}
	return nil
}

func (c *HTTPClient) post(ctx context.Context, s server.Server, url string, body []byte) *perrors.ActionError {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return perrors.NewConnectivityError(fmt.Sprintf("invalid daemon request for node %q: %v", s.Node.Name, err), err)
	}

	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Access-Server", s.UUID)
	req.Header.Set("X-Access-Token", s.Node.DaemonSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return perrors.ClassifyTransport(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return perrors.ClassifyTransport(err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		detail := fmt.Sprintf("POST %s resulted in a %d %s response: %s",
			url, resp.StatusCode, http.StatusText(resp.StatusCode), daemonMessage(respBody))
		return perrors.NewRemoteRejectedError(resp.StatusCode, detail)
	}

	return nil
}

// errorBody covers the error shapes returned by daemon versions in the wild
type errorBody struct {
	Error  string `json:"error"`
	Errors []struct {
		Detail string `json:"detail"`
	} `json:"errors"`
}

// daemonMessage extracts a readable message from a daemon error response
func daemonMessage(body []byte) string {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if len(parsed.Errors) > 0 && parsed.Errors[0].Detail != "" {
			return parsed.Errors[0].Detail
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "empty response"
	}
	if len(msg) > maxDetailLength {
		msg = msg[:maxDetailLength] + " (truncated...)"
	}
	return msg
}
