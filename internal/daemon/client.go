// Package daemon implements the client side of the system daemon's wire
// protocol: a single JSON request over a UNIX-domain stream socket,
// answered by a single JSON response before the server closes the
// connection. The daemon process itself is out of scope; this package
// only speaks its protocol.
package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"cortex/internal/logging"
)

// DefaultSocketPath is the daemon's well-known listen address.
const DefaultSocketPath = "/run/cortex/cortex.sock"

// Recognized methods.
const (
	MethodPing          = "ping"
	MethodStatus        = "status"
	MethodHealth        = "health"
	MethodVersion       = "version"
	MethodAlerts        = "alerts"
	MethodAlertsAck     = "alerts.acknowledge"
	MethodAlertsDismiss = "alerts.dismiss"
	MethodConfigReload  = "config.reload"
	MethodConfigGet     = "config.get"
	MethodShutdown      = "shutdown"
	MethodLLMStatus     = "llm.status"
	MethodLLMLoad       = "llm.load"
	MethodLLMUnload     = "llm.unload"
	MethodLLMInfer      = "llm.infer"
)

// DefaultTimeout covers ordinary request/response round trips.
const DefaultTimeout = 10 * time.Second

// ModelLoadTimeout and InferTimeout extend the deadline for the two
// slow daemon methods, model load and inference.
const (
	ModelLoadTimeout = 120 * time.Second
	InferTimeout     = 60 * time.Second
)

// Request is the envelope sent to the daemon: {"method": ..., "params": {...}}.
type Request struct {
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// ResponseError is the error shape the daemon emits on failure.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("daemon error %d: %s", e.Code, e.Message)
}

// Response is the envelope the daemon replies with:
// {"success": true, "result": {...}} or {"success": false, "error": {...}}.
type Response struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// Client talks to the daemon over a UNIX-domain stream socket.
type Client struct {
	socketPath string
}

// NewClient returns a Client for socketPath, defaulting to
// DefaultSocketPath when empty.
func NewClient(socketPath string) *Client {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	return &Client{socketPath: socketPath}
}

// Call sends method with params and decodes the result into out (which
// may be nil if the caller doesn't need the payload). It opens one
// connection per call, matching the protocol's "server closes the
// socket after reply" framing.
func (c *Client) Call(ctx context.Context, method string, params interface{}, out interface{}) error {
	timeout := DefaultTimeout
	switch method {
	case MethodLLMLoad:
		timeout = ModelLoadTimeout
	case MethodLLMInfer:
		timeout = InferTimeout
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(cctx, "unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("daemon: dial %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	if deadline, ok := cctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	req := Request{Method: method, Params: params}
	reqBytes, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("daemon: encode request: %w", err)
	}
	if _, err := conn.Write(reqBytes); err != nil {
		return fmt.Errorf("daemon: write request: %w", err)
	}
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		cw.CloseWrite()
	}

	logging.DaemonDebug("daemon call %s", method)

	var resp Response
	decoder := json.NewDecoder(bufio.NewReader(conn))
	if err := decoder.Decode(&resp); err != nil {
		return fmt.Errorf("daemon: decode response: %w", err)
	}

	if !resp.Success {
		if resp.Error != nil {
			return resp.Error
		}
		return fmt.Errorf("daemon: request failed with no error detail")
	}

	if out != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("daemon: decode result: %w", err)
		}
	}
	return nil
}

// Ping is a convenience wrapper for the "ping" method.
func (c *Client) Ping(ctx context.Context) error {
	return c.Call(ctx, MethodPing, nil, nil)
}
