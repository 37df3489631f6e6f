package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/danmuck/taskrunner/internal/protocol/record"
	"github.com/danmuck/taskrunner/internal/status"
)

var ErrClosed = errors.New("client: closed")

// Client writes task records to a taskrunner socket. Records written on one
// client are registered in order.
type Client struct {
	conn *net.UnixConn
	w    *bufio.Writer
}

// Dial connects to the task socket at path.
func Dial(ctx context.Context, path string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", path, err)
	}
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		_ = conn.Close()
		return nil, fmt.Errorf("client: %s is not a unix socket", path)
	}
	return &Client{conn: uc, w: bufio.NewWriter(uc)}, nil
}

// Submit encodes t and flushes it to the daemon. The daemon sends no reply.
func (c *Client) Submit(t record.Task) error {
	if c.conn == nil {
		return ErrClosed
	}
	if err := record.Encode(c.w, t); err != nil {
		return err
	}
	return c.w.Flush()
}

// Close half-closes the write side so the daemon sees a clean end of
// stream, then releases the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return ErrClosed
	}
	flushErr := c.w.Flush()
	_ = c.conn.CloseWrite()
	closeErr := c.conn.Close()
	c.conn = nil
	return errors.Join(flushErr, closeErr)
}

// StatusClient reads the registry through the status socket.
type StatusClient struct {
	http *http.Client
}

func NewStatusClient(path string) *StatusClient {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", path)
		},
	}
	return &StatusClient{http: &http.Client{Transport: transport, Timeout: 5 * time.Second}}
}

// Tasks lists every registered task.
func (s *StatusClient) Tasks(ctx context.Context) ([]status.TaskView, error) {
	var out struct {
		Tasks []status.TaskView `json:"tasks"`
	}
	if err := s.getJSON(ctx, "/tasks", &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

// Task looks up one task; ok is false when it is not registered.
func (s *StatusClient) Task(ctx context.Context, name string) (status.TaskView, bool, error) {
	var out status.TaskView
	err := s.getJSON(ctx, "/tasks/"+url.PathEscape(name), &out)
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound {
		return status.TaskView{}, false, nil
	}
	if err != nil {
		return status.TaskView{}, false, err
	}
	return out, true, nil
}

// HTTPError is a non-200 status response.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("client: status endpoint returned %d: %s", e.Status, e.Body)
}

func (s *StatusClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://taskrunner"+path, nil)
	if err != nil {
		return err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: status request %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return &HTTPError{Status: resp.StatusCode, Body: body.Error}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
