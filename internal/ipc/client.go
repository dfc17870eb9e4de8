package ipc

import (
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client is a JSON-RPC client for the daemon socket.
type Client struct {
	client *rpc.Client
}

// Dial connects to the daemon at the given Unix socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon socket %s: %w", path, err)
	}
	return &Client{client: rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Status fetches daemon runtime information.
func (c *Client) Status() (StatusResponse, error) {
	var resp StatusResponse
	err := c.client.Call("Vestry.Status", StatusRequest{}, &resp)
	return resp, err
}

// EventCreate registers a new event.
func (c *Client) EventCreate(req EventCreateRequest) (EventCreateResponse, error) {
	var resp EventCreateResponse
	err := c.client.Call("Vestry.EventCreate", req, &resp)
	return resp, err
}

// EventList lists events, optionally filtered by projected status.
func (c *Client) EventList(req EventListRequest) (EventListResponse, error) {
	var resp EventListResponse
	err := c.client.Call("Vestry.EventList", req, &resp)
	return resp, err
}

// EventDescribe fetches the full view of one event.
func (c *Client) EventDescribe(id string) (EventDescribeResponse, error) {
	var resp EventDescribeResponse
	err := c.client.Call("Vestry.EventDescribe", EventDescribeRequest{ID: id}, &resp)
	return resp, err
}

// EventUpdate patches editable event fields.
func (c *Client) EventUpdate(req EventUpdateRequest) (EventUpdateResponse, error) {
	var resp EventUpdateResponse
	err := c.client.Call("Vestry.EventUpdate", req, &resp)
	return resp, err
}

// EventAttach attaches an input file to an event.
func (c *Client) EventAttach(id, path string) (EventAttachResponse, error) {
	var resp EventAttachResponse
	err := c.client.Call("Vestry.EventAttach", EventAttachRequest{ID: id, Path: path}, &resp)
	return resp, err
}

// EventRemove removes an event and optionally its files.
func (c *Client) EventRemove(id string, deleteFiles bool) (EventRemoveResponse, error) {
	var resp EventRemoveResponse
	err := c.client.Call("Vestry.EventRemove", EventRemoveRequest{ID: id, DeleteFiles: deleteFiles}, &resp)
	return resp, err
}

// Run executes the workflow for an event and waits for the report.
func (c *Client) Run(req RunRequest) (RunResponse, error) {
	var resp RunResponse
	err := c.client.Call("Vestry.Run", req, &resp)
	return resp, err
}

// LogTail fetches daemon log lines.
func (c *Client) LogTail(req LogTailRequest) (LogTailResponse, error) {
	var resp LogTailResponse
	err := c.client.Call("Vestry.LogTail", req, &resp)
	return resp, err
}

// TestNotification asks the daemon to send a test notification.
func (c *Client) TestNotification() (TestNotificationResponse, error) {
	var resp TestNotificationResponse
	err := c.client.Call("Vestry.TestNotification", TestNotificationRequest{}, &resp)
	return resp, err
}
