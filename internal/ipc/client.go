package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"clipperd/internal/queue"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Clipperd.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Clipperd.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit enqueues a new job for the given URL.
func (c *Client) Submit(req SubmitRequest) (*SubmitResponse, error) {
	var resp SubmitResponse
	if err := c.client.Call("Clipperd.Submit", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobList returns jobs optionally filtered by statuses.
func (c *Client) JobList(statuses []string) (*JobListResponse, error) {
	var resp JobListResponse
	req := JobListRequest{Statuses: statuses}
	if err := c.client.Call("Clipperd.JobList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobDescribe returns details for a single job.
func (c *Client) JobDescribe(id string) (*JobDescribeResponse, error) {
	var resp JobDescribeResponse
	req := JobDescribeRequest{ID: id}
	if err := c.client.Call("Clipperd.JobDescribe", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Chapters returns the chapter proposals of a parked job.
func (c *Client) Chapters(id string) (*ChaptersResponse, error) {
	var resp ChaptersResponse
	req := ChaptersRequest{ID: id}
	if err := c.client.Call("Clipperd.Chapters", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Select accepts chapters for a parked job.
func (c *Client) Select(id string, chapterIDs []string, overrides *queue.Options) (*SelectResponse, error) {
	var resp SelectResponse
	req := SelectRequest{ID: id, ChapterIDs: chapterIDs, Options: overrides}
	if err := c.client.Call("Clipperd.Select", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Retry resets a failed job back to pending.
func (c *Client) Retry(id string) (*RetryResponse, error) {
	var resp RetryResponse
	req := RetryRequest{ID: id}
	if err := c.client.Call("Clipperd.Retry", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Remove removes a job and its artifacts.
func (c *Client) Remove(id string) (*RemoveResponse, error) {
	var resp RemoveResponse
	req := RemoveRequest{ID: id}
	if err := c.client.Call("Clipperd.Remove", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Clear removes jobs in the given statuses; empty means all.
func (c *Client) Clear(statuses []string) (*ClearResponse, error) {
	var resp ClearResponse
	req := ClearRequest{Statuses: statuses}
	if err := c.client.Call("Clipperd.Clear", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health returns queue diagnostics.
func (c *Client) Health() (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.client.Call("Clipperd.Health", HealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
