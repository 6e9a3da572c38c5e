package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
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

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Scout.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Search starts a new scraping session.
func (c *Client) Search(req SearchRequest) (*SearchResponse, error) {
	var resp SearchResponse
	if err := c.client.Call("Scout.Search", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Sessions lists known sessions, newest first.
func (c *Client) Sessions() (*SessionsResponse, error) {
	var resp SessionsResponse
	if err := c.client.Call("Scout.Sessions", SessionsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Describe returns details for a single session.
func (c *Client) Describe(id string) (*DescribeResponse, error) {
	var resp DescribeResponse
	if err := c.client.Call("Scout.Describe", DescribeRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Select resolves a multi-result session by profile index.
func (c *Client) Select(id string, index int) (*SelectResponse, error) {
	var resp SelectResponse
	if err := c.client.Call("Scout.Select", SelectRequest{ID: id, Index: index}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cancel cancels a session and removes its artifacts.
func (c *Client) Cancel(id string) (*CancelResponse, error) {
	var resp CancelResponse
	if err := c.client.Call("Scout.Cancel", CancelRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns daemon log lines from the given offset.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Scout.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to shut down.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Scout.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
