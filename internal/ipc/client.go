package ipc

import (
	"errors"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to a running watch process.
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
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) call(method string, req, resp any) error {
	return c.client.Call(serviceName+"."+method, req, resp)
}

// Status retrieves the watch status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Preview returns the current preview, recomputing it first when refresh is
// set.
func (c *Client) Preview(refresh bool) (*PreviewResponse, error) {
	var resp PreviewResponse
	if err := c.call("Preview", PreviewRequest{Refresh: refresh}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Confirmation returns what the next transfer would render.
func (c *Client) Confirmation() (*ConfirmationResponse, error) {
	var resp ConfirmationResponse
	if err := c.call("Confirmation", ConfirmationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Transfer runs a transfer in the watch process. The summary is returned
// alongside the run's error when the import got that far.
func (c *Client) Transfer() (*TransferResponse, error) {
	var resp TransferResponse
	if err := c.call("Transfer", TransferRequest{}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return &resp, errors.New(resp.Error)
	}
	return &resp, nil
}
