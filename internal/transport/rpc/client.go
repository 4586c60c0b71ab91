package rpc

import (
	"fmt"
	"net/rpc"

	codechat "codechat.dev/server"
)

// Client is a thin wrapper over net/rpc used by the CLI front-end and the
// filesystem watcher — both are themselves editor-RPC clients, never
// touching RenderManager internals directly (§2).
type Client struct {
	rpc *rpc.Client
}

// Dial connects to a running instance's editor RPC port.
func Dial(addr string) (*Client, error) {
	c, err := rpc.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("rpc: dialing %s: %w", addr, err)
	}
	return &Client{rpc: c}, nil
}

func (c *Client) Close() error {
	return c.rpc.Close()
}

func (c *Client) GetClient(location Location) (GetClientReply, error) {
	var reply GetClientReply
	err := c.rpc.Call("CodeChat.GetClient", GetClientArgs{Location: location}, &reply)
	if err != nil {
		return GetClientReply{}, err
	}
	if reply.Error != "" {
		return reply, fmt.Errorf("%s", reply.Error)
	}
	return reply, nil
}

func (c *Client) StartRender(id codechat.ClientID, text, filePath string, isDirty bool) error {
	var reply StartRenderReply
	if err := c.rpc.Call("CodeChat.StartRender", StartRenderArgs{
		ID: id, Text: text, FilePath: filePath, IsDirty: isDirty,
	}, &reply); err != nil {
		return err
	}
	if reply.Error != "" {
		return fmt.Errorf("%s", reply.Error)
	}
	return nil
}

func (c *Client) StopClient(id codechat.ClientID) error {
	var reply StopClientReply
	if err := c.rpc.Call("CodeChat.StopClient", StopClientArgs{ID: id}, &reply); err != nil {
		return err
	}
	if reply.Error != "" {
		return fmt.Errorf("%s", reply.Error)
	}
	return nil
}

func (c *Client) Ping() error {
	var reply PingReply
	if err := c.rpc.Call("CodeChat.Ping", PingArgs{}, &reply); err != nil {
		return err
	}
	if reply.Error != "" {
		return fmt.Errorf("%s", reply.Error)
	}
	return nil
}
