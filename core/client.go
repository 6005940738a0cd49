package tinylisp

import (
	"fmt"
	"net"
	"sync"
)

// Client speaks the server's wire protocol over one connection. Calls are
// serialized, so a Client may be shared between goroutines.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
}

// Dial connects to the server socket at sockPath.
func Dial(sockPath string) (*Client, error) {
	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", sockPath, err)
	}
	return NewClient(conn), nil
}

func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn}
}

// Call sends req and waits for its response. A missing id is filled in.
func (c *Client) Call(req map[string]any) (map[string]any, error) {
	if _, ok := req["id"]; !ok {
		req["id"] = NextID()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := WriteMsg(c.conn, req); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	resp, err := ReadMsg(c.conn)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return resp, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
