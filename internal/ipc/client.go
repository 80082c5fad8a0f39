package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"worktrack/internal/event"
)

var ErrConnectionClosed = errors.New("connection closed")

// Client talks to the daemon. Each Send dials a fresh connection, matching
// the one-command-per-connection server.
type Client struct {
	SocketPath string
	Timeout    time.Duration
}

func NewClient(socketPath string) *Client {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	return &Client{SocketPath: socketPath, Timeout: 5 * time.Second}
}

func (c *Client) dial() (net.Conn, error) {
	conn, err := net.DialTimeout("unix", c.SocketPath, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon socket %s: %w", c.SocketPath, err)
	}
	return conn, nil
}

// Send writes one command and reads one response. A response with
// Success false is returned as-is, not as an error.
func (c *Client) Send(cmd Command) (Response, error) {
	conn, err := c.dial()
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.Timeout))

	if err := json.NewEncoder(conn).Encode(cmd); err != nil {
		return Response{}, fmt.Errorf("write command: %w", err)
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}

// Call sends cmd and decodes the response data into out (which may be nil).
// A failed response becomes an error carrying the daemon's message.
func (c *Client) Call(cmd Command, out interface{}) (Response, error) {
	resp, err := c.Send(cmd)
	if err != nil {
		return resp, err
	}
	if !resp.Success {
		return resp, fmt.Errorf("%s: %s", cmd.Name, resp.Message)
	}
	if out != nil {
		if err := MapToStruct(resp.Data, out); err != nil {
			return resp, fmt.Errorf("decode %s data: %w", cmd.Name, err)
		}
	}
	return resp, nil
}

// Subscription is an open notification stream.
type Subscription struct {
	conn    net.Conn
	scanner *bufio.Scanner
}

// Subscribe opens a long-lived connection. After the acknowledgement every
// line on it is one JSON notification.
func (c *Client) Subscribe() (*Subscription, error) {
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}

	conn.SetDeadline(time.Now().Add(c.Timeout))
	if err := json.NewEncoder(conn).Encode(Command{Name: CmdSubscribe}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write subscribe: %w", err)
	}

	s := &Subscription{conn: conn, scanner: bufio.NewScanner(conn)}
	s.scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var ack Response
	if err := s.readLine(&ack); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read subscribe response: %w", err)
	}
	if !ack.Success {
		conn.Close()
		return nil, fmt.Errorf("subscribe rejected: %s", ack.Message)
	}
	conn.SetDeadline(time.Time{})
	return s, nil
}

// Next blocks until the next notification arrives.
func (s *Subscription) Next() (event.Notification, error) {
	var n event.Notification
	if err := s.readLine(&n); err != nil {
		return event.Notification{}, err
	}
	return n, nil
}

func (s *Subscription) readLine(v interface{}) error {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		return ErrConnectionClosed
	}
	if err := json.Unmarshal(s.scanner.Bytes(), v); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}

func (s *Subscription) Close() error {
	return s.conn.Close()
}
