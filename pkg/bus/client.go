package bus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/stephencookdev/zj-status-sidebar/pkg/protocol"
)

// Delivery is one message received from a subscribed channel
type Delivery struct {
	Channel string
	From    string
	Payload json.RawMessage
}

// Client is an instance's connection to the session broker. Deliveries are
// surfaced on a channel so callers can select on them from an event loop.
type Client struct {
	id      string
	conn    net.Conn
	writeMu sync.Mutex

	deliveries chan Delivery
	closed     chan struct{}
	closeOnce  sync.Once
}

// Dial connects to the broker for a session, retrying briefly to ride out
// broker startup.
func Dial(sessionID, clientID string) (*Client, error) {
	var conn net.Conn
	var err error
	for i := 0; i < 10; i++ {
		conn, err = net.Dial("unix", protocol.SocketPath(sessionID))
		if err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	return newClient(clientID, conn), nil
}

// DialOnce makes a single connection attempt. Shell hooks use it so a
// missing broker costs nothing.
func DialOnce(sessionID, clientID string) (*Client, error) {
	conn, err := net.Dial("unix", protocol.SocketPath(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	return newClient(clientID, conn), nil
}

func newClient(clientID string, conn net.Conn) *Client {
	c := &Client{
		id:         clientID,
		conn:       conn,
		deliveries: make(chan Delivery, 64),
		closed:     make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Subscribe registers this client for the given channels
func (c *Client) Subscribe(channels ...string) error {
	payload, err := json.Marshal(protocol.SubscribePayload{Channels: channels})
	if err != nil {
		return err
	}
	return c.send(protocol.Message{
		Type:     protocol.MsgSubscribe,
		ClientID: c.id,
		Payload:  payload,
	})
}

// Publish sends a payload to every other subscriber of a channel
func (c *Client) Publish(channel string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.send(protocol.Message{
		Type:     protocol.MsgPublish,
		ClientID: c.id,
		Channel:  channel,
		Payload:  raw,
	})
}

// PublishRaw sends pre-encoded bytes, used when the payload was already
// marshaled by the sync layer.
func (c *Client) PublishRaw(channel string, raw []byte) error {
	return c.send(protocol.Message{
		Type:     protocol.MsgPublish,
		ClientID: c.id,
		Channel:  channel,
		Payload:  raw,
	})
}

// Ping checks the connection is still alive
func (c *Client) Ping() error {
	return c.send(protocol.Message{Type: protocol.MsgPing, ClientID: c.id})
}

// Deliveries returns the channel messages arrive on. It is closed when the
// connection drops.
func (c *Client) Deliveries() <-chan Delivery {
	return c.deliveries
}

// Done is closed when the connection to the broker is gone
func (c *Client) Done() <-chan struct{} {
	return c.closed
}

// Close tells the broker we are leaving and drops the connection
func (c *Client) Close() {
	c.send(protocol.Message{Type: protocol.MsgUnsubscribe, ClientID: c.id})
	c.closeOnce.Do(func() { close(c.closed) })
	c.conn.Close()
}

func (c *Client) readLoop() {
	defer func() {
		c.closeOnce.Do(func() { close(c.closed) })
		close(c.deliveries)
	}()

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		var msg protocol.Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}
		switch msg.Type {
		case protocol.MsgDeliver:
			select {
			case c.deliveries <- Delivery{Channel: msg.Channel, From: msg.ClientID, Payload: msg.Payload}:
			case <-c.closed:
				return
			}
		case protocol.MsgPong:
			// Liveness only, nothing to do
		}
	}
}

func (c *Client) send(msg protocol.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	_, err = c.conn.Write(append(data, '\n'))
	return err
}
