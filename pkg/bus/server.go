// Package bus carries messages between status bar instances over a per
// session unix socket. The broker is a plain relay: instances subscribe to
// named channels and anything published on a channel is delivered to every
// other subscriber. The broker process also taps channels itself through
// OnPublish to act on instance commands.
package bus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/stephencookdev/zj-status-sidebar/pkg/protocol"
)

type clientInfo struct {
	conn     net.Conn
	channels map[string]bool
}

// Server is the per-session message broker
type Server struct {
	socketPath string
	pidPath    string
	listener   net.Listener
	clients    map[string]*clientInfo
	clientsMu  sync.RWMutex
	done       chan struct{}

	// OnPublish runs for every published message, before delivery. The
	// broker uses it to act on command-channel traffic.
	OnPublish func(channel, from string, payload json.RawMessage)

	// OnConnect runs after a client's subscribe completes, so the broker
	// can send it a state snapshot.
	OnConnect func(clientID string)

	OnDisconnect func(clientID string)
}

func NewServer(sessionID string) *Server {
	return &Server{
		socketPath: protocol.SocketPath(sessionID),
		pidPath:    protocol.PidPath(sessionID),
		clients:    make(map[string]*clientInfo),
		done:       make(chan struct{}),
	}
}

// Start claims the pidfile and begins accepting connections
func (s *Server) Start() error {
	if err := s.checkAndClaimPid(); err != nil {
		return err
	}

	// Safe to remove a stale socket now that we own the pidfile
	os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		os.Remove(s.pidPath)
		return fmt.Errorf("failed to listen on socket: %w", err)
	}
	s.listener = listener

	go s.acceptLoop()

	return nil
}

// checkAndClaimPid refuses to start when another broker owns the session
func (s *Server) checkAndClaimPid() error {
	if data, err := os.ReadFile(s.pidPath); err == nil {
		pidStr := strings.TrimSpace(string(data))
		if pid, err := strconv.Atoi(pidStr); err == nil && pid > 0 {
			if process, err := os.FindProcess(pid); err == nil {
				// FindProcess always succeeds on unix; signal 0 is the
				// actual liveness test
				if err := process.Signal(syscall.Signal(0)); err == nil {
					return fmt.Errorf("broker already running with pid %d", pid)
				}
			}
		}
		// Stale pidfile
		os.Remove(s.pidPath)
	}

	pid := os.Getpid()
	if err := os.WriteFile(s.pidPath, []byte(strconv.Itoa(pid)), 0644); err != nil {
		return fmt.Errorf("failed to write pidfile: %w", err)
	}

	return nil
}

// Stop closes all connections and removes the socket and pidfile
func (s *Server) Stop() {
	close(s.done)
	if s.listener != nil {
		s.listener.Close()
	}
	s.clientsMu.Lock()
	for id, client := range s.clients {
		client.conn.Close()
		delete(s.clients, id)
	}
	s.clientsMu.Unlock()
	os.Remove(s.socketPath)
	os.Remove(s.pidPath)
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

func (s *Server) acceptLoop() {
	for {
		select {
		case <-s.done:
			return
		default:
		}

		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}

		go s.handleClient(conn)
	}
}

func (s *Server) handleClient(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	// Alert maps and event snapshots can get large
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var clientID string

	for scanner.Scan() {
		var msg protocol.Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}

		switch msg.Type {
		case protocol.MsgSubscribe:
			clientID = msg.ClientID
			channels := make(map[string]bool)
			if msg.Payload != nil {
				var sub protocol.SubscribePayload
				if json.Unmarshal(msg.Payload, &sub) == nil {
					for _, ch := range sub.Channels {
						channels[ch] = true
					}
				}
			}
			s.clientsMu.Lock()
			s.clients[clientID] = &clientInfo{conn: conn, channels: channels}
			s.clientsMu.Unlock()
			if s.OnConnect != nil {
				s.OnConnect(clientID)
			}

		case protocol.MsgUnsubscribe:
			s.clientsMu.Lock()
			delete(s.clients, clientID)
			s.clientsMu.Unlock()
			if s.OnDisconnect != nil {
				s.OnDisconnect(clientID)
			}
			return

		case protocol.MsgPublish:
			if msg.Channel == "" {
				continue
			}
			if s.OnPublish != nil {
				s.OnPublish(msg.Channel, clientID, msg.Payload)
			}
			s.deliver(msg.Channel, clientID, msg.Payload)

		case protocol.MsgPing:
			s.sendMessage(conn, protocol.Message{Type: protocol.MsgPong})
		}
	}

	// Client disconnected without unsubscribing
	if clientID != "" {
		s.clientsMu.Lock()
		_, present := s.clients[clientID]
		delete(s.clients, clientID)
		s.clientsMu.Unlock()
		if present && s.OnDisconnect != nil {
			s.OnDisconnect(clientID)
		}
	}
}

// deliver fans a payload out to every subscriber of a channel except the
// origin. The broker itself publishes with from="".
func (s *Server) deliver(channel, from string, payload json.RawMessage) {
	s.clientsMu.RLock()
	targets := make([]net.Conn, 0, len(s.clients))
	for id, client := range s.clients {
		if id == from || !client.channels[channel] {
			continue
		}
		targets = append(targets, client.conn)
	}
	s.clientsMu.RUnlock()

	msg := protocol.Message{
		Type:     protocol.MsgDeliver,
		ClientID: from,
		Channel:  channel,
		Payload:  payload,
	}
	for _, conn := range targets {
		s.sendMessage(conn, msg)
	}
}

// Publish sends a payload to every subscriber of a channel on the broker's
// own behalf.
func (s *Server) Publish(channel string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	s.deliver(channel, "", raw)
	return nil
}

// SendToClient delivers a payload to one client only, used for snapshots on
// connect.
func (s *Server) SendToClient(clientID, channel string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	s.clientsMu.RLock()
	client, ok := s.clients[clientID]
	s.clientsMu.RUnlock()
	if !ok {
		return fmt.Errorf("no such client %q", clientID)
	}

	return s.sendMessage(client.conn, protocol.Message{
		Type:    protocol.MsgDeliver,
		Channel: channel,
		Payload: raw,
	})
}

func (s *Server) sendMessage(conn net.Conn, msg protocol.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	_, err = conn.Write(append(data, '\n'))
	return err
}
