package bus

import (
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stephencookdev/zj-status-sidebar/pkg/protocol"
)

// startBroker runs a server on a unique session name and waits for a client
// count via the OnConnect hook.
func startBroker(t *testing.T, name string) (*Server, string, chan string) {
	t.Helper()
	session := fmt.Sprintf("test-%s-%d", name, os.Getpid())

	connected := make(chan string, 8)
	srv := NewServer(session)
	srv.OnConnect = func(clientID string) { connected <- clientID }

	if err := srv.Start(); err != nil {
		t.Fatalf("broker start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv, session, connected
}

func dialAndSubscribe(t *testing.T, session, clientID string, connected chan string, channels ...string) *Client {
	t.Helper()
	c, err := Dial(session, clientID)
	if err != nil {
		t.Fatalf("dial %s: %v", clientID, err)
	}
	t.Cleanup(c.Close)
	if err := c.Subscribe(channels...); err != nil {
		t.Fatalf("subscribe %s: %v", clientID, err)
	}
	select {
	case got := <-connected:
		if got != clientID {
			t.Fatalf("OnConnect fired for %q, want %q", got, clientID)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("broker never registered %s", clientID)
	}
	return c
}

func waitDelivery(t *testing.T, c *Client) Delivery {
	t.Helper()
	select {
	case d, ok := <-c.Deliveries():
		if !ok {
			t.Fatalf("delivery channel closed")
		}
		return d
	case <-time.After(2 * time.Second):
		t.Fatalf("no delivery within 2s")
	}
	return Delivery{}
}

func TestPublishReachesOtherSubscribers(t *testing.T) {
	_, session, connected := startBroker(t, "fanout")

	a := dialAndSubscribe(t, session, "inst-a", connected, protocol.ChannelSync)
	b := dialAndSubscribe(t, session, "inst-b", connected, protocol.ChannelSync)

	if err := a.Publish(protocol.ChannelSync, map[string]string{"kind": "sync-toggle"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	d := waitDelivery(t, b)
	if d.Channel != protocol.ChannelSync || d.From != "inst-a" {
		t.Fatalf("delivery = %+v, want sync channel from inst-a", d)
	}
	var body map[string]string
	if err := json.Unmarshal(d.Payload, &body); err != nil || body["kind"] != "sync-toggle" {
		t.Fatalf("payload %s did not round-trip", d.Payload)
	}

	// The publisher must not receive its own message
	select {
	case d := <-a.Deliveries():
		t.Fatalf("publisher got its own message back: %+v", d)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestPublishSkipsUnsubscribedChannels(t *testing.T) {
	_, session, connected := startBroker(t, "channels")

	a := dialAndSubscribe(t, session, "inst-a", connected, protocol.ChannelSync)
	b := dialAndSubscribe(t, session, "inst-b", connected, protocol.ChannelEvents)

	a.Publish(protocol.ChannelSync, map[string]int{"seq": 1})

	select {
	case d := <-b.Deliveries():
		t.Fatalf("delivery on unsubscribed channel: %+v", d)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestOnPublishHookSeesCommands(t *testing.T) {
	srv, session, connected := startBroker(t, "hook")

	type seen struct {
		channel, from string
		payload       []byte
	}
	hooked := make(chan seen, 1)
	srv.OnPublish = func(channel, from string, payload json.RawMessage) {
		hooked <- seen{channel, from, payload}
	}

	a := dialAndSubscribe(t, session, "inst-a", connected, protocol.ChannelEvents)
	a.Publish(protocol.ChannelCommands, protocol.Command{Action: protocol.CmdSwitchTab, Target: "3"})

	select {
	case got := <-hooked:
		if got.channel != protocol.ChannelCommands || got.from != "inst-a" {
			t.Fatalf("hook saw %+v", got)
		}
		var cmd protocol.Command
		if err := json.Unmarshal(got.payload, &cmd); err != nil || cmd.Action != protocol.CmdSwitchTab || cmd.Target != "3" {
			t.Fatalf("hook payload %s", got.payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("OnPublish never fired")
	}
}

func TestServerPublishAndSendToClient(t *testing.T) {
	srv, session, connected := startBroker(t, "server-send")

	a := dialAndSubscribe(t, session, "inst-a", connected, protocol.ChannelEvents)
	b := dialAndSubscribe(t, session, "inst-b", connected, protocol.ChannelEvents)

	if err := srv.Publish(protocol.ChannelEvents, protocol.Event{Type: protocol.EventModeUpdate, Mode: "locked"}); err != nil {
		t.Fatalf("server publish: %v", err)
	}
	for _, c := range []*Client{a, b} {
		d := waitDelivery(t, c)
		var ev protocol.Event
		if err := json.Unmarshal(d.Payload, &ev); err != nil || ev.Mode != "locked" {
			t.Fatalf("broadcast payload %s", d.Payload)
		}
	}

	if err := srv.SendToClient("inst-b", protocol.ChannelEvents, protocol.Event{Type: protocol.EventPermissionResult, Granted: true}); err != nil {
		t.Fatalf("send to client: %v", err)
	}
	d := waitDelivery(t, b)
	var ev protocol.Event
	if err := json.Unmarshal(d.Payload, &ev); err != nil || !ev.Granted {
		t.Fatalf("targeted payload %s", d.Payload)
	}

	if err := srv.SendToClient("nobody", protocol.ChannelEvents, ev); err == nil {
		t.Fatalf("send to unknown client succeeded")
	}
}

func TestSecondBrokerRefusesToStart(t *testing.T) {
	_, session, _ := startBroker(t, "pidclaim")

	dup := NewServer(session)
	if err := dup.Start(); err == nil {
		dup.Stop()
		t.Fatalf("second broker claimed a live session")
	}
}

func TestClientCountTracksDisconnect(t *testing.T) {
	srv, session, connected := startBroker(t, "count")

	gone := make(chan string, 1)
	srv.OnDisconnect = func(clientID string) { gone <- clientID }

	a := dialAndSubscribe(t, session, "inst-a", connected, protocol.ChannelEvents)
	if n := srv.ClientCount(); n != 1 {
		t.Fatalf("client count = %d, want 1", n)
	}

	a.Close()
	select {
	case id := <-gone:
		if id != "inst-a" {
			t.Fatalf("disconnect for %q", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("disconnect never observed")
	}
	if n := srv.ClientCount(); n != 0 {
		t.Fatalf("client count after close = %d, want 0", n)
	}
}
