package protocol

import (
	"encoding/json"
	"fmt"
)

// MessageType identifies the type of bus message
type MessageType string

const (
	MsgSubscribe   MessageType = "subscribe"
	MsgUnsubscribe MessageType = "unsubscribe"
	MsgPublish     MessageType = "publish"
	MsgDeliver     MessageType = "deliver"
	MsgPing        MessageType = "ping"
	MsgPong        MessageType = "pong"
)

// Logical channel names. ChannelSync carries the cross-instance sync
// protocol and its name is part of the external interface; the other
// channels are internal to this plugin's bus.
const (
	ChannelEvents   = "zj-status-sidebar:events"
	ChannelSync     = "zj-status-bar-sync-tab-alerts"
	ChannelCLI      = "zj-status-sidebar:cli"
	ChannelCommands = "zj-status-sidebar:commands"
)

// Pipe message names understood by instances
const (
	PipeToggleCollapse = "toggle_collapse"
	PipeCLINotify      = "zj-status-sidebar:cli:notify"
	PipeCLITabAlert    = "zj-status-sidebar:cli:tab_alert"
)

// Message is the base structure for bus communication. Payload stays raw
// until the receiver knows what to decode it into.
type Message struct {
	Type     MessageType     `json:"type"`
	ClientID string          `json:"client_id,omitempty"`
	Channel  string          `json:"channel,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// SubscribePayload lists the channels a client wants delivered
type SubscribePayload struct {
	Channels []string `json:"channels"`
}

// EventType enumerates host-delivered events
type EventType string

const (
	EventTabUpdate        EventType = "tab_update"
	EventModeUpdate       EventType = "mode_update"
	EventPermissionResult EventType = "permission_result"
	EventConfigReload     EventType = "config_reload"
)

// TabInfo describes one tab in the host's tab list. ID is the stable tab
// identifier; Position is the display order (0-based).
type TabInfo struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
	Position int    `json:"position"`
}

// Palette carries the host theme colors used for rendering. Empty fields
// fall back to configured defaults.
type Palette struct {
	Fg      string `json:"fg,omitempty"`
	Bg      string `json:"bg,omitempty"`
	Green   string `json:"green,omitempty"`
	Red     string `json:"red,omitempty"`
	Orange  string `json:"orange,omitempty"`
	Magenta string `json:"magenta,omitempty"`
}

// Event is the tagged union of host state-change events. Only the fields
// relevant to Type are populated; the tab list is always sent whole.
type Event struct {
	Type    EventType `json:"type"`
	Tabs    []TabInfo `json:"tabs,omitempty"`
	Mode    string    `json:"mode,omitempty"`
	Palette *Palette  `json:"palette,omitempty"`
	Granted bool      `json:"granted,omitempty"`
}

// PipeMessage is an ad-hoc message from the CLI utility, a keybinding, or
// another plugin instance.
type PipeMessage struct {
	Name string            `json:"name"`
	Args map[string]string `json:"args,omitempty"`
}

// Command actions an instance may request from the host
const (
	CmdSwitchTab     = "switch-tab"
	CmdSwitchLayout  = "switch-layout"
	CmdSetSelectable = "set-selectable"
	CmdRenameTab     = "rename-tab"
)

// Command is a fire-and-forget request from an instance to the host side.
// Target is action-specific: a tab id, a layout name, or a flag value.
type Command struct {
	Action string `json:"action"`
	Target string `json:"target,omitempty"`
}

// SocketPath returns the bus socket path for a session
func SocketPath(sessionID string) string {
	if sessionID == "" {
		sessionID = "default"
	}
	return fmt.Sprintf("/tmp/zj-status-daemon-%s.sock", sessionID)
}

// PidPath returns the pidfile path for a session
func PidPath(sessionID string) string {
	if sessionID == "" {
		sessionID = "default"
	}
	return fmt.Sprintf("/tmp/zj-status-daemon-%s.pid", sessionID)
}
