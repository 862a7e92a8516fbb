package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"regexp"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/stephencookdev/zj-status-sidebar/pkg/bus"
	"github.com/stephencookdev/zj-status-sidebar/pkg/config"
	"github.com/stephencookdev/zj-status-sidebar/pkg/names"
	"github.com/stephencookdev/zj-status-sidebar/pkg/paths"
	"github.com/stephencookdev/zj-status-sidebar/pkg/perf"
	"github.com/stephencookdev/zj-status-sidebar/pkg/protocol"
	"github.com/stephencookdev/zj-status-sidebar/pkg/zellij"
)

var crashLog *log.Logger
var eventLog *log.Logger
var debugLog *log.Logger

func initCrashLog(sessionID string) {
	crashLogPath := fmt.Sprintf("/tmp/zj-status-daemon-%s-crash.log", sessionID)
	f, err := os.OpenFile(crashLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		crashLog = log.New(os.Stderr, "[CRASH] ", log.LstdFlags)
		return
	}
	crashLog = log.New(f, "", log.LstdFlags|log.Lmicroseconds)
}

func initEventLog(sessionID string) {
	eventLogPath := fmt.Sprintf("/tmp/zj-status-daemon-%s-events.log", sessionID)
	f, err := os.OpenFile(eventLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		eventLog = log.New(os.Stderr, "[EVENT] ", log.LstdFlags)
		return
	}
	eventLog = log.New(f, "[event] ", log.LstdFlags|log.Lmicroseconds)
}

func logEvent(format string, args ...interface{}) {
	if eventLog != nil {
		eventLog.Printf(format, args...)
	}
}

func logCrash(context string, r interface{}) {
	crashLog.Printf("=== CRASH in %s ===", context)
	crashLog.Printf("Panic: %v", r)
	crashLog.Printf("Stack trace:\n%s", debug.Stack())
	crashLog.Printf("=== END CRASH ===\n")
}

func recoverAndLog(context string) {
	if r := recover(); r != nil {
		logCrash(context, r)
	}
}

var (
	sessionID = flag.String("session", "", "zellij session name")
	debugMode = flag.Bool("debug", false, "Enable debug logging")
)

// defaultTabName matches the host's unrenamed tab titles
var defaultTabName = regexp.MustCompile(`^Tab #\d+$`)

// tabState is the daemon's view of the session. The refresh loop writes it;
// connect handlers read it for snapshots, hence the lock.
type tabState struct {
	mu       sync.RWMutex
	tabs     []protocol.TabInfo
	lastHash string
	names    *names.Cache
	cfg      *config.Config
}

// refresh polls the session and returns true when the tab list changed
func (ts *tabState) refresh() bool {
	timer := perf.Start("tab-poll")
	defer timer.Stop()

	tabs, err := zellij.ListTabs(*sessionID)
	if err != nil {
		debugLog.Printf("Tab poll failed: %v", err)
		return false
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.tabs = tabs
	hash := hashTabs(tabs)
	if hash == ts.lastHash {
		return false
	}
	ts.lastHash = hash
	return true
}

func (ts *tabState) snapshot() []protocol.TabInfo {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return append([]protocol.TabInfo(nil), ts.tabs...)
}

func hashTabs(tabs []protocol.TabInfo) string {
	var b strings.Builder
	for _, t := range tabs {
		fmt.Fprintf(&b, "%d\x1f%s\x1f%v\x1f%d\x1e", t.ID, t.Name, t.Active, t.Position)
	}
	return b.String()
}

// autoRename replaces the focused tab's default title with a generated name.
// The CLI can only rename the focused tab, so unfocused defaults are picked
// up when they gain focus.
func (ts *tabState) autoRename() {
	if !ts.cfg.Names.AutoRename {
		return
	}
	for _, t := range ts.snapshot() {
		if !t.Active || !defaultTabName.MatchString(t.Name) {
			continue
		}
		name := ts.names.Get(t.Position)
		logEvent("AUTO_RENAME tab=%d name=%q", t.ID, name)
		if err := zellij.RenameTab(*sessionID, name); err != nil {
			debugLog.Printf("Rename failed: %v", err)
		}
		return
	}
}

func tabUpdateEvent(ts *tabState) protocol.Event {
	return protocol.Event{
		Type: protocol.EventTabUpdate,
		Tabs: ts.snapshot(),
		Mode: "normal",
	}
}

// handleCommand runs one instance-requested action against the host
func handleCommand(from string, payload json.RawMessage) {
	defer recoverAndLog("handle-command")

	var cmd protocol.Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		debugLog.Printf("Bad command from %s: %v", from, err)
		return
	}
	logEvent("COMMAND from=%s action=%s target=%s", from, cmd.Action, cmd.Target)

	switch cmd.Action {
	case protocol.CmdSwitchTab:
		// Tab ids are 1-based positions, which is what go-to-tab wants
		if pos, err := strconv.Atoi(cmd.Target); err == nil && pos > 0 {
			if err := zellij.GoToTab(*sessionID, pos); err != nil {
				debugLog.Printf("Switch tab failed: %v", err)
			}
		}
	case protocol.CmdSwitchLayout:
		if err := zellij.NextSwapLayout(*sessionID); err != nil {
			debugLog.Printf("Layout switch failed: %v", err)
		}
	case protocol.CmdRenameTab:
		if err := zellij.RenameTab(*sessionID, cmd.Target); err != nil {
			debugLog.Printf("Rename failed: %v", err)
		}
	case protocol.CmdSetSelectable:
		// The host manages pane selectability through its layout; nothing
		// for the broker to do.
	default:
		debugLog.Printf("Unknown command %q from %s", cmd.Action, from)
	}
}

// watchConfig publishes a reload event when the config file changes
func watchConfig(server *bus.Server, done <-chan struct{}) {
	defer recoverAndLog("config-watch")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		debugLog.Printf("Config watch unavailable: %v", err)
		return
	}
	defer watcher.Close()

	// Watch the directory: editors replace the file, which would orphan a
	// watch on the path itself.
	if err := watcher.Add(paths.ConfigDir()); err != nil {
		debugLog.Printf("Config watch failed: %v", err)
		return
	}
	configPath := paths.ConfigPath()

	var debounce *time.Timer
	for {
		select {
		case <-done:
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Name != configPath {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(200*time.Millisecond, func() {
				logEvent("CONFIG_RELOAD path=%s", configPath)
				server.Publish(protocol.ChannelEvents, protocol.Event{Type: protocol.EventConfigReload})
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			debugLog.Printf("Config watch error: %v", err)
		}
	}
}

func main() {
	flag.Parse()

	if *sessionID == "" {
		*sessionID = os.Getenv("ZELLIJ_SESSION_NAME")
	}
	if *sessionID == "" {
		fmt.Fprintln(os.Stderr, "no session: pass -session or run inside zellij")
		os.Exit(1)
	}

	initCrashLog(*sessionID)
	initEventLog(*sessionID)
	defer recoverAndLog("main")

	if *debugMode {
		debugLog = log.New(os.Stderr, "[daemon] ", log.LstdFlags|log.Lmicroseconds)
	} else {
		debugLog = log.New(io.Discard, "", 0)
	}

	cfg := config.LoadOrDefault()
	ts := &tabState{
		names: names.NewCache(*sessionID),
		cfg:   cfg,
	}

	server := bus.NewServer(*sessionID)

	server.OnConnect = func(clientID string) {
		logEvent("CLIENT_CONNECT client=%s", clientID)
		// New instances get the current state and their permission grant
		// immediately instead of waiting for the next change.
		server.SendToClient(clientID, protocol.ChannelEvents, tabUpdateEvent(ts))
		server.SendToClient(clientID, protocol.ChannelEvents, protocol.Event{
			Type:    protocol.EventPermissionResult,
			Granted: true,
		})
	}
	server.OnDisconnect = func(clientID string) {
		logEvent("CLIENT_DISCONNECT client=%s", clientID)
	}
	server.OnPublish = func(channel, from string, payload json.RawMessage) {
		if channel == protocol.ChannelCommands {
			handleCommand(from, payload)
		}
	}

	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start broker: %v", err)
	}
	logEvent("DAEMON_START session=%s pid=%d", *sessionID, os.Getpid())

	done := make(chan struct{})
	go watchConfig(server, done)

	// Channel for event-driven refresh (SIGUSR1 from host keybindings)
	refreshCh := make(chan struct{}, 10)
	refreshSigCh := make(chan os.Signal, 10)
	signal.Notify(refreshSigCh, syscall.SIGUSR1)
	go func() {
		for range refreshSigCh {
			select {
			case refreshCh <- struct{}{}:
			default:
				// Refresh already pending
			}
		}
	}()

	// Tab poll loop with change detection
	go func() {
		defer recoverAndLog("refresh-loop")

		pollTicker := time.NewTicker(time.Second)
		defer pollTicker.Stop()

		broadcast := func() {
			ts.autoRename()
			if err := server.Publish(protocol.ChannelEvents, tabUpdateEvent(ts)); err != nil {
				debugLog.Printf("Broadcast failed: %v", err)
			}
		}

		for {
			select {
			case <-done:
				return
			case <-refreshCh:
				logEvent("SIGNAL_REFRESH session=%s", *sessionID)
				ts.refresh()
				broadcast()
			case <-pollTicker.C:
				if ts.refresh() {
					broadcast()
				}
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	// Idle shutdown and pidfile health
	go func() {
		defer recoverAndLog("idle-monitor")
		idleTicker := time.NewTicker(10 * time.Second)
		pidCheckTicker := time.NewTicker(3 * time.Second)
		defer idleTicker.Stop()
		defer pidCheckTicker.Stop()
		idleStart := time.Time{}
		myPid := os.Getpid()

		for {
			select {
			case <-pidCheckTicker.C:
				// Another broker may have taken the session over
				pidPath := protocol.PidPath(*sessionID)
				if data, err := os.ReadFile(pidPath); err == nil {
					pidStr := strings.TrimSpace(string(data))
					if pid, err := strconv.Atoi(pidStr); err == nil && pid != myPid {
						logEvent("SHUTDOWN_REASON session=%s reason=pid_replaced our=%d new=%d", *sessionID, myPid, pid)
						sigCh <- syscall.SIGTERM
						return
					}
				}

			case <-idleTicker.C:
				if server.ClientCount() == 0 {
					if idleStart.IsZero() {
						idleStart = time.Now()
					} else if time.Since(idleStart) > 30*time.Second {
						logEvent("SHUTDOWN_REASON session=%s reason=idle_timeout clients=0", *sessionID)
						sigCh <- syscall.SIGTERM
						return
					}
				} else {
					idleStart = time.Time{}
				}
			}
		}
	}()

	<-sigCh
	logEvent("DAEMON_STOP session=%s pid=%d", *sessionID, os.Getpid())
	close(done)
	server.Stop()
}
