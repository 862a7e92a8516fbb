package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/muesli/termenv"

	"github.com/stephencookdev/zj-status-sidebar/pkg/alerts"
	"github.com/stephencookdev/zj-status-sidebar/pkg/bus"
	"github.com/stephencookdev/zj-status-sidebar/pkg/config"
	"github.com/stephencookdev/zj-status-sidebar/pkg/input"
	"github.com/stephencookdev/zj-status-sidebar/pkg/perf"
	"github.com/stephencookdev/zj-status-sidebar/pkg/protocol"
	"github.com/stephencookdev/zj-status-sidebar/pkg/render"
	"github.com/stephencookdev/zj-status-sidebar/pkg/state"
	"github.com/stephencookdev/zj-status-sidebar/pkg/statesync"
)

var (
	sessionID  = flag.String("session", "", "zellij session name")
	instanceID = flag.String("instance", "", "unique instance id (defaults to a random uuid)")
	debug      = flag.Bool("debug", false, "Enable debug logging")
)

var debugLog *log.Logger

// barModel is the Bubbletea model for one status bar instance
type barModel struct {
	client    *bus.Client
	width     int
	connected bool
	spin      spinner.Model

	cfg      *config.Config
	store    *state.Store
	tracker  *alerts.Tracker
	router   *input.Router
	renderer *render.Renderer
	bc       *statesync.Broadcaster

	// Output of the last layout pass
	line    string
	regions []render.HitRegion
}

type connectedMsg struct {
	client *bus.Client
}

type disconnectedMsg struct{}

type deliveryMsg bus.Delivery

type tickMsg time.Time

func (m barModel) Init() tea.Cmd {
	return tea.Batch(connectCmd(), tickCmd(), m.spin.Tick)
}

// connectCmd dials the session broker and subscribes to the channels this
// instance consumes.
func connectCmd() tea.Cmd {
	return func() tea.Msg {
		client, err := bus.Dial(*sessionID, *instanceID)
		if err != nil {
			debugLog.Printf("Failed to connect to broker: %v", err)
			return disconnectedMsg{}
		}
		if err := client.Subscribe(protocol.ChannelEvents, protocol.ChannelSync, protocol.ChannelCLI); err != nil {
			client.Close()
			return disconnectedMsg{}
		}

		// Forward deliveries into the tea loop
		go func() {
			for d := range client.Deliveries() {
				if globalProgram != nil {
					globalProgram.Send(deliveryMsg(d))
				}
			}
			if globalProgram != nil {
				globalProgram.Send(disconnectedMsg{})
			}
		}()

		return connectedMsg{client: client}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m barModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case connectedMsg:
		m.client = msg.client
		busClient = msg.client
		m.connected = true
		debugLog.Printf("Connected as %s", *instanceID)
		m.relayout()
		return m, nil

	case disconnectedMsg:
		m.connected = false
		m.client = nil
		busClient = nil
		debugLog.Printf("Disconnected from broker")
		return m, tea.Tick(time.Second, func(t time.Time) tea.Msg {
			return connectCmd()()
		})

	case deliveryMsg:
		return m.handleDelivery(bus.Delivery(msg))

	case tickMsg:
		if m.connected {
			m.client.Ping()
			// The tick timer only runs work while alerts are live
			if !m.tracker.Empty() {
				m.tracker.Tick()
				m.bc.PublishAlerts(m.tracker.Snapshot())
				m.relayout()
			}
		}
		return m, tickCmd()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.client != nil {
				m.client.Close()
			}
			return m, tea.Quit
		}
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.relayout()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		if m.connected {
			return m, nil
		}
		return m, cmd
	}

	return m, nil
}

// handleDelivery dispatches one bus message. All state mutation happens
// here, on the tea loop, so none of the stores need locks.
func (m barModel) handleDelivery(d bus.Delivery) (tea.Model, tea.Cmd) {
	switch d.Channel {
	case protocol.ChannelEvents:
		var ev protocol.Event
		if err := json.Unmarshal(d.Payload, &ev); err != nil {
			debugLog.Printf("Bad event payload: %v", err)
			return m, nil
		}
		m.handleEvent(ev)
		m.relayout()

	case protocol.ChannelSync:
		applied, ok := m.bc.Apply(d.Payload)
		if !ok {
			return m, nil
		}
		switch applied.Kind {
		case statesync.KindToggle:
			m.store.Collapsed = applied.Collapsed
			state.SaveCollapsed(applied.Collapsed)
		case statesync.KindTabAlerts:
			m.tracker.Replace(applied.Alerts)
		}
		m.relayout()

	case protocol.ChannelCLI:
		var pipe protocol.PipeMessage
		if err := json.Unmarshal(d.Payload, &pipe); err != nil {
			debugLog.Printf("Bad pipe payload: %v", err)
			return m, nil
		}
		if m.router.Pipe(pipe) {
			m.bc.PublishAlerts(m.tracker.Snapshot())
		}
		m.relayout()
	}

	return m, nil
}

func (m *barModel) handleEvent(ev protocol.Event) {
	switch ev.Type {
	case protocol.EventTabUpdate:
		activeID, ok := m.store.SetTabs(ev.Tabs)
		m.tracker.PruneTo(m.store.TabIDs())
		// Visiting a tab acknowledges its alert
		if ok {
			m.tracker.Clear(activeID)
		}
		if ev.Mode != "" {
			m.store.Mode = ev.Mode
		}
		if ev.Palette != nil {
			m.store.Palette = *ev.Palette
		}

	case protocol.EventModeUpdate:
		if ev.Mode != "" {
			m.store.Mode = ev.Mode
		}
		if ev.Palette != nil {
			m.store.Palette = *ev.Palette
		}

	case protocol.EventPermissionResult:
		m.router.PermissionResult(ev.Granted)

	case protocol.EventConfigReload:
		m.cfg = config.LoadOrDefault()
		barCfg = m.cfg
		m.renderer = render.New(m.cfg)
		debugLog.Printf("Config reloaded")
	}
}

func (m barModel) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if !m.connected {
		return m, nil
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.router.Scroll(-1)
		return m, nil
	case tea.MouseButtonWheelDown:
		m.router.Scroll(1)
		return m, nil
	case tea.MouseButtonLeft:
		if msg.Action == tea.MouseActionPress {
			m.router.Click(msg.X, m.regions)
			// A click may have toggled collapse
			m.relayout()
		}
		return m, nil
	}
	return m, nil
}

// relayout recomputes the bar line and hit regions from current state
func (m *barModel) relayout() {
	timer := perf.Start("relayout")
	defer timer.Stop()

	snap := render.Snapshot{
		Tabs:        m.store.Tabs,
		ActiveIndex: m.store.ActiveIndex,
		Mode:        m.store.Mode,
		Palette:     m.store.Palette,
		Alerts:      m.tracker.Snapshot(),
		Collapsed:   m.store.Collapsed,
	}
	segs, regions := m.renderer.Render(snap, m.width)
	m.line = render.Line(segs)
	m.regions = regions
}

func (m barModel) View() string {
	if !m.connected {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
		return style.Render(fmt.Sprintf(" %s connecting", m.spin.View()))
	}
	return m.line
}

// Global program reference for message passing from the delivery goroutine.
// The other globals are only touched from the tea loop, where the router
// callbacks and sync broadcaster run.
var (
	globalProgram *tea.Program
	busClient     *bus.Client
	syncBC        *statesync.Broadcaster
	barCfg        *config.Config
)

func publishCommand(cmd protocol.Command) {
	if busClient == nil {
		return
	}
	if err := busClient.Publish(protocol.ChannelCommands, cmd); err != nil {
		debugLog.Printf("Command publish failed: %v", err)
	}
}

// toggleCollapse flips the bar state, persists it as the seed for future
// instances, syncs it to peers, and asks the host to swap layouts.
func toggleCollapse(store *state.Store) {
	store.Collapsed = !store.Collapsed
	state.SaveCollapsed(store.Collapsed)
	syncBC.PublishToggle(store.Collapsed)

	layout := barCfg.Layouts.Expanded
	if store.Collapsed {
		layout = barCfg.Layouts.Collapsed
	}
	publishCommand(protocol.Command{Action: protocol.CmdSwitchLayout, Target: layout})
}

func main() {
	flag.Parse()

	if *sessionID == "" {
		*sessionID = os.Getenv("ZELLIJ_SESSION_NAME")
	}
	if *instanceID == "" {
		*instanceID = uuid.NewString()
	}

	if *debug {
		// Log to a file; stderr would corrupt the bar
		logPath := fmt.Sprintf("/tmp/zj-status-sidebar-%s.log", *instanceID)
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			debugLog = log.New(os.Stderr, "[sidebar] ", log.LstdFlags|log.Lmicroseconds)
		} else {
			debugLog = log.New(logFile, "[sidebar] ", log.LstdFlags|log.Lmicroseconds)
		}
	} else {
		debugLog = log.New(io.Discard, "", 0)
	}

	debugLog.Printf("Starting instance for session %s", *sessionID)

	lipgloss.SetColorProfile(termenv.ANSI256)

	cfg := config.LoadOrDefault()
	store := state.NewStore()
	store.Collapsed = state.LoadCollapsed()
	tracker := alerts.NewTracker(cfg.Alerts.ExpiryTicks)

	model := barModel{
		width:    80,
		spin:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		cfg:      cfg,
		store:    store,
		tracker:  tracker,
		renderer: render.New(cfg),
	}

	barCfg = cfg
	model.bc = statesync.New(*instanceID, func(raw []byte) {
		if busClient != nil {
			busClient.PublishRaw(protocol.ChannelSync, raw)
		}
	})
	syncBC = model.bc

	model.router = &input.Router{
		Store:   store,
		Tracker: tracker,
		OnSwitchTab: func(tabID int) {
			publishCommand(protocol.Command{Action: protocol.CmdSwitchTab, Target: strconv.Itoa(tabID)})
		},
		OnToggle: func() {
			toggleCollapse(store)
		},
		OnReady: func() {
			// One-time setup once the host grants permission: the bar pane
			// should not be focusable.
			publishCommand(protocol.Command{Action: protocol.CmdSetSelectable, Target: "false"})
			debugLog.Printf("Permission granted, bar live")
		},
	}

	p := tea.NewProgram(model, tea.WithMouseCellMotion())
	globalProgram = p

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		if p != nil {
			p.Send(tea.Quit())
		}
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
