package input

import (
	"testing"

	"github.com/stephencookdev/zj-status-sidebar/pkg/alerts"
	"github.com/stephencookdev/zj-status-sidebar/pkg/protocol"
	"github.com/stephencookdev/zj-status-sidebar/pkg/render"
	"github.com/stephencookdev/zj-status-sidebar/pkg/state"
)

func newTestRouter() (*Router, *state.Store, *alerts.Tracker) {
	store := state.NewStore()
	store.SetTabs([]protocol.TabInfo{
		{ID: 1, Name: "main", Active: true, Position: 0},
		{ID: 2, Name: "build", Position: 1},
		{ID: 3, Name: "logs", Position: 2},
	})
	tracker := alerts.NewTracker(5)
	return &Router{Store: store, Tracker: tracker}, store, tracker
}

func TestClickHitsTab(t *testing.T) {
	r, _, _ := newTestRouter()
	var switched int
	r.OnSwitchTab = func(id int) { switched = id }

	regions := []render.HitRegion{
		{Start: 0, End: 9, TabID: render.TargetToggle},
		{Start: 10, End: 18, TabID: 1},
		{Start: 19, End: 28, TabID: 2},
	}

	r.Click(19, regions)
	if switched != 2 {
		t.Fatalf("click at region start switched to %d, want 2", switched)
	}
	r.Click(17, regions)
	if switched != 1 {
		t.Fatalf("click inside region switched to %d, want 1", switched)
	}
}

func TestClickOnToggleRegion(t *testing.T) {
	r, _, _ := newTestRouter()
	toggled := 0
	r.OnToggle = func() { toggled++ }

	regions := []render.HitRegion{{Start: 0, End: 9, TabID: render.TargetToggle}}
	r.Click(4, regions)
	if toggled != 1 {
		t.Fatalf("toggle fired %d times, want 1", toggled)
	}
}

func TestClickOutsideRegionsIgnored(t *testing.T) {
	r, _, _ := newTestRouter()
	r.OnSwitchTab = func(int) { t.Fatal("switch fired for uncovered cell") }
	r.OnToggle = func() { t.Fatal("toggle fired for uncovered cell") }

	regions := []render.HitRegion{
		{Start: 0, End: 9, TabID: render.TargetToggle},
		{Start: 10, End: 18, TabID: 1},
	}
	r.Click(9, regions)  // gap between regions
	r.Click(18, regions) // End is exclusive
	r.Click(50, regions)
}

func TestScrollWrapsAround(t *testing.T) {
	r, store, _ := newTestRouter()
	var switched int
	r.OnSwitchTab = func(id int) { switched = id }

	r.Scroll(1)
	if switched != 2 {
		t.Fatalf("scroll down from tab 1 switched to %d, want 2", switched)
	}

	store.SetTabs([]protocol.TabInfo{
		{ID: 1, Name: "main", Position: 0},
		{ID: 2, Name: "build", Position: 1},
		{ID: 3, Name: "logs", Active: true, Position: 2},
	})
	r.Scroll(1)
	if switched != 1 {
		t.Fatalf("scroll down from last tab switched to %d, want wrap to 1", switched)
	}
	r.Scroll(-1)
	if switched != 2 {
		t.Fatalf("scroll up from last tab switched to %d, want 2", switched)
	}
}

func TestScrollWithNoTabs(t *testing.T) {
	r := &Router{Store: state.NewStore(), Tracker: alerts.NewTracker(5)}
	r.OnSwitchTab = func(int) { t.Fatal("switch fired with no tabs") }
	r.Scroll(1)
}

func TestPipeToggleCollapse(t *testing.T) {
	r, _, _ := newTestRouter()
	toggled := 0
	r.OnToggle = func() { toggled++ }

	changed := r.Pipe(protocol.PipeMessage{Name: protocol.PipeToggleCollapse})
	if toggled != 1 {
		t.Fatalf("toggle fired %d times, want 1", toggled)
	}
	if changed {
		t.Fatalf("toggle pipe reported alert change")
	}
}

func TestPipeTabAlertRecordsExitCode(t *testing.T) {
	r, _, tracker := newTestRouter()

	changed := r.Pipe(protocol.PipeMessage{
		Name: protocol.PipeCLITabAlert,
		Args: map[string]string{"tab": "2", "exit_code": "1"},
	})
	if !changed {
		t.Fatalf("tab_alert did not report a change")
	}
	a, ok := tracker.Get(2)
	if !ok || a.Status != alerts.Failure {
		t.Fatalf("tab 2 alert = %+v, ok=%v, want failure", a, ok)
	}

	r.Pipe(protocol.PipeMessage{
		Name: protocol.PipeCLITabAlert,
		Args: map[string]string{"tab": "1", "exit_code": "0"},
	})
	a, _ = tracker.Get(1)
	if a.Status != alerts.Success {
		t.Fatalf("exit code 0 recorded as %q, want success", a.Status)
	}
}

func TestPipeTabAlertBadArgsDropped(t *testing.T) {
	r, _, tracker := newTestRouter()

	cases := []map[string]string{
		{"tab": "99", "exit_code": "1"},     // unknown tab
		{"tab": "2", "exit_code": "boom"},   // non-numeric code
		{"tab_name": "nope", "exit_code": "1"},
		{},
	}
	for _, args := range cases {
		if r.Pipe(protocol.PipeMessage{Name: protocol.PipeCLITabAlert, Args: args}) {
			t.Fatalf("bad args %v reported a change", args)
		}
	}
	if !tracker.Empty() {
		t.Fatalf("bad args left alerts behind")
	}
}

func TestPipeNotifyByName(t *testing.T) {
	r, _, tracker := newTestRouter()

	changed := r.Pipe(protocol.PipeMessage{
		Name: protocol.PipeCLINotify,
		Args: map[string]string{"tab_name": "logs"},
	})
	if !changed {
		t.Fatalf("notify did not report a change")
	}
	a, ok := tracker.Get(3)
	if !ok || a.Status != alerts.Pending {
		t.Fatalf("notify by name gave %+v, ok=%v, want pending on tab 3", a, ok)
	}
}

func TestPipeNotifyByPosition(t *testing.T) {
	r, _, tracker := newTestRouter()

	// "2" matches tab id 2 directly here; positions are the fallback
	r.Pipe(protocol.PipeMessage{
		Name: protocol.PipeCLINotify,
		Args: map[string]string{"tab": "2"},
	})
	if _, ok := tracker.Get(2); !ok {
		t.Fatalf("notify by number missed tab 2")
	}
}

func TestPipeUnknownNameIgnored(t *testing.T) {
	r, _, tracker := newTestRouter()
	if r.Pipe(protocol.PipeMessage{Name: "mystery", Args: map[string]string{"tab": "1"}}) {
		t.Fatalf("unknown pipe name reported a change")
	}
	if !tracker.Empty() {
		t.Fatalf("unknown pipe name changed alerts")
	}
}

func TestPermissionResultIdempotent(t *testing.T) {
	r, store, _ := newTestRouter()
	ready := 0
	r.OnReady = func() { ready++ }

	r.PermissionResult(false)
	if store.Ready || ready != 0 {
		t.Fatalf("denial marked the store ready")
	}

	r.PermissionResult(true)
	r.PermissionResult(true)
	r.PermissionResult(true)
	if !store.Ready {
		t.Fatalf("grant did not mark the store ready")
	}
	if ready != 1 {
		t.Fatalf("OnReady fired %d times, want 1", ready)
	}
}
