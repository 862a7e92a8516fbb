// Package input maps clicks, scrolls, and pipe messages onto state changes.
// The router owns no state of its own; it translates raw input into calls on
// the store and tracker and fires callbacks for actions that leave the
// process (tab switches, layout toggles).
package input

import (
	"strconv"

	"github.com/stephencookdev/zj-status-sidebar/pkg/alerts"
	"github.com/stephencookdev/zj-status-sidebar/pkg/protocol"
	"github.com/stephencookdev/zj-status-sidebar/pkg/render"
	"github.com/stephencookdev/zj-status-sidebar/pkg/state"
)

// Router dispatches user input. Callbacks may be nil, in which case the
// corresponding action is dropped.
type Router struct {
	Store   *state.Store
	Tracker *alerts.Tracker

	OnSwitchTab func(tabID int)
	OnToggle    func()
	OnReady     func()
}

// Click resolves a column against the hit regions from the last render.
// Clicks on cells no region covers are ignored.
func (r *Router) Click(col int, regions []render.HitRegion) {
	for _, reg := range regions {
		if col < reg.Start || col >= reg.End {
			continue
		}
		if reg.TabID == render.TargetToggle {
			if r.OnToggle != nil {
				r.OnToggle()
			}
		} else if r.OnSwitchTab != nil {
			r.OnSwitchTab(reg.TabID)
		}
		return
	}
}

// Scroll moves the active tab one position in either direction, wrapping
// around at both ends of the tab list.
func (r *Router) Scroll(delta int) {
	id, ok := r.Store.Neighbor(delta)
	if !ok {
		return
	}
	if r.OnSwitchTab != nil {
		r.OnSwitchTab(id)
	}
}

// Pipe handles a named message from the CLI channel. It reports whether the
// message changed alert state, which tells the caller a re-render and a sync
// broadcast are due. Unknown names and unresolvable targets are dropped.
func (r *Router) Pipe(msg protocol.PipeMessage) bool {
	switch msg.Name {
	case protocol.PipeToggleCollapse:
		if r.OnToggle != nil {
			r.OnToggle()
		}
		return false

	case protocol.PipeCLITabAlert:
		id, ok := r.Store.ResolveTab(msg.Args["tab"], msg.Args["tab_name"])
		if !ok {
			return false
		}
		code, err := strconv.Atoi(msg.Args["exit_code"])
		if err != nil {
			return false
		}
		r.Tracker.RecordExitCode(id, code)
		return true

	case protocol.PipeCLINotify:
		id, ok := r.Store.ResolveTab(msg.Args["tab"], msg.Args["tab_name"])
		if !ok {
			return false
		}
		r.Tracker.Notify(id)
		return true
	}
	return false
}

// PermissionResult records the host's permission grant. Repeat results are
// no-ops; a denial leaves the instance in its pre-grant state.
func (r *Router) PermissionResult(granted bool) {
	if !granted || r.Store.Ready {
		return
	}
	r.Store.Ready = true
	if r.OnReady != nil {
		r.OnReady()
	}
}
