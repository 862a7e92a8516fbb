// Package state holds the single mutable aggregate each instance owns. The
// event loop is the only writer; the renderer reads a snapshot. No locking
// is needed because everything happens on the one event-handling goroutine.
package state

import (
	"strconv"

	"github.com/stephencookdev/zj-status-sidebar/pkg/protocol"
)

// Store is the per-instance state aggregate. The tab list is replaced
// wholesale on every tab_update event, never diffed, so a stale tab id can
// survive at most one event cycle.
type Store struct {
	Tabs        []protocol.TabInfo
	ActiveIndex int // index into Tabs of the active tab, -1 if unknown
	Mode        string
	Palette     protocol.Palette
	Collapsed   bool
	Ready       bool // set once by the permission result
}

func NewStore() *Store {
	return &Store{ActiveIndex: -1, Mode: "normal"}
}

// SetTabs replaces the tab list and recomputes the active index. Returns
// the id of the newly active tab and whether one was found.
func (s *Store) SetTabs(tabs []protocol.TabInfo) (activeID int, ok bool) {
	s.Tabs = tabs
	s.ActiveIndex = -1
	for i, t := range tabs {
		if t.Active {
			s.ActiveIndex = i
			return t.ID, true
		}
	}
	return 0, false
}

// TabIDs returns the ids of all current tabs, used to prune dead alerts
func (s *Store) TabIDs() []int {
	ids := make([]int, 0, len(s.Tabs))
	for _, t := range s.Tabs {
		ids = append(ids, t.ID)
	}
	return ids
}

// ActiveTab returns the active tab, if one is known
func (s *Store) ActiveTab() (protocol.TabInfo, bool) {
	if s.ActiveIndex < 0 || s.ActiveIndex >= len(s.Tabs) {
		return protocol.TabInfo{}, false
	}
	return s.Tabs[s.ActiveIndex], true
}

// ResolveTab maps a CLI argument to a tab id. A numeric argument matches a
// tab id first, then a 1-based position; a name argument matches the first
// tab with that exact name. Unresolvable arguments return ok=false and the
// caller drops the request silently.
func (s *Store) ResolveTab(tabArg, nameArg string) (int, bool) {
	if tabArg != "" {
		n, err := strconv.Atoi(tabArg)
		if err != nil {
			return 0, false
		}
		for _, t := range s.Tabs {
			if t.ID == n {
				return t.ID, true
			}
		}
		for _, t := range s.Tabs {
			if t.Position+1 == n {
				return t.ID, true
			}
		}
		return 0, false
	}
	if nameArg != "" {
		for _, t := range s.Tabs {
			if t.Name == nameArg {
				return t.ID, true
			}
		}
	}
	return 0, false
}

// Neighbor returns the id of the tab one position away from the active tab,
// wrapping around at both ends. delta is +1 or -1.
func (s *Store) Neighbor(delta int) (int, bool) {
	n := len(s.Tabs)
	if n == 0 || s.ActiveIndex < 0 {
		return 0, false
	}
	idx := (s.ActiveIndex + delta) % n
	if idx < 0 {
		idx += n
	}
	return s.Tabs[idx].ID, true
}
