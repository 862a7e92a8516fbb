package state

import (
	"testing"

	"github.com/stephencookdev/zj-status-sidebar/pkg/paths"
	"github.com/stephencookdev/zj-status-sidebar/pkg/protocol"
)

func testTabs() []protocol.TabInfo {
	return []protocol.TabInfo{
		{ID: 1, Name: "main", Active: true, Position: 0},
		{ID: 2, Name: "build", Position: 1},
		{ID: 5, Name: "logs", Position: 2},
	}
}

func TestSetTabsFindsActive(t *testing.T) {
	s := NewStore()
	id, ok := s.SetTabs(testTabs())
	if !ok || id != 1 {
		t.Fatalf("SetTabs() active = (%d, %v), want (1, true)", id, ok)
	}
	if s.ActiveIndex != 0 {
		t.Fatalf("ActiveIndex = %d, want 0", s.ActiveIndex)
	}
}

func TestSetTabsNoActive(t *testing.T) {
	s := NewStore()
	tabs := testTabs()
	tabs[0].Active = false
	if _, ok := s.SetTabs(tabs); ok {
		t.Fatalf("SetTabs() found an active tab in a list with none")
	}
	if s.ActiveIndex != -1 {
		t.Fatalf("ActiveIndex = %d, want -1", s.ActiveIndex)
	}
}

func TestResolveTabByName(t *testing.T) {
	s := NewStore()
	s.SetTabs(testTabs())

	if id, ok := s.ResolveTab("", "main"); !ok || id != 1 {
		t.Fatalf("ResolveTab(name=main) = (%d, %v), want (1, true)", id, ok)
	}
	if _, ok := s.ResolveTab("", "unknown"); ok {
		t.Fatalf("ResolveTab(name=unknown) resolved, want drop")
	}
}

func TestResolveTabByNumber(t *testing.T) {
	s := NewStore()
	s.SetTabs(testTabs())

	// Matches a tab id directly
	if id, ok := s.ResolveTab("5", ""); !ok || id != 5 {
		t.Fatalf("ResolveTab(tab=5) = (%d, %v), want id 5", id, ok)
	}
	// Falls back to 1-based position
	if id, ok := s.ResolveTab("3", ""); !ok || id != 5 {
		t.Fatalf("ResolveTab(tab=3) = (%d, %v), want position 3 -> id 5", id, ok)
	}
	if _, ok := s.ResolveTab("99", ""); ok {
		t.Fatalf("ResolveTab(tab=99) resolved, want drop")
	}
	if _, ok := s.ResolveTab("nope", ""); ok {
		t.Fatalf("ResolveTab(tab=nope) resolved, want drop")
	}
}

func TestNeighborWrapsAround(t *testing.T) {
	s := NewStore()
	tabs := testTabs()
	tabs[0].Active = false
	tabs[2].Active = true
	s.SetTabs(tabs)

	if id, ok := s.Neighbor(1); !ok || id != 1 {
		t.Fatalf("Neighbor(+1) from last tab = (%d, %v), want wrap to 1", id, ok)
	}
	if id, ok := s.Neighbor(-1); !ok || id != 2 {
		t.Fatalf("Neighbor(-1) = (%d, %v), want 2", id, ok)
	}
}

func TestNeighborWrapsBackward(t *testing.T) {
	s := NewStore()
	s.SetTabs(testTabs()) // active is first tab

	if id, ok := s.Neighbor(-1); !ok || id != 5 {
		t.Fatalf("Neighbor(-1) from first tab = (%d, %v), want wrap to 5", id, ok)
	}
}

func TestNeighborEmptyList(t *testing.T) {
	s := NewStore()
	if _, ok := s.Neighbor(1); ok {
		t.Fatalf("Neighbor on empty tab list should not resolve")
	}
}

func TestToggleSeedRoundTrip(t *testing.T) {
	t.Setenv("ZJ_STATUS_STATE_DIR", t.TempDir())
	paths.ResetForTest()

	if LoadCollapsed() {
		t.Fatalf("LoadCollapsed() with no state file = true, want false")
	}
	SaveCollapsed(true)
	if !LoadCollapsed() {
		t.Fatalf("LoadCollapsed() after SaveCollapsed(true) = false")
	}
	SaveCollapsed(false)
	if LoadCollapsed() {
		t.Fatalf("LoadCollapsed() after SaveCollapsed(false) = true")
	}
}
