package state

import (
	"os"
	"strings"

	"github.com/stephencookdev/zj-status-sidebar/pkg/paths"
)

// The collapsed flag is the only state persisted across sessions: it seeds
// a restored instance's toggle so the bar comes back the way it was left.
const toggleStateFile = "collapsed"

// LoadCollapsed reads the persisted toggle seed. A missing or unreadable
// file means expanded, the default.
func LoadCollapsed() bool {
	data, err := os.ReadFile(paths.StatePath(toggleStateFile))
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == "1"
}

// SaveCollapsed persists the toggle seed. Failures are ignored: persistence
// is best-effort and the sync protocol repairs divergence anyway.
func SaveCollapsed(collapsed bool) {
	if _, err := paths.EnsureStateDir(); err != nil {
		return
	}
	v := "0"
	if collapsed {
		v = "1"
	}
	os.WriteFile(paths.StatePath(toggleStateFile), []byte(v), 0644)
}
