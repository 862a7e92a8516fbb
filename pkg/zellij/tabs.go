// Package zellij shells out to the zellij CLI to read and drive tab state.
// The broker polls ListTabs on a timer and issues the action commands on
// behalf of instances.
package zellij

import (
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/stephencookdev/zj-status-sidebar/pkg/protocol"
)

// ansiEscapeRegex matches ANSI escape sequences
var ansiEscapeRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]|\x1b\].*?(?:\x07|\x1b\\)`)

func stripANSI(s string) string {
	return ansiEscapeRegex.ReplaceAllString(s, "")
}

// focusedTabRegex pulls the focused tab's name out of a dumped layout
var focusedTabRegex = regexp.MustCompile(`(?m)^\s*tab\s+name="((?:[^"\\]|\\.)*)"[^\n{]*\bfocus=true`)

func action(session string, args ...string) ([]byte, error) {
	full := make([]string, 0, len(args)+3)
	if session != "" {
		full = append(full, "--session", session)
	}
	full = append(full, "action")
	full = append(full, args...)
	out, err := exec.Command("zellij", full...).Output()
	if err != nil {
		return nil, fmt.Errorf("zellij action %s failed: %w", args[0], err)
	}
	return out, nil
}

// QueryTabNames returns tab names in position order
func QueryTabNames(session string) ([]string, error) {
	out, err := action(session, "query-tab-names")
	if err != nil {
		return nil, err
	}
	return parseTabNames(out), nil
}

func parseTabNames(out []byte) []string {
	var names []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		names = append(names, stripANSI(line))
	}
	return names
}

// FocusedTabName parses the focused tab out of the current layout dump. The
// query-tab-names action does not mark focus, so this is the only CLI route
// to the active tab.
func FocusedTabName(session string) (string, bool) {
	out, err := action(session, "dump-layout")
	if err != nil {
		return "", false
	}
	return parseFocusedTab(out)
}

func parseFocusedTab(layout []byte) (string, bool) {
	m := focusedTabRegex.FindSubmatch(layout)
	if m == nil {
		return "", false
	}
	name := strings.ReplaceAll(string(m[1]), `\"`, `"`)
	return name, true
}

// ListTabs combines tab names and focus into the wire tab list. Tab ids are
// 1-based positions; zellij's CLI exposes no stabler identifier.
func ListTabs(session string) ([]protocol.TabInfo, error) {
	names, err := QueryTabNames(session)
	if err != nil {
		return nil, err
	}
	focused, haveFocus := FocusedTabName(session)

	tabs := make([]protocol.TabInfo, 0, len(names))
	markedActive := false
	for i, name := range names {
		active := haveFocus && !markedActive && name == focused
		if active {
			markedActive = true
		}
		tabs = append(tabs, protocol.TabInfo{
			ID:       i + 1,
			Name:     name,
			Active:   active,
			Position: i,
		})
	}
	// Focus parse can miss (layout dumps change between releases); keep the
	// bar usable by assuming the first tab.
	if !markedActive && len(tabs) > 0 {
		tabs[0].Active = true
	}
	return tabs, nil
}

// GoToTab focuses a tab by 1-based position
func GoToTab(session string, position int) error {
	_, err := action(session, "go-to-tab", strconv.Itoa(position))
	return err
}

// RenameTab renames the focused tab
func RenameTab(session, name string) error {
	_, err := action(session, "rename-tab", name)
	return err
}

// NextSwapLayout advances to the next swap layout. The CLI cannot select a
// swap layout by name, so toggling between the expanded and collapsed bar
// layouts relies on them being adjacent in the layout file.
func NextSwapLayout(session string) error {
	_, err := action(session, "next-swap-layout")
	return err
}
