// Package render turns a state snapshot into one horizontal line of styled
// segments plus the mouse-hit regions covering each tab label. All width
// arithmetic is in terminal cells and saturates at zero; labels are clipped
// on cell boundaries before styling so an escape sequence or multi-byte
// character is never cut mid-sequence. For any width >= 0 the total
// rendered width never exceeds the available width.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/stephencookdev/zj-status-sidebar/pkg/alerts"
	"github.com/stephencookdev/zj-status-sidebar/pkg/config"
	"github.com/stephencookdev/zj-status-sidebar/pkg/protocol"
)

// TargetToggle is the hit-region target for the title/toggle area
const TargetToggle = -1

// Segment is one styled run of the status line
type Segment struct {
	Text  string // styled, ready to print
	Width int    // display cells, measured before styling
}

// HitRegion maps a cell range [Start, End) to a click target. Regions cover
// exactly the cells of each rendered tab label; clicks outside any region
// are ignored by the input router.
type HitRegion struct {
	Start int
	End   int
	TabID int // TargetToggle for the title area
}

// Snapshot is the read-only view of instance state the renderer consumes.
// It is rebuilt for every render; the renderer keeps no state between calls.
type Snapshot struct {
	Tabs        []protocol.TabInfo
	ActiveIndex int
	Mode        string
	Palette     protocol.Palette
	Alerts      map[int]alerts.Alert
	Collapsed   bool
}

type Renderer struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Renderer {
	return &Renderer{cfg: cfg}
}

// Render lays out the status line for the given width. Collapsed mode, or
// any width too small for per-tab composition, degrades to the minimal
// single-glyph representation instead of failing.
func (r *Renderer) Render(snap Snapshot, width int) ([]Segment, []HitRegion) {
	if width <= 0 {
		return nil, nil
	}
	if snap.Collapsed {
		return r.minimal(width)
	}

	title := fmt.Sprintf("%s %s ", r.cfg.Bar.CollapseGlyph, strings.ToUpper(snap.Mode))
	titleW := runewidth.StringWidth(title)

	// Below this there is no room for even one truncated tab; fall back to
	// the minimal representation (the documented 3-6 cell failure mode).
	if width < titleW+3 {
		return r.minimal(width)
	}

	sep := r.cfg.Bar.Separator
	sepW := runewidth.StringWidth(sep)
	ind := r.cfg.Bar.TruncationIndicator
	indW := runewidth.StringWidth(ind)

	segments := []Segment{{Text: r.titleStyle(snap).Render(title), Width: titleW}}
	regions := []HitRegion{{Start: 0, End: titleW, TabID: TargetToggle}}
	cursor := titleW
	remaining := sat(width - titleW)

	sepStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(r.fg(snap))).
		Background(lipgloss.Color(r.bg(snap)))

	for i, tab := range snap.Tabs {
		label := fmt.Sprintf(" %d %s ", tab.Position+1, tab.Name)
		labelW := runewidth.StringWidth(label)
		cost := sepW + labelW

		// Reserve room for the truncation indicator unless this is the
		// last tab, which may use the full remaining width.
		limit := remaining
		if i < len(snap.Tabs)-1 {
			limit = sat(remaining - indW)
		}

		if cost <= limit {
			segments = append(segments, Segment{Text: sepStyle.Render(sep), Width: sepW})
			cursor += sepW
			segments = append(segments, Segment{Text: r.tabStyle(snap, tab).Render(label), Width: labelW})
			regions = append(regions, HitRegion{Start: cursor, End: cursor + labelW, TabID: tab.ID})
			cursor += labelW
			remaining = sat(remaining - cost)
			continue
		}

		// This tab does not fit whole: emit as much of it as fits on cell
		// boundaries, then the indicator, then stop.
		avail := sat(remaining - sepW - indW)
		if avail >= 2 {
			clipped := runewidth.Truncate(label, avail, "")
			clippedW := runewidth.StringWidth(clipped)
			if clippedW > 0 {
				segments = append(segments, Segment{Text: sepStyle.Render(sep), Width: sepW})
				cursor += sepW
				segments = append(segments, Segment{Text: r.tabStyle(snap, tab).Render(clipped), Width: clippedW})
				regions = append(regions, HitRegion{Start: cursor, End: cursor + clippedW, TabID: tab.ID})
				cursor += clippedW
				remaining = sat(remaining - sepW - clippedW)
			}
		}
		if remaining > 0 {
			clippedInd := runewidth.Truncate(ind, remaining, "")
			if w := runewidth.StringWidth(clippedInd); w > 0 {
				segments = append(segments, Segment{Text: sepStyle.Render(clippedInd), Width: w})
			}
		}
		break
	}

	return segments, regions
}

// minimal renders the single-glyph representation used when collapsed or
// when the width cannot hold per-tab composition.
func (r *Renderer) minimal(width int) ([]Segment, []HitRegion) {
	glyph := runewidth.Truncate(r.cfg.Bar.CollapseGlyph, width, "")
	w := runewidth.StringWidth(glyph)
	if w == 0 {
		return nil, nil
	}
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color(r.cfg.Theme.Fg)).
		Background(lipgloss.Color(r.cfg.Theme.Bg))
	return []Segment{{Text: style.Render(glyph), Width: w}},
		[]HitRegion{{Start: 0, End: w, TabID: TargetToggle}}
}

// Line concatenates rendered segments into the printable status line
func Line(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Width returns the total cell width of rendered segments
func Width(segments []Segment) int {
	total := 0
	for _, s := range segments {
		total += s.Width
	}
	return total
}

func (r *Renderer) titleStyle(snap Snapshot) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(r.cfg.Theme.ActiveFg)).
		Background(lipgloss.Color(r.modeColor(snap))).
		Bold(true)
}

func (r *Renderer) tabStyle(snap Snapshot, tab protocol.TabInfo) lipgloss.Style {
	baseFg := r.fg(snap)
	baseBg := r.bg(snap)
	if tab.Active {
		baseFg = r.cfg.Theme.ActiveFg
		baseBg = r.cfg.Theme.ActiveBg
	}

	// Alert styling wins over active/inactive. The blink phase swaps the
	// alert color between background and foreground each tick.
	if alert, ok := snap.Alerts[tab.ID]; ok {
		alertColor := r.alertColor(snap, alert.Status)
		style := lipgloss.NewStyle().Bold(true)
		if alert.BlinkOn {
			return style.
				Foreground(lipgloss.Color(baseFg)).
				Background(lipgloss.Color(alertColor))
		}
		return style.
			Foreground(lipgloss.Color(alertColor)).
			Background(lipgloss.Color(baseBg))
	}

	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color(baseFg)).
		Background(lipgloss.Color(baseBg))
	if tab.Active {
		return style.Bold(true)
	}
	return style.Italic(true)
}

func (r *Renderer) alertColor(snap Snapshot, status alerts.Status) string {
	switch status {
	case alerts.Success:
		return pick(snap.Palette.Green, r.cfg.Alerts.SuccessColor)
	case alerts.Failure:
		return pick(snap.Palette.Red, r.cfg.Alerts.FailureColor)
	default:
		return pick(snap.Palette.Orange, r.cfg.Alerts.PendingColor)
	}
}

func (r *Renderer) modeColor(snap Snapshot) string {
	switch strings.ToLower(snap.Mode) {
	case "locked":
		return pick(snap.Palette.Magenta, r.cfg.Theme.LockedMode)
	case "normal":
		return pick(snap.Palette.Green, r.cfg.Theme.NormalMode)
	default:
		return pick(snap.Palette.Orange, r.cfg.Theme.OtherMode)
	}
}

func (r *Renderer) fg(snap Snapshot) string {
	return pick(snap.Palette.Fg, r.cfg.Theme.Fg)
}

func (r *Renderer) bg(snap Snapshot) string {
	return pick(snap.Palette.Bg, r.cfg.Theme.Bg)
}

func pick(palette, fallback string) string {
	if palette != "" {
		return palette
	}
	return fallback
}

// sat clamps to zero so width arithmetic can never go negative
func sat(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
