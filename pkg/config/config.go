package config

// Config holds all user-tunable settings for the status bar. Values left
// empty or zero in the YAML file are filled in by applyDefaults.
type Config struct {
	Alerts  Alerts  `yaml:"alerts"`
	Bar     Bar     `yaml:"bar"`
	Layouts Layouts `yaml:"layouts"`
	Theme   Theme   `yaml:"theme"`
	Names   Names   `yaml:"names"`
}

// Alerts controls the per-tab command-result indicators
type Alerts struct {
	ExpiryTicks  int    `yaml:"expiry_ticks"`  // Ticks (1s each) before an alert is removed
	SuccessColor string `yaml:"success_color"` // Exit code 0 (default: palette green)
	FailureColor string `yaml:"failure_color"` // Nonzero exit code (default: palette red)
	PendingColor string `yaml:"pending_color"` // CLI notification (default: palette orange)
}

// Bar controls the status line layout glyphs
type Bar struct {
	Separator           string `yaml:"separator"`            // Between tab labels (default: single space)
	TruncationIndicator string `yaml:"truncation_indicator"` // Marks dropped tabs (default: "…")
	CollapseGlyph       string `yaml:"collapse_glyph"`       // Collapsed/minimal representation (default: "▐")
}

// Layouts names the two host swap layouts the toggle requests. The plugin
// cannot resize its own pane; it only asks the host to switch layouts.
type Layouts struct {
	Expanded  string `yaml:"expanded"`
	Collapsed string `yaml:"collapsed"`
}

// Theme holds fallback colors used when the host palette omits a field
type Theme struct {
	Fg         string `yaml:"fg"`
	Bg         string `yaml:"bg"`
	ActiveFg   string `yaml:"active_fg"`
	ActiveBg   string `yaml:"active_bg"`
	NormalMode string `yaml:"normal_mode"` // Mode segment bg in Normal mode
	LockedMode string `yaml:"locked_mode"` // Mode segment bg in Locked mode
	OtherMode  string `yaml:"other_mode"`  // Mode segment bg in any other mode
}

// Names controls automatic naming of unnamed tabs
type Names struct {
	AutoRename bool `yaml:"auto_rename"`
}
