// Package alerts tracks per-tab command-result indicators. Alerts are keyed
// by tab id, blink on each timer tick, and expire after a fixed number of
// ticks. The tracker trusts tab ids supplied by events; ids that no longer
// exist are pruned when the tab list refreshes.
package alerts

import "time"

// Status classifies an alert
type Status string

const (
	Success Status = "success"
	Failure Status = "failure"
	Pending Status = "pending"
)

// Alert is the indicator state for one tab. BlinkOn alternates every tick
// to animate the indicator; Age counts ticks since creation.
type Alert struct {
	Status    Status `json:"status"`
	BlinkOn   bool   `json:"blink_on"`
	Age       int    `json:"age"`
	CreatedAt int64  `json:"created_at"` // unix milliseconds
}

// Tracker owns the alert map. It is only ever touched from the event loop,
// so it needs no locking.
type Tracker struct {
	alerts      map[int]Alert
	expiryTicks int
}

func NewTracker(expiryTicks int) *Tracker {
	if expiryTicks <= 0 {
		expiryTicks = 5
	}
	return &Tracker{
		alerts:      make(map[int]Alert),
		expiryTicks: expiryTicks,
	}
}

// RecordExitCode inserts or overwrites the alert for a tab: Success for exit
// code 0, Failure otherwise. The blink phase starts on so the indicator is
// visible immediately.
func (t *Tracker) RecordExitCode(tabID, exitCode int) {
	status := Failure
	if exitCode == 0 {
		status = Success
	}
	t.alerts[tabID] = Alert{
		Status:    status,
		BlinkOn:   true,
		CreatedAt: time.Now().UnixMilli(),
	}
}

// Notify surfaces a Pending alert for a tab (CLI notification path)
func (t *Tracker) Notify(tabID int) {
	t.alerts[tabID] = Alert{
		Status:    Pending,
		BlinkOn:   true,
		CreatedAt: time.Now().UnixMilli(),
	}
}

// Tick advances the animation one period: every alert's blink phase flips
// and alerts past the expiry threshold are removed. Returns true if any
// alerts remain, which is what keeps the timer armed.
func (t *Tracker) Tick() bool {
	for id, a := range t.alerts {
		a.BlinkOn = !a.BlinkOn
		a.Age++
		if a.Age >= t.expiryTicks {
			delete(t.alerts, id)
			continue
		}
		t.alerts[id] = a
	}
	return len(t.alerts) > 0
}

// Get returns the alert for a tab id, if any
func (t *Tracker) Get(tabID int) (Alert, bool) {
	a, ok := t.alerts[tabID]
	return a, ok
}

// Clear removes the alert for a tab id. Used when the tab becomes active:
// the user has seen the result.
func (t *Tracker) Clear(tabID int) {
	delete(t.alerts, tabID)
}

// Empty reports whether no alerts are tracked
func (t *Tracker) Empty() bool {
	return len(t.alerts) == 0
}

// PruneTo drops alerts whose tab id is not in keep. Called on every tab
// list refresh; this is what reclaims memory for closed tabs.
func (t *Tracker) PruneTo(keep []int) {
	keepSet := make(map[int]bool, len(keep))
	for _, id := range keep {
		keepSet[id] = true
	}
	for id := range t.alerts {
		if !keepSet[id] {
			delete(t.alerts, id)
		}
	}
}

// Snapshot returns a copy of the alert map for rendering or broadcast
func (t *Tracker) Snapshot() map[int]Alert {
	out := make(map[int]Alert, len(t.alerts))
	for id, a := range t.alerts {
		out[id] = a
	}
	return out
}

// Replace swaps in a full alert map received from a sibling instance
func (t *Tracker) Replace(m map[int]Alert) {
	t.alerts = make(map[int]Alert, len(m))
	for id, a := range m {
		t.alerts[id] = a
	}
}
