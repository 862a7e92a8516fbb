// Package statesync keeps independently running instances eventually
// consistent without shared memory. State is propagated as versioned,
// JSON-serialized payloads over the host's instance-to-instance channel;
// each payload kind carries a monotonic sequence number and application is
// last-writer-wins, so messages may arrive late, duplicated, or never.
package statesync

import (
	"encoding/json"
	"time"

	"github.com/stephencookdev/zj-status-sidebar/pkg/alerts"
)

// Kind discriminates sync payloads. Each kind has its own sequence space.
type Kind string

const (
	KindToggle    Kind = "sync-toggle"
	KindTabAlerts Kind = "sync-tab-alerts"
)

// Payload is the wire format for cross-instance sync. Human-readable JSON
// on purpose: it shows up in debug logs.
type Payload struct {
	Kind      Kind                 `json:"kind"`
	Seq       uint64               `json:"seq"`
	Instance  string               `json:"instance"`
	Collapsed *bool                `json:"collapsed,omitempty"`
	Alerts    map[int]alerts.Alert `json:"alerts,omitempty"`
}

// Applied is the result of successfully merging an incoming payload
type Applied struct {
	Kind      Kind
	Collapsed bool
	Alerts    map[int]alerts.Alert
}

// Broadcaster assigns sequence numbers at publish time and applies incoming
// payloads idempotently. Sequence numbers are seeded from the wall clock so
// concurrent publishers need no coordination; ties are broken by instance id
// ordering, which is arbitrary but the same on every instance.
type Broadcaster struct {
	instance     string
	counter      uint64
	lastSeq      map[Kind]uint64
	lastInstance map[Kind]string
	send         func(raw []byte)
}

// New creates a broadcaster for the given instance id. send is invoked with
// the serialized payload for every publish; it must not block.
func New(instance string, send func(raw []byte)) *Broadcaster {
	return &Broadcaster{
		instance:     instance,
		counter:      uint64(time.Now().UnixMilli()),
		lastSeq:      make(map[Kind]uint64),
		lastInstance: make(map[Kind]string),
		send:         send,
	}
}

// PublishToggle broadcasts the collapsed/expanded flag
func (b *Broadcaster) PublishToggle(collapsed bool) {
	v := collapsed
	b.publish(Payload{Kind: KindToggle, Collapsed: &v})
}

// PublishAlerts broadcasts the full alert map so late-started instances can
// catch up on alerts raised before they existed.
func (b *Broadcaster) PublishAlerts(m map[int]alerts.Alert) {
	b.publish(Payload{Kind: KindTabAlerts, Alerts: m})
}

func (b *Broadcaster) publish(p Payload) {
	b.counter++
	p.Seq = b.counter
	p.Instance = b.instance

	// Record our own write so a stale echo can't roll us back
	b.lastSeq[p.Kind] = p.Seq
	b.lastInstance[p.Kind] = p.Instance

	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if b.send != nil {
		b.send(raw)
	}
}

// Apply merges an incoming serialized payload. Malformed or unknown
// payloads are ignored. A payload is applied only if it is strictly newer
// than the last applied one for its kind; re-delivery of the same sequence
// is a no-op. Returns the merged state and whether anything was applied.
func (b *Broadcaster) Apply(raw []byte) (Applied, bool) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Applied{}, false
	}
	switch p.Kind {
	case KindToggle:
		if p.Collapsed == nil {
			return Applied{}, false
		}
	case KindTabAlerts:
		// An empty alert map is a valid broadcast
	default:
		return Applied{}, false
	}

	// Keep our publish counter ahead of everything seen, or our next write
	// would lose last-writer-wins to history.
	if p.Seq > b.counter {
		b.counter = p.Seq
	}

	if !b.newer(p) {
		return Applied{}, false
	}
	b.lastSeq[p.Kind] = p.Seq
	b.lastInstance[p.Kind] = p.Instance

	out := Applied{Kind: p.Kind}
	if p.Collapsed != nil {
		out.Collapsed = *p.Collapsed
	}
	out.Alerts = p.Alerts
	return out, true
}

// newer implements the last-writer-wins order: higher sequence wins, equal
// sequence falls back to instance id ordering.
func (b *Broadcaster) newer(p Payload) bool {
	last, seen := b.lastSeq[p.Kind]
	if !seen {
		return true
	}
	if p.Seq != last {
		return p.Seq > last
	}
	return p.Instance > b.lastInstance[p.Kind]
}
