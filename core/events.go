package core

// Event types emitted after state-changing operations. The API layer owns
// the transport (SSE broadcast, cache invalidation); the core only emits.
const (
	EventCadetUpdated       = "cadet_updated"
	EventGradeUpdated       = "grade_updated"
	EventAttendanceMarked   = "attendance_marked"
	EventLedgerEntryAdded   = "ledger_entry_added"
	EventLedgerEntryRemoved = "ledger_entry_removed"
)

type Event struct {
	Type    string                 `json:"type"`
	CadetID string                 `json:"cadet_id,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// EventEmitter receives events from the core services. Emit must not block;
// implementations are expected to buffer or drop.
type EventEmitter interface {
	Emit(evt Event)
}

// NopEmitter discards all events. Useful in tests and CLI commands.
type NopEmitter struct{}

func (NopEmitter) Emit(Event) {}

// Emitters fans one event out to several emitters.
type Emitters []EventEmitter

func (es Emitters) Emit(evt Event) {
	for _, e := range es {
		e.Emit(evt)
	}
}
