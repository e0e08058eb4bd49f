package leasemanagement

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultHolder = "Grandma"

	// ISOLayout matches the millisecond-precision UTC form persisted in
	// documents, e.g. 2024-01-01T11:00:00.000Z.
	ISOLayout = "2006-01-02T15:04:05.000Z"
)

// Epoch is the expiry of a lease nobody ever took.
var Epoch = time.Unix(0, 0).UTC()

// Instants outside [MinInstant, MaxInstant] do not fit the four-digit year of
// ISOLayout and are clamped to it.
var (
	MinInstant = time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC)
	MaxInstant = time.Date(9999, 12, 31, 23, 59, 59, 999_000_000, time.UTC)
)

var acceptedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// LeaseState records who holds the shared account and until when.
type LeaseState struct {
	Holder  string
	EndedAt time.Time
}

// Document is the persisted form of a LeaseState.
type Document struct {
	Holder  string `json:"holder"`
	EndedAt string `json:"endedAt"`
}

// NewLeaseState returns the state of a lease that was never taken: default
// holder, already expired.
func NewLeaseState() *LeaseState {
	return &LeaseState{
		Holder:  DefaultHolder,
		EndedAt: Epoch,
	}
}

// CanAccess reports whether requester may use the account at now. The holder
// always may; anyone else only once the lease has strictly expired.
func (s *LeaseState) CanAccess(requester string, now time.Time) bool {
	if requester == s.Holder {
		return true
	}
	return s.EndedAt.Before(now)
}

// Active reports whether the lease is still running at now.
func (s *LeaseState) Active(now time.Time) bool {
	return s.EndedAt.After(now)
}

// AccessFor moves the expiry to startedAt plus sessionMinutes. Malformed
// session lengths fall back to DefaultSessionMinutes.
func (s *LeaseState) AccessFor(sessionMinutes any, startedAt time.Time) {
	minutes := coerceSessionMinutes(sessionMinutes)
	s.EndedAt = clampInstant(startedAt.Add(minutesToDuration(minutes)))
}

func (s *LeaseState) Serialize() Document {
	return Document{
		Holder:  s.Holder,
		EndedAt: clampInstant(s.EndedAt).Format(ISOLayout),
	}
}

// Marshal renders the persisted document, indented the way it is stored.
func (s *LeaseState) Marshal() ([]byte, error) {
	return json.MarshalIndent(s.Serialize(), "", "  ")
}

func (s *LeaseState) String() string {
	return fmt.Sprintf("%v until %v", s.Holder, s.Serialize().EndedAt)
}

// ShapeError reports a document that is valid JSON but not a lease.
type ShapeError struct {
	Field  string
	Reason string
}

func (e *ShapeError) Error() string {
	if e.Field == "" {
		return "invalid lease document: " + e.Reason
	}
	return fmt.Sprintf("invalid lease document field %q: %v", e.Field, e.Reason)
}

// Unmarshal decodes raw document bytes into a LeaseState. JSON syntax errors
// are returned as they come from encoding/json.
func Unmarshal(data []byte) (*LeaseState, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, err
	}

	raw, ok := value.(map[string]any)
	if !ok {
		return nil, &ShapeError{Reason: fmt.Sprintf("expected an object, got %T", value)}
	}

	return Parse(raw)
}

// Parse builds a LeaseState from a decoded document. Legacy documents are
// migrated first; unknown fields are ignored.
func Parse(raw map[string]any) (*LeaseState, error) {
	raw = migrateLegacy(raw)

	state := NewLeaseState()

	switch holder := raw["holder"].(type) {
	case nil:
	case string:
		state.Holder = holder
	default:
		return nil, &ShapeError{Field: "holder", Reason: fmt.Sprintf("expected a string, got %T", holder)}
	}

	state.EndedAt = parseInstant(raw["endedAt"])

	return state, nil
}

// parseInstant reads an ISO-8601 string, falling back to Epoch for anything
// missing or unreadable.
func parseInstant(value any) time.Time {
	text, ok := value.(string)
	if !ok {
		return Epoch
	}

	text = strings.TrimSpace(text)
	for _, layout := range acceptedLayouts {
		if instant, err := time.Parse(layout, text); err == nil {
			return clampInstant(instant)
		}
	}

	return Epoch
}

func clampInstant(instant time.Time) time.Time {
	instant = instant.UTC()
	switch {
	case instant.Before(MinInstant):
		return MinInstant
	case instant.After(MaxInstant):
		return MaxInstant
	}
	return instant.Truncate(time.Millisecond)
}
