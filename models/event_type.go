package models

import "strings"

// EventType selects which of the two parallel table sets an operation
// targets: the wedding itself or the "chá de panela" (kitchen shower).
type EventType string

const (
	EventCasamento EventType = "casamento"
	EventChaPanela EventType = "cha-panela"
)

// NormalizeEventType accepts the values the frontend may send
// (case-insensitive, underscore variant included) and maps them onto a
// known event type.
func NormalizeEventType(raw string) (EventType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "casamento":
		return EventCasamento, true
	case "cha-panela", "cha_panela":
		return EventChaPanela, true
	}
	return "", false
}

func (t EventType) GiftTable() string {
	if t == EventChaPanela {
		return "presentes_cha_panela"
	}
	return "presentes_casamento"
}

func (t EventType) RsvpTable() string {
	if t == EventChaPanela {
		return "rsvps_cha_panela"
	}
	return "rsvps_casamento"
}

func (t EventType) String() string { return string(t) }
