package collab

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/berrynet/berrynet/client-go/internal/geometry"
)

// Inbound event kinds, as named on the stream.
const (
	EventUser     = "user"
	EventLocation = "location"
	EventKickout  = "kickout"
)

var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrUnknownEvent     = errors.New("unknown event")
)

// Event is one inbound stream event: its kind and undecoded payload.
type Event struct {
	Type string
	Data []byte
}

// Message is the envelope used on the WebSocket transport.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (m Message) Event() Event {
	return Event{Type: m.Type, Data: []byte(m.Payload)}
}

// MoveRequest is the body of an outbound move.
type MoveRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// LocationPayload is the payload of a location event.
type LocationPayload struct {
	UserID   ParticipantID `json:"user_id"`
	Location *wireLocation `json:"location"`
}

type wireLocation struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

// ParticipantID decodes an id sent either as a JSON string or as a
// non-negative JSON integer.
type ParticipantID string

func (p *ParticipantID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = ParticipantID(s)
		return nil
	}
	if len(data) == 0 || !isDigits(data) {
		return fmt.Errorf("participant id %s is neither a string nor an unsigned integer", data)
	}
	*p = ParticipantID(data)
	return nil
}

// ParseUser decodes the self-assignment payload: a bare id, optionally JSON
// quoted.
func ParseUser(data []byte) (string, error) {
	raw := bytes.TrimSpace(data)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%w: user: %v", ErrMalformedPayload, err)
		}
		raw = []byte(strings.TrimSpace(s))
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("%w: user: empty id", ErrMalformedPayload)
	}
	return string(raw), nil
}

// ParseLocation decodes and validates a location payload.
func ParseLocation(data []byte) (string, geometry.Location, error) {
	var payload LocationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", geometry.Location{}, fmt.Errorf("%w: location: %v", ErrMalformedPayload, err)
	}
	if payload.UserID == "" {
		return "", geometry.Location{}, fmt.Errorf("%w: location: missing user_id", ErrMalformedPayload)
	}
	if payload.Location == nil || payload.Location.X == nil || payload.Location.Y == nil {
		return "", geometry.Location{}, fmt.Errorf("%w: location: missing coordinates", ErrMalformedPayload)
	}
	loc := geometry.Location{X: *payload.Location.X, Y: *payload.Location.Y}
	if err := loc.Validate(); err != nil {
		return "", geometry.Location{}, fmt.Errorf("location for %s: %w", payload.UserID, err)
	}
	return string(payload.UserID), loc, nil
}

// ParseKickout decodes a kickout payload into the set of ids to evict.
func ParseKickout(data []byte) (mapset.Set[string], error) {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, fmt.Errorf("%w: kickout: null", ErrMalformedPayload)
	}
	var ids []ParticipantID
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("%w: kickout: %v", ErrMalformedPayload, err)
	}
	set := mapset.NewSet[string]()
	for _, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("%w: kickout: empty id", ErrMalformedPayload)
		}
		set.Add(string(id))
	}
	return set, nil
}

func isDigits(b []byte) bool {
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
