package date

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// DayLayout is the layout of a bare calendar day
const DayLayout = "2006-01-02"

// MarkerKind tags which representation a Marker holds
type MarkerKind int

const (
	// MarkerUnset is the zero Marker
	MarkerUnset MarkerKind = iota
	// MarkerAbsolute is a full timestamp
	MarkerAbsolute
	// MarkerTimeOfDay is a bare HH:MM[:SS] that needs a calendar day to resolve
	MarkerTimeOfDay
)

var (
	// ErrEmptyMarker is returned when a marker has no text
	ErrEmptyMarker = errors.New("time marker is empty")
	// ErrMissingDay is returned when a time of day marker is resolved without a calendar day
	ErrMissingDay = errors.New("time of day marker needs a date")
	// ErrLeavesDay is returned when shifting a time of day marker would move it to another calendar day
	ErrLeavesDay = errors.New("shifted time of day leaves the slot date")
)

var timeOfDayPattern = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)(?::([0-5]\d))?$`)

// Marker is the start or end of a slot. It is either an absolute instant or a time of day
// that is combined with the slot's date.
type Marker struct {
	kind       MarkerKind
	instant    time.Time
	hour       int
	minute     int
	second     int
	hasSeconds bool
	shortHour  bool
}

// NewAbsoluteMarker builds an absolute Marker
func NewAbsoluteMarker(instant time.Time) Marker {
	return Marker{kind: MarkerAbsolute, instant: instant}
}

// NewTimeOfDayMarker builds a time of day Marker, seconds are rendered only if hasSeconds is set
func NewTimeOfDayMarker(hour, minute, second int, hasSeconds bool) Marker {
	if !hasSeconds {
		second = 0
	}
	return Marker{kind: MarkerTimeOfDay, hour: hour, minute: minute, second: second, hasSeconds: hasSeconds}
}

// ParseMarker parses an RFC 3339 timestamp first and falls back to HH:MM[:SS]
func ParseMarker(text string) (Marker, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Marker{}, ErrEmptyMarker
	}

	instant, err := time.Parse(time.RFC3339Nano, text)
	if err == nil {
		return NewAbsoluteMarker(instant), nil
	}

	matches := timeOfDayPattern.FindStringSubmatch(text)
	if matches == nil {
		return Marker{}, fmt.Errorf("%q is neither a timestamp nor a time of day", text)
	}

	hour, _ := strconv.Atoi(matches[1])
	minute, _ := strconv.Atoi(matches[2])
	second, _ := strconv.Atoi(matches[3])

	marker := NewTimeOfDayMarker(hour, minute, second, matches[3] != "")
	marker.shortHour = len(matches[1]) == 1
	return marker, nil
}

// ParseDay parses a calendar day given as YYYY-MM-DD or as a timestamp whose written date is used
func ParseDay(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, ErrMissingDay
	}

	day, err := time.Parse(DayLayout, text)
	if err == nil {
		return day, nil
	}

	instant, err := time.Parse(time.RFC3339Nano, text)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not a date", text)
	}

	year, month, dayOfMonth := instant.Date()
	return time.Date(year, month, dayOfMonth, 0, 0, 0, 0, time.UTC), nil
}

// Kind returns the representation of the Marker
func (m Marker) Kind() MarkerKind {
	return m.kind
}

// IsZero reports whether the Marker is unset
func (m Marker) IsZero() bool {
	return m.kind == MarkerUnset
}

// IsTimeOfDay reports whether the Marker is a bare time of day
func (m Marker) IsTimeOfDay() bool {
	return m.kind == MarkerTimeOfDay
}

// Resolve turns the Marker into an absolute instant. day is only used for time of day markers, its
// year, month and day are taken as written and combined with the clock in location.
func (m Marker) Resolve(day time.Time, location *time.Location) (time.Time, error) {
	switch m.kind {
	case MarkerAbsolute:
		return m.instant, nil
	case MarkerTimeOfDay:
		if day.IsZero() {
			return time.Time{}, ErrMissingDay
		}
		year, month, dayOfMonth := day.Date()
		return time.Date(year, month, dayOfMonth, m.hour, m.minute, m.second, 0, location), nil
	default:
		return time.Time{}, ErrEmptyMarker
	}
}

// Reserialize renders shifted in the representation of m. Time of day markers keep only the clock,
// whether seconds were present and whether the hour was written without a leading zero.
func (m Marker) Reserialize(shifted time.Time, location *time.Location) Marker {
	if m.kind != MarkerTimeOfDay {
		return NewAbsoluteMarker(shifted)
	}

	hour, minute, second := shifted.In(location).Clock()
	marker := NewTimeOfDayMarker(hour, minute, second, m.hasSeconds)
	marker.shortHour = m.shortHour
	return marker
}

// Shift moves the Marker forward by d, keeping its representation
func (m Marker) Shift(d time.Duration, day time.Time, location *time.Location) (Marker, error) {
	resolved, err := m.Resolve(day, location)
	if err != nil {
		return Marker{}, err
	}

	shifted := resolved.Add(d)

	if m.kind == MarkerTimeOfDay {
		year, month, dayOfMonth := day.Date()
		shiftedYear, shiftedMonth, shiftedDay := shifted.In(location).Date()
		if year != shiftedYear || month != shiftedMonth || dayOfMonth != shiftedDay {
			return Marker{}, ErrLeavesDay
		}
	}

	return m.Reserialize(shifted, location), nil
}

// String renders the Marker in its stored textual form
func (m Marker) String() string {
	switch m.kind {
	case MarkerAbsolute:
		return m.instant.Format(time.RFC3339Nano)
	case MarkerTimeOfDay:
		hourFormat := "%02d"
		if m.shortHour {
			hourFormat = "%d"
		}
		if m.hasSeconds {
			return fmt.Sprintf(hourFormat+":%02d:%02d", m.hour, m.minute, m.second)
		}
		return fmt.Sprintf(hourFormat+":%02d", m.hour, m.minute)
	default:
		return ""
	}
}

// MarshalJSON renders the Marker as its textual form
func (m Marker) MarshalJSON() ([]byte, error) {
	if m.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(m.String())
}

// UnmarshalJSON parses a textual Marker
func (m *Marker) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Marker{}
		return nil
	}

	var text string
	err := json.Unmarshal(data, &text)
	if err != nil {
		return err
	}

	parsed, err := ParseMarker(text)
	if err != nil {
		return err
	}

	*m = parsed
	return nil
}

// MarshalBSONValue stores the Marker as its textual form
func (m Marker) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if m.IsZero() {
		return bsontype.Null, nil, nil
	}
	return bson.MarshalValue(m.String())
}

// UnmarshalBSONValue reads a Marker stored as text or as a BSON date
func (m *Marker) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}

	switch t {
	case bsontype.Null, bsontype.Undefined:
		*m = Marker{}
		return nil
	case bsontype.DateTime:
		*m = NewAbsoluteMarker(raw.Time())
		return nil
	case bsontype.String:
		parsed, err := ParseMarker(raw.StringValue())
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	default:
		return fmt.Errorf("cannot decode time marker from bson type %s", t)
	}
}
