package date

import (
	"fmt"
	"time"
)

// TimeBeforeOrEquals returns whether t1 is before or equal t2
func TimeBeforeOrEquals(t1 time.Time, t2 time.Time) bool {
	return !t1.After(t2)
}

// TimeAfterOrEquals returns whether t1 is after or equal t2
func TimeAfterOrEquals(t1 time.Time, t2 time.Time) bool {
	return !t1.Before(t2)
}

// Timespan is a simple half-open timespan [Start, End) between two instants
type Timespan struct {
	Start time.Time `json:"start" bson:"start" validate:"required"`
	End   time.Time `json:"end" bson:"end" validate:"required"`
}

// Duration simply get the duration of a Timespan
func (t *Timespan) Duration() time.Duration {
	return t.End.Sub(t.Start)
}

// Minutes returns the duration of a Timespan in whole minutes
func (t *Timespan) Minutes() int {
	return int(t.Duration() / time.Minute)
}

// IsStartBeforeEnd checks if start is earlier than end
func (t *Timespan) IsStartBeforeEnd() bool {
	return t.Start.Before(t.End)
}

// String prints a timespan string
func (t *Timespan) String() string {
	return fmt.Sprintf("%s - %s", t.Start.Format(time.RFC3339), t.End.Format(time.RFC3339))
}

// In changes the location on a Timespan
func (t *Timespan) In(location *time.Location) Timespan {
	return Timespan{Start: t.Start.In(location), End: t.End.In(location)}
}

// IntersectsWith checks if one timespan intersects with another, touching ends don't intersect
func (t *Timespan) IntersectsWith(timespan Timespan) bool {
	return t.Start.Before(timespan.End) && t.End.After(timespan.Start)
}

// Contains checks if one timespan t contains another Timespan timespan
func (t *Timespan) Contains(timespan Timespan) bool {
	return TimeAfterOrEquals(timespan.Start, t.Start) &&
		TimeBeforeOrEquals(timespan.End, t.End)
}

// StartOfDay returns midnight of the calendar day of t in location
func StartOfDay(t time.Time, location *time.Location) time.Time {
	local := t.In(location)
	year, month, day := local.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, location)
}

// MaxTime returns the later of a and b
func MaxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
