package tasks

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/opsboard/opsboard-backend/pkg/communication"
	"github.com/opsboard/opsboard-backend/pkg/date"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func mustMarker(t *testing.T, text string) date.Marker {
	t.Helper()
	marker, err := date.ParseMarker(text)
	if err != nil {
		t.Fatal(err)
	}
	return marker
}

func TestSlot_Interval(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("no tzdata available")
	}

	var intervalTests = []struct {
		name      string
		day       string
		start     string
		end       string
		location  *time.Location
		wantStart time.Time
		wantEnd   time.Time
		wantField string
	}{
		{"time of day", "2021-03-01", "10:00", "11:30", time.UTC,
			time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC), time.Date(2021, 3, 1, 11, 30, 0, 0, time.UTC), ""},
		{"time of day with seconds", "2021-03-01", "10:00:15", "10:00:45", time.UTC,
			time.Date(2021, 3, 1, 10, 0, 15, 0, time.UTC), time.Date(2021, 3, 1, 10, 0, 45, 0, time.UTC), ""},
		{"time of day in location", "2021-03-01", "10:00", "11:00", berlin,
			time.Date(2021, 3, 1, 9, 0, 0, 0, time.UTC), time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC), ""},
		{"absolute", "", "2021-03-01T10:00:00Z", "2021-03-01T12:00:00Z", time.UTC,
			time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC), time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC), ""},
		{"mixed", "2021-03-01", "2021-03-01T10:00:00Z", "12:00", time.UTC,
			time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC), time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC), ""},
		{"missing date", "", "10:00", "11:00", time.UTC, time.Time{}, time.Time{}, "date"},
		{"bad date", "first of march", "10:00", "11:00", time.UTC, time.Time{}, time.Time{}, "date"},
		{"end before start", "2021-03-01", "11:00", "10:00", time.UTC, time.Time{}, time.Time{}, "end"},
		{"empty interval", "2021-03-01", "11:00", "11:00", time.UTC, time.Time{}, time.Time{}, "end"},
	}

	for _, tt := range intervalTests {
		t.Run(tt.name, func(t *testing.T) {
			slot := Slot{Date: tt.day, Start: mustMarker(t, tt.start), End: mustMarker(t, tt.end)}

			span, err := slot.Interval(tt.location)
			if tt.wantField != "" {
				var validationError *communication.ValidationError
				if !errors.As(err, &validationError) {
					t.Fatalf("expected validation error, got %v", err)
				}
				if validationError.Field != tt.wantField {
					t.Errorf("expected field %s, got %s", tt.wantField, validationError.Field)
				}
				return
			}

			if err != nil {
				t.Fatal(err)
			}
			if !span.Start.Equal(tt.wantStart) || !span.End.Equal(tt.wantEnd) {
				t.Errorf("expected %s - %s, got %s", tt.wantStart, tt.wantEnd, span.String())
			}
		})
	}
}

func TestSlot_IntervalWithoutStart(t *testing.T) {
	slot := Slot{Date: "2021-03-01", End: mustMarker(t, "11:00")}

	_, err := slot.Interval(time.UTC)
	var validationError *communication.ValidationError
	if !errors.As(err, &validationError) || validationError.Field != "start" {
		t.Fatalf("expected validation error for start, got %v", err)
	}
}

func TestSlot_Shift(t *testing.T) {
	slot := Slot{Date: "2021-03-01", Start: mustMarker(t, "10:00:00"), End: mustMarker(t, "11:00:00")}

	err := slot.Shift(30*time.Minute, true, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if slot.Start.String() != "10:00:00" || slot.End.String() != "11:30:00" {
		t.Errorf("unexpected markers %s - %s", slot.Start, slot.End)
	}

	err = slot.Shift(15*time.Minute, false, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if slot.Start.String() != "10:15:00" || slot.End.String() != "11:45:00" {
		t.Errorf("unexpected markers %s - %s", slot.Start, slot.End)
	}

	late := Slot{Date: "2021-03-01", Start: mustMarker(t, "23:00"), End: mustMarker(t, "23:50")}
	err = late.Shift(30*time.Minute, true, time.UTC)
	var validationError *communication.ValidationError
	if !errors.As(err, &validationError) || validationError.Field != "end" {
		t.Fatalf("expected validation error for end, got %v", err)
	}
}

func TestTimeTracking_Recompute(t *testing.T) {
	slots := Slots{
		{DurationMinutes: 90, ExtensionMinutes: 30, Status: SlotStatusCompleted},
		{DurationMinutes: 60, Status: SlotStatusScheduled},
		{DurationMinutes: 45, ExtensionMinutes: 15, Status: SlotStatusActive},
	}

	tracking := TimeTracking{TotalWorkedMinutes: 1000}
	tracking.Recompute(slots)

	if tracking.OriginalPlannedMinutes != 150 {
		t.Errorf("expected 150 planned minutes, got %d", tracking.OriginalPlannedMinutes)
	}
	if tracking.TotalExtendedMinutes != 45 {
		t.Errorf("expected 45 extended minutes, got %d", tracking.TotalExtendedMinutes)
	}
	if tracking.TotalWorkedMinutes != 90 {
		t.Errorf("expected 90 worked minutes, got %d", tracking.TotalWorkedMinutes)
	}
}

func TestTask_Copy(t *testing.T) {
	task := Task{Slots: Slots{{ID: primitive.NewObjectID(), ExtensionRequests: ExtensionRequests{{Status: ExtensionPending}}}}}

	copied := task.Copy()
	copied.Slots[0].DurationMinutes = 10
	copied.Slots[0].ExtensionRequests[0].Status = ExtensionApproved

	if task.Slots[0].DurationMinutes != 0 || task.Slots[0].ExtensionRequests[0].Status != ExtensionPending {
		t.Error("copy shares state with the original")
	}
}

func TestMinutes_UnmarshalJSON(t *testing.T) {
	var minutesTests = []struct {
		in      string
		want    Minutes
		wantErr bool
	}{
		{`15`, 15, false},
		{`"15"`, 15, false},
		{`" 20 "`, 20, false},
		{`15.0`, 15, false},
		{`-5`, -5, false},
		{`null`, 0, false},
		{`"1440"`, 1440, false},
		{`1441`, 0, true},
		{`9007199254740994`, 0, true},
		{`"1e300"`, 0, true},
		{`15.5`, 0, true},
		{`"fifteen"`, 0, true},
		{`true`, 0, true},
	}

	for _, tt := range minutesTests {
		t.Run(tt.in, func(t *testing.T) {
			var input ExtensionInput
			err := json.Unmarshal([]byte(`{"minutes":`+tt.in+`}`), &input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected an error for %s", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if input.Minutes != tt.want {
				t.Errorf("expected %d, got %d", tt.want, input.Minutes)
			}
		})
	}
}
