package exporter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/nn1ks/lsfbot/pkg/timetable"
)

func TestGenerateICS(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatal(err)
	}

	schedule := &timetable.Schedule{Courses: []timetable.Course{
		{
			Kind:  timetable.Mathematik1,
			Group: timetable.Gruppe2,
			Room:  "Raum 1",
			Note:  "Bemerkung",
			Sessions: []timetable.Session{
				{Start: time.Date(2020, 11, 4, 8, 0, 0, 0, loc), End: time.Date(2020, 11, 4, 9, 30, 0, 0, loc)},
				{Start: time.Date(2020, 11, 11, 8, 0, 0, 0, loc), End: time.Date(2020, 11, 11, 9, 30, 0, 0, loc)},
			},
		},
		{
			Kind:     timetable.Digitaltechnik,
			Sessions: []timetable.Session{{Start: time.Date(2020, 11, 5, 10, 0, 0, 0, loc), End: time.Date(2020, 11, 5, 11, 30, 0, 0, loc)}},
		},
	}}

	var buf bytes.Buffer
	if err := GenerateICS(schedule, &buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if !strings.Contains(out, "BEGIN:VCALENDAR") || !strings.Contains(out, "END:VCALENDAR") {
		t.Fatal("output is not a calendar")
	}
	if got := strings.Count(out, "BEGIN:VEVENT"); got != 3 {
		t.Errorf("expected 3 events, got %d", got)
	}
	if !strings.Contains(out, "SUMMARY:Mathematik 1 (Gruppe 2)") {
		t.Error("missing summary of the grouped course")
	}
	if !strings.Contains(out, "SUMMARY:Digitaltechnik") {
		t.Error("missing summary of the lecture")
	}
	if !strings.Contains(out, "LOCATION:Raum 1") {
		t.Error("missing location")
	}
	if !strings.Contains(out, "DESCRIPTION:Bemerkung") {
		t.Error("missing description")
	}
}

func TestGenerateICSEmptySchedule(t *testing.T) {
	var buf bytes.Buffer
	if err := GenerateICS(&timetable.Schedule{}, &buf); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "BEGIN:VEVENT") {
		t.Error("empty schedule must not produce events")
	}
}
