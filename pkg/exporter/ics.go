package exporter

import (
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/nn1ks/lsfbot/pkg/timetable"
)

// GenerateICS writes the schedule as an ICS calendar, one event per session.
func GenerateICS(schedule *timetable.Schedule, w io.Writer) error {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)

	for i := range schedule.Courses {
		course := &schedule.Courses[i]
		for j, session := range course.Sessions {
			event := cal.AddEvent(fmt.Sprintf("%s-%d-%d", session.Start.Format("20060102T150405"), i, j))
			event.SetCreatedTime(time.Now())
			event.SetDtStampTime(time.Now())
			event.SetModifiedAt(time.Now())
			event.SetStartAt(session.Start)
			event.SetEndAt(session.End)
			event.SetSummary(course.Title())
			if course.Room != "" {
				event.SetLocation(course.Room)
			}
			if course.Note != "" {
				event.SetDescription(course.Note)
			}
		}
	}

	return cal.SerializeTo(w)
}
