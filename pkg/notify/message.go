// Package notify composes reminder messages and delivers them through a
// narrow send interface, keeping the messaging platform behind one seam.
package notify

import (
	"fmt"
	"time"

	"github.com/nn1ks/lsfbot/pkg/timetable"
)

// Message is a composed notification payload. Text is plain content shown
// above the embed (a mention or a relative time phrase); the remaining
// fields make up the embed itself.
type Message struct {
	Text        string
	Title       string
	Description string
	Color       string
	OnlineLink  string
	Room        string
	Note        string
}

var weekdays = map[time.Weekday]string{
	time.Monday:    "Montag",
	time.Tuesday:   "Dienstag",
	time.Wednesday: "Mittwoch",
	time.Thursday:  "Donnerstag",
	time.Friday:    "Freitag",
	time.Saturday:  "Samstag",
	time.Sunday:    "Sonntag",
}

// Compose builds the message for one session of a course.
func Compose(course *timetable.Course, session timetable.Session, onlineLink string) Message {
	return Message{
		Title: course.Title(),
		Description: fmt.Sprintf("%s %s - %s",
			weekdays[session.Start.Weekday()],
			session.Start.Format("15:04"),
			session.End.Format("15:04")),
		Color:      course.Kind.Color(),
		OnlineLink: onlineLink,
		Room:       course.Room,
		Note:       course.Note,
	}
}
