package timetable

import "errors"

var (
	// ErrUnknownCourse is returned when a page title has no entry in the
	// course table. This usually means the site layout changed.
	ErrUnknownCourse = errors.New("unknown course name")

	// ErrUnknownGroup is returned when a group caption has no entry in the
	// group table.
	ErrUnknownGroup = errors.New("unknown group name")
)
