package timetable

import (
	"encoding/json"
	"fmt"
	"time"
)

// CourseKind identifies one of the known lecture/exercise series.
type CourseKind int

const (
	Mathematik1 CourseKind = iota
	Programmiertechnik1
	Softwaremodellierung
	Digitaltechnik
)

// courseTitles maps the page titles found on the LSF portal to their kind.
// The mapping is intentionally exact; a changed title on the site must fail
// loudly instead of being fuzzy-matched.
var courseTitles = map[string]CourseKind{
	"AIN1 Mathematik 1":                           Mathematik1,
	"AIN1 Programmiertechnik1 - findet online statt": Programmiertechnik1,
	"AIN1 Softwaremodellierung":                   Softwaremodellierung,
	"AIN1 Digitaltechnik":                         Digitaltechnik,
}

var courseNames = map[CourseKind]string{
	Mathematik1:          "Mathematik 1",
	Programmiertechnik1:  "Programmiertechnik 1",
	Softwaremodellierung: "Softwaremodellierung",
	Digitaltechnik:       "Digitaltechnik",
}

// courseColors holds the accent color per course, used for message embeds.
var courseColors = map[CourseKind]string{
	Mathematik1:          "#3498db",
	Programmiertechnik1:  "#e67e22",
	Softwaremodellierung: "#9b59b6",
	Digitaltechnik:       "#1f8b4c",
}

// ParseCourseTitle maps a cleaned page title to a CourseKind.
func ParseCourseTitle(title string) (CourseKind, error) {
	kind, ok := courseTitles[title]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCourse, title)
	}
	return kind, nil
}

// String returns the display name of the course.
func (k CourseKind) String() string {
	return courseNames[k]
}

// Color returns the hex accent color of the course.
func (k CourseKind) Color() string {
	return courseColors[k]
}

// Group is an optional subdivision of a course's audience. The zero value
// NoGroup means the course applies to everyone.
type Group int

const (
	NoGroup Group = iota
	Gruppe1
	Gruppe2
	Gruppe3
	Gruppe4
)

// Groups lists all concrete groups, in order.
var Groups = []Group{Gruppe1, Gruppe2, Gruppe3, Gruppe4}

var groupCaptions = map[string]Group{
	"Gruppe 1": Gruppe1,
	"Gruppe 2": Gruppe2,
	"Gruppe 3": Gruppe3,
	"Gruppe 4": Gruppe4,
}

var groupNames = map[Group]string{
	Gruppe1: "Gruppe 1",
	Gruppe2: "Gruppe 2",
	Gruppe3: "Gruppe 3",
	Gruppe4: "Gruppe 4",
}

var groupKeys = map[Group]string{
	Gruppe1: "gruppe1",
	Gruppe2: "gruppe2",
	Gruppe3: "gruppe3",
	Gruppe4: "gruppe4",
}

// ParseGroupCaption maps a caption string such as "Gruppe 2" to a Group.
func ParseGroupCaption(caption string) (Group, error) {
	group, ok := groupCaptions[caption]
	if !ok {
		return NoGroup, fmt.Errorf("%w: %q", ErrUnknownGroup, caption)
	}
	return group, nil
}

// String returns the display name, or an empty string for NoGroup.
func (g Group) String() string {
	return groupNames[g]
}

// Key returns the identifier used in config and persistence files.
func (g Group) Key() string {
	return groupKeys[g]
}

// MarshalJSON encodes the group as its key string.
func (g Group) MarshalJSON() ([]byte, error) {
	if g == NoGroup {
		return json.Marshal("")
	}
	return json.Marshal(groupKeys[g])
}

// UnmarshalJSON decodes a group key string. An empty string means NoGroup.
func (g *Group) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*g = NoGroup
		return nil
	}
	for group, key := range groupKeys {
		if key == s {
			*g = group
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownGroup, s)
}

// Session is one dated occurrence of a course.
type Session struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Course is one lecture/exercise series with its concrete sessions.
type Course struct {
	Kind     CourseKind `json:"kind"`
	Group    Group      `json:"group"`
	Sessions []Session  `json:"sessions"`
	Room     string     `json:"room,omitempty"`
	Note     string     `json:"note,omitempty"`
}

// Title combines the course name with its group, e.g. "Mathematik 1 (Gruppe 2)".
func (c *Course) Title() string {
	if c.Group == NoGroup {
		return c.Kind.String()
	}
	return fmt.Sprintf("%s (%s)", c.Kind, c.Group)
}

// VisibleTo reports whether the course concerns a subscriber of the given
// group. Courses without a group concern everyone.
func (c *Course) VisibleTo(group Group) bool {
	return c.Group == NoGroup || c.Group == group
}

// SameSlot reports whether two courses describe the same kind, group and
// session set. Such entries must be merged at extraction time.
func (c *Course) SameSlot(other *Course) bool {
	if c.Kind != other.Kind || c.Group != other.Group || len(c.Sessions) != len(other.Sessions) {
		return false
	}
	for i := range c.Sessions {
		if !c.Sessions[i].Start.Equal(other.Sessions[i].Start) || !c.Sessions[i].End.Equal(other.Sessions[i].End) {
			return false
		}
	}
	return true
}

// Schedule is the complete timetable produced by one extraction run. It is
// never mutated after construction; a new extraction replaces it wholesale.
type Schedule struct {
	Courses []Course `json:"courses"`
}

// Entry pairs a course with one of its sessions.
type Entry struct {
	Course  *Course
	Session Session
}

// Entries returns every (course, session) pair matching the filter.
func (s *Schedule) Entries(filter func(*Course, Session) bool) []Entry {
	var entries []Entry
	for i := range s.Courses {
		course := &s.Courses[i]
		for _, session := range course.Sessions {
			if filter(course, session) {
				entries = append(entries, Entry{Course: course, Session: session})
			}
		}
	}
	return entries
}
