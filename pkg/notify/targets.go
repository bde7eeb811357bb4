package notify

import (
	"github.com/nn1ks/lsfbot/pkg/config"
	"github.com/nn1ks/lsfbot/pkg/timetable"
)

// TargetsFor returns the group channels a course's reminders are routed to.
// A course with an explicit group goes to that group's channel only; a
// course without a group goes to all of them.
func TargetsFor(cfg *config.Config, group timetable.Group) []config.GroupChannel {
	if group != timetable.NoGroup {
		return []config.GroupChannel{cfg.Channel(group)}
	}
	targets := make([]config.GroupChannel, 0, len(timetable.Groups))
	for _, g := range timetable.Groups {
		targets = append(targets, cfg.Channel(g))
	}
	return targets
}
