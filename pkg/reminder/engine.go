// Package reminder implements the periodic notification engine. Every cycle
// is computed from scratch against the current schedule snapshot, the
// freshly reloaded subscriber store and the wall clock, so the engine
// carries no state across cycles or process restarts.
package reminder

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/nn1ks/lsfbot/pkg/config"
	"github.com/nn1ks/lsfbot/pkg/notify"
	"github.com/nn1ks/lsfbot/pkg/timetable"
	"github.com/nn1ks/lsfbot/pkg/users"
)

// CyclePeriod is the pause between reminder cycles. The lead-time windows
// are 5 minutes wide to match, so each session is caught exactly once.
const CyclePeriod = 5 * time.Minute

// groupWindowMin/Max bound the group channel reminder window in minutes
// before session start, both ends exclusive.
const (
	groupWindowMin = 25
	groupWindowMax = 30
)

// Engine evaluates the schedule against subscriber preferences and emits
// due notifications.
type Engine struct {
	cfg      *config.Config
	snapshot *timetable.Snapshot
	store    *users.Store
	sink     notify.Sink
	logger   *zap.Logger
	loc      *time.Location

	// now is replaceable for tests.
	now func() time.Time
}

// New creates an engine.
func New(cfg *config.Config, snapshot *timetable.Snapshot, store *users.Store, sink notify.Sink, logger *zap.Logger) (*Engine, error) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		return nil, fmt.Errorf("could not load timezone: %w", err)
	}
	return &Engine{
		cfg:      cfg,
		snapshot: snapshot,
		store:    store,
		sink:     sink,
		logger:   logger,
		loc:      loc,
		now:      time.Now,
	}, nil
}

// Run executes cycles until the context is cancelled. The first cycle runs
// immediately.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(CyclePeriod)
	defer ticker.Stop()

	for {
		e.runCycle(ctx, e.now())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (e *Engine) runCycle(ctx context.Context, now time.Time) {
	e.logger.Debug("starting reminder cycle", zap.Time("now", now))

	// Pick up preference edits made since the last cycle. On failure the
	// last successfully loaded copy stays in use.
	if err := e.store.Reload(); err != nil {
		e.logger.Error("failed to reload users, keeping previous state", zap.Error(err))
	}

	schedule := e.snapshot.Load()

	e.groupReminders(ctx, schedule, now)

	for _, user := range e.store.List() {
		if !user.Enabled {
			continue
		}
		e.leadTimeReminders(ctx, schedule, user, now)
		if user.FollowPrevious {
			e.followPreviousReminder(ctx, schedule, user, now)
		}
	}

	e.logger.Debug("finished reminder cycle")
}

// groupReminders posts a reminder to the group channels for every session
// starting in more than 25 and less than 30 minutes.
func (e *Engine) groupReminders(ctx context.Context, schedule *timetable.Schedule, now time.Time) {
	entries := schedule.Entries(func(c *timetable.Course, s timetable.Session) bool {
		minutes := s.Start.Sub(now).Minutes()
		return minutes > groupWindowMin && minutes < groupWindowMax
	})
	sortByStart(entries)

	for _, entry := range entries {
		msg := e.compose(entry)
		for _, target := range notify.TargetsFor(e.cfg, entry.Course.Group) {
			channelMsg := msg
			if target.UsergroupID != "" {
				channelMsg.Text = fmt.Sprintf("<!subteam^%s>", target.UsergroupID)
			}
			if err := e.sink.SendToChannel(ctx, target.ChannelID, channelMsg); err != nil {
				e.logger.Error("failed to send group reminder",
					zap.String("channel", target.ChannelID), zap.Error(err))
				continue
			}
			e.logger.Info("sent group reminder",
				zap.String("channel", target.ChannelID),
				zap.String("course", entry.Course.Title()))
		}
	}
}

// leadTimeReminders sends a direct message for every visible session whose
// start falls into the subscriber's personal lead-time window (L-5, L).
func (e *Engine) leadTimeReminders(ctx context.Context, schedule *timetable.Schedule, user users.Preference, now time.Time) {
	if user.LeadMinutes == nil {
		return
	}
	lead := float64(*user.LeadMinutes)

	entries := schedule.Entries(func(c *timetable.Course, s timetable.Session) bool {
		if !c.VisibleTo(user.Group) {
			return false
		}
		minutes := s.Start.Sub(now).Minutes()
		return minutes > lead-5 && minutes < lead
	})
	sortByStart(entries)

	for _, entry := range entries {
		if err := e.sink.SendDirect(ctx, user.ID, e.compose(entry)); err != nil {
			e.logger.Error("failed to send lead-time reminder",
				zap.String("user", user.ID), zap.Error(err))
			continue
		}
		e.logger.Info("sent lead-time reminder",
			zap.String("user", user.ID),
			zap.String("course", entry.Course.Title()))
	}
}

// followPreviousReminder looks for a visible session that ended within the
// last 5 minutes and, if one exists, announces the next visible session of
// the day starting after it.
func (e *Engine) followPreviousReminder(ctx context.Context, schedule *timetable.Schedule, user users.Preference, now time.Time) {
	today := schedule.Entries(func(c *timetable.Course, s timetable.Session) bool {
		return c.VisibleTo(user.Group) && sameDay(s.Start, now, e.loc)
	})

	// Reference point: the most recently finished session, if it ended
	// between 0 and 5 minutes ago (both bounds exclusive).
	var reference time.Time
	for _, entry := range today {
		since := now.Sub(entry.Session.End)
		if since > 0 && since < 5*time.Minute && entry.Session.End.After(reference) {
			reference = entry.Session.End
		}
	}
	if reference.IsZero() {
		return
	}

	// Next session: earliest start strictly after the reference point. Ties
	// keep the first entry in schedule order.
	var next *timetable.Entry
	for i := range today {
		if !today[i].Session.Start.After(reference) {
			continue
		}
		if next == nil || today[i].Session.Start.Before(next.Session.Start) {
			next = &today[i]
		}
	}
	if next == nil {
		return
	}

	msg := e.compose(*next)
	msg.Text = relativePhrase(next.Session.Start.Sub(now))
	if err := e.sink.SendDirect(ctx, user.ID, msg); err != nil {
		e.logger.Error("failed to send follow-previous reminder",
			zap.String("user", user.ID), zap.Error(err))
		return
	}
	e.logger.Info("sent follow-previous reminder",
		zap.String("user", user.ID),
		zap.String("course", next.Course.Title()))
}

func (e *Engine) compose(entry timetable.Entry) notify.Message {
	link := e.cfg.OnlineLink(entry.Course.Kind, entry.Course.Group)
	return notify.Compose(entry.Course, entry.Session, link)
}

func sortByStart(entries []timetable.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Session.Start.Before(entries[j].Session.Start)
	})
}

func sameDay(t, now time.Time, loc *time.Location) bool {
	a, b := t.In(loc), now.In(loc)
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
