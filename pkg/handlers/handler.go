// Package handlers exposes the bot's Slack slash command surface over HTTP.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/nn1ks/lsfbot/pkg/config"
	"github.com/nn1ks/lsfbot/pkg/notify"
	"github.com/nn1ks/lsfbot/pkg/timetable"
	"github.com/nn1ks/lsfbot/pkg/users"
)

// RefreshFunc triggers a full re-extraction and snapshot swap.
type RefreshFunc func(ctx context.Context) error

// SlackHandler serves the /slack/commands endpoint.
type SlackHandler struct {
	cfg           *config.Config
	snapshot      *timetable.Snapshot
	store         *users.Store
	lookup        notify.MemberLookup
	refresh       RefreshFunc
	logger        *zap.Logger
	signingSecret string
	loc           *time.Location

	now func() time.Time
}

// New creates the handler.
func New(cfg *config.Config, snapshot *timetable.Snapshot, store *users.Store, lookup notify.MemberLookup, refresh RefreshFunc, signingSecret string, logger *zap.Logger) (*SlackHandler, error) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		return nil, fmt.Errorf("could not load timezone: %w", err)
	}
	return &SlackHandler{
		cfg:           cfg,
		snapshot:      snapshot,
		store:         store,
		lookup:        lookup,
		refresh:       refresh,
		logger:        logger,
		signingSecret: signingSecret,
		loc:           loc,
		now:           time.Now,
	}, nil
}

// HandleSlashCommand verifies and dispatches one slash command request.
func (h *SlackHandler) HandleSlashCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	r.Body = io.NopCloser(bytes.NewBuffer(body))

	verifier, err := slack.NewSecretsVerifier(r.Header, h.signingSecret)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if _, err := verifier.Write(body); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if err := verifier.Ensure(); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	s, err := slack.SlashCommandParse(r)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	cmd, err := ParseCommand(s.Text)
	if err != nil {
		h.respond(w, errorMsg(err))
		return
	}

	h.respond(w, h.handleCommand(r.Context(), cmd, &s))
}

func (h *SlackHandler) respond(w http.ResponseWriter, msg *slack.Msg) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *SlackHandler) handleCommand(ctx context.Context, cmd *Command, slash *slack.SlashCommand) *slack.Msg {
	switch cmd.Type {
	case CmdList:
		return h.handleList(ctx, cmd, slash.UserID)
	case CmdUpdate:
		return h.handleUpdate(slash.ResponseURL)
	case CmdDMEnable:
		return h.handleDMEnable(ctx, slash.UserID)
	case CmdDMDisable:
		return h.handleDMDisable(slash.UserID)
	case CmdDMRemove:
		return h.handleDMRemove(slash.UserID)
	case CmdDMSet:
		return h.handleDMSet(cmd, slash.UserID)
	case CmdDMGet:
		return h.handleDMGet(slash.UserID)
	default:
		return &slack.Msg{ResponseType: slack.ResponseTypeEphemeral, Text: helpText}
	}
}

func (h *SlackHandler) handleList(ctx context.Context, cmd *Command, userID string) *slack.Msg {
	group, err := h.resolveGroup(ctx, userID)
	if err != nil {
		return errorMsg(err)
	}

	now := h.now()
	schedule := h.snapshot.Load()

	var entries []timetable.Entry
	if len(cmd.Args) > 0 {
		date, err := time.ParseInLocation("02.01.2006", cmd.Args[0], h.loc)
		if err != nil {
			return errorMsg(fmt.Errorf("invalid date format"))
		}
		entries = h.entriesOn(schedule, group, date, time.Time{})
		if len(entries) == 0 {
			return &slack.Msg{
				ResponseType: slack.ResponseTypeEphemeral,
				Text:         fmt.Sprintf("Keine Lehrveranstaltungen am %s", date.Format("02.01.2006")),
			}
		}
	} else {
		// Without a date: the first of the next seven days that still has
		// upcoming sessions.
		for i := 0; i < 7 && len(entries) == 0; i++ {
			entries = h.entriesOn(schedule, group, now.AddDate(0, 0, i), now)
		}
		if len(entries) == 0 {
			return &slack.Msg{
				ResponseType: slack.ResponseTypeEphemeral,
				Text:         "Keine anstehenden Lehrveranstaltungen gefunden",
			}
		}
	}

	sortEntries(entries)
	var attachments []slack.Attachment
	for _, entry := range entries {
		link := h.cfg.OnlineLink(entry.Course.Kind, entry.Course.Group)
		attachments = append(attachments, notify.Attachment(notify.Compose(entry.Course, entry.Session, link)))
	}
	return &slack.Msg{ResponseType: slack.ResponseTypeEphemeral, Attachments: attachments}
}

// entriesOn returns the sessions of one civil day visible to a group,
// optionally restricted to starts after a given instant.
func (h *SlackHandler) entriesOn(schedule *timetable.Schedule, group timetable.Group, day, after time.Time) []timetable.Entry {
	y, m, d := day.In(h.loc).Date()
	return schedule.Entries(func(c *timetable.Course, s timetable.Session) bool {
		if !c.VisibleTo(group) {
			return false
		}
		sy, sm, sd := s.Start.In(h.loc).Date()
		if sy != y || sm != m || sd != d {
			return false
		}
		return s.Start.After(after)
	})
}

func (h *SlackHandler) handleUpdate(responseURL string) *slack.Msg {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		text := "Stundenplan wurde aktualisiert"
		if err := h.refresh(ctx); err != nil {
			h.logger.Error("failed to refresh schedule", zap.Error(err))
			text = fmt.Sprintf("Error: %v", err)
		}
		err := slack.PostWebhook(responseURL, &slack.WebhookMessage{
			ResponseType: slack.ResponseTypeEphemeral,
			Text:         text,
		})
		if err != nil {
			h.logger.Error("failed to post update result", zap.Error(err))
		}
	}()

	return &slack.Msg{ResponseType: slack.ResponseTypeEphemeral, Text: "Stundenplan wird aktualisiert..."}
}

func (h *SlackHandler) handleDMEnable(ctx context.Context, userID string) *slack.Msg {
	if _, ok := h.store.Get(userID); ok {
		if err := h.store.Update(userID, func(p *users.Preference) { p.Enabled = true }); err != nil {
			return errorMsg(err)
		}
		return confirmMsg("Enabled direct messages")
	}

	// First contact: the group is determined once from the usergroup
	// membership and then stored.
	group, err := h.resolveGroup(ctx, userID)
	if err != nil {
		return errorMsg(err)
	}
	lead := users.DefaultLeadMinutes
	err = h.store.Upsert(userID, func(p *users.Preference) {
		p.Group = group
		p.Enabled = true
		p.LeadMinutes = &lead
		p.FollowPrevious = false
	})
	if err != nil {
		return errorMsg(err)
	}
	return confirmMsg("Enabled direct messages")
}

func (h *SlackHandler) handleDMDisable(userID string) *slack.Msg {
	if err := h.store.Update(userID, func(p *users.Preference) { p.Enabled = false }); err != nil {
		return errorMsg(err)
	}
	return confirmMsg("Disabled direct messages")
}

func (h *SlackHandler) handleDMRemove(userID string) *slack.Msg {
	if err := h.store.Remove(userID); err != nil {
		return errorMsg(err)
	}
	return confirmMsg("Disabled direct messages and removed configuration")
}

func (h *SlackHandler) handleDMSet(cmd *Command, userID string) *slack.Msg {
	if len(cmd.Args) != 2 {
		return errorMsg(fmt.Errorf("usage: dm set <send-before|send-after-previous> <value>"))
	}

	if _, ok := h.store.Get(userID); !ok {
		return errorMsg(fmt.Errorf("user not found (DMs can be enabled with `dm enable`)"))
	}

	switch cmd.Args[0] {
	case "send-before":
		var lead *int
		if cmd.Args[1] != "off" {
			minutes, err := strconv.Atoi(cmd.Args[1])
			if err != nil || minutes <= 0 {
				return errorMsg(fmt.Errorf("unknown value `%s` (available values: number, `off`)", cmd.Args[1]))
			}
			lead = &minutes
		}
		if err := h.store.Update(userID, func(p *users.Preference) { p.LeadMinutes = lead }); err != nil {
			return errorMsg(err)
		}
		return confirmMsg(fmt.Sprintf("Set `send-before` to `%s`", cmd.Args[1]))
	case "send-after-previous":
		var enable bool
		switch cmd.Args[1] {
		case "on":
			enable = true
		case "off":
			enable = false
		default:
			return errorMsg(fmt.Errorf("unknown value `%s` (available values: `on`, `off`)", cmd.Args[1]))
		}
		if err := h.store.Update(userID, func(p *users.Preference) { p.FollowPrevious = enable }); err != nil {
			return errorMsg(err)
		}
		return confirmMsg(fmt.Sprintf("Set `send-after-previous` to `%s`", cmd.Args[1]))
	default:
		return errorMsg(fmt.Errorf("unknown option `%s`", cmd.Args[0]))
	}
}

func (h *SlackHandler) handleDMGet(userID string) *slack.Msg {
	pref, ok := h.store.Get(userID)
	if !ok {
		return errorMsg(fmt.Errorf("user not found (DMs can be enabled with `dm enable`)"))
	}

	sendBefore := "off"
	if pref.LeadMinutes != nil {
		sendBefore = fmt.Sprintf("%dmin", *pref.LeadMinutes)
	}
	sendAfter := "off"
	if pref.FollowPrevious {
		sendAfter = "on"
	}

	return &slack.Msg{
		ResponseType: slack.ResponseTypeEphemeral,
		Attachments: []slack.Attachment{{
			Title: "Configuration",
			Fields: []slack.AttachmentField{
				{Title: "enabled", Value: strconv.FormatBool(pref.Enabled)},
				{Title: "send-before", Value: sendBefore},
				{Title: "send-after-previous", Value: sendAfter},
			},
		}},
	}
}

// resolveGroup returns the stored group of a subscriber, or determines it
// from the Slack usergroup memberships for users without a record.
func (h *SlackHandler) resolveGroup(ctx context.Context, userID string) (timetable.Group, error) {
	if pref, ok := h.store.Get(userID); ok {
		return pref.Group, nil
	}

	for _, group := range timetable.Groups {
		usergroupID := h.cfg.Channel(group).UsergroupID
		if usergroupID == "" {
			continue
		}
		members, err := h.lookup.UsergroupMembers(ctx, usergroupID)
		if err != nil {
			return timetable.NoGroup, err
		}
		for _, member := range members {
			if member == userID {
				return group, nil
			}
		}
	}
	return timetable.NoGroup, nil
}

func sortEntries(entries []timetable.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Session.Start.Before(entries[j].Session.Start)
	})
}

func errorMsg(err error) *slack.Msg {
	return &slack.Msg{ResponseType: slack.ResponseTypeEphemeral, Text: fmt.Sprintf("Error: %v", err)}
}

func confirmMsg(text string) *slack.Msg {
	return &slack.Msg{ResponseType: slack.ResponseTypeEphemeral, Text: text}
}
