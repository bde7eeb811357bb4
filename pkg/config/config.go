package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nn1ks/lsfbot/pkg/timetable"
)

// GroupChannel holds the Slack endpoints of one course group: the channel
// reminders are posted to and the usergroup used for mentions and for
// detecting a subscriber's group membership.
type GroupChannel struct {
	ChannelID   string `json:"channel_id"`
	UsergroupID string `json:"usergroup_id"`
}

// CourseLinks holds the scrape URL and the optional online meeting links of
// one course. Lectures (no group) use the Vorlesungen link, exercise groups
// the Uebungen link.
type CourseLinks struct {
	LSF         string `json:"lsf"`
	Vorlesungen string `json:"vorlesungen,omitempty"`
	Uebungen    string `json:"uebungen,omitempty"`
}

// Config holds all non-secret settings of the bot. Secrets (bot token,
// signing secret) come from the environment.
type Config struct {
	Port      string                  `json:"port"`
	UsersFile string                  `json:"users_file"`
	Groups    map[string]GroupChannel `json:"groups"`
	Links     map[string]CourseLinks  `json:"links"`
}

var courseKeys = map[string]timetable.CourseKind{
	"mathematik1":          timetable.Mathematik1,
	"programmiertechnik1":  timetable.Programmiertechnik1,
	"softwaremodellierung": timetable.Softwaremodellierung,
	"digitaltechnik":       timetable.Digitaltechnik,
}

// Load reads and validates the configuration file at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if cfg.Port == "" {
		cfg.Port = "3000"
	}
	if cfg.UsersFile == "" {
		return nil, fmt.Errorf("config: users_file is required")
	}
	for _, group := range timetable.Groups {
		if _, ok := cfg.Groups[group.Key()]; !ok {
			return nil, fmt.Errorf("config: missing group %q", group.Key())
		}
	}
	for key := range cfg.Groups {
		if !validGroupKey(key) {
			return nil, fmt.Errorf("config: unknown group %q", key)
		}
	}
	for key, links := range cfg.Links {
		if _, ok := courseKeys[key]; !ok {
			return nil, fmt.Errorf("config: unknown course %q", key)
		}
		if links.LSF == "" {
			return nil, fmt.Errorf("config: course %q has no lsf link", key)
		}
	}
	if len(cfg.Links) != len(courseKeys) {
		return nil, fmt.Errorf("config: expected %d course links, got %d", len(courseKeys), len(cfg.Links))
	}

	return &cfg, nil
}

func validGroupKey(key string) bool {
	for _, group := range timetable.Groups {
		if group.Key() == key {
			return true
		}
	}
	return false
}

// Channel returns the Slack endpoints of the given group.
func (c *Config) Channel(group timetable.Group) GroupChannel {
	return c.Groups[group.Key()]
}

// Source is one timetable page to scrape.
type Source struct {
	Kind timetable.CourseKind
	URL  string
}

// Sources returns one scrape source per configured course.
func (c *Config) Sources() []Source {
	var sources []Source
	for key, kind := range courseKeys {
		sources = append(sources, Source{Kind: kind, URL: c.Links[key].LSF})
	}
	return sources
}

// OnlineLink returns the online meeting link for a course, if configured.
// Ungrouped entries are lectures, group entries are exercises.
func (c *Config) OnlineLink(kind timetable.CourseKind, group timetable.Group) string {
	for key, k := range courseKeys {
		if k == kind {
			if group == timetable.NoGroup {
				return c.Links[key].Vorlesungen
			}
			return c.Links[key].Uebungen
		}
	}
	return ""
}
