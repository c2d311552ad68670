// Package models holds the domain entities shared across the service.
package models

import (
	"errors"
	"time"
)

// Source identifies the producer family an event report came from.
type Source string

const (
	SourceGoogleAPI     Source = "google-api"
	SourceGoogleScrape  Source = "google-scrape"
	SourceOutlookAPI    Source = "outlook-api"
	SourceOutlookScrape Source = "outlook-scrape"
	SourceICSFeed       Source = "ics-feed"
)

// Provider returns the provider a source belongs to, or empty for
// provider-less sources such as plain ICS feeds.
func (s Source) Provider() string {
	switch s {
	case SourceGoogleAPI, SourceGoogleScrape:
		return "google"
	case SourceOutlookAPI, SourceOutlookScrape:
		return "outlook"
	default:
		return ""
	}
}

// IsScrape reports whether the source is from the scrape family.
func (s Source) IsScrape() bool {
	return s == SourceGoogleScrape || s == SourceOutlookScrape || s == SourceICSFeed
}

// ResponseStatus is an attendee's reply to a meeting invitation.
type ResponseStatus string

const (
	ResponseAccepted    ResponseStatus = "accepted"
	ResponseDeclined    ResponseStatus = "declined"
	ResponseTentative   ResponseStatus = "tentative"
	ResponseNeedsAction ResponseStatus = "needsAction"
)

// Attendee is one invitee on a meeting.
type Attendee struct {
	Email          string         `json:"email"`
	DisplayName    string         `json:"display_name,omitempty"`
	ResponseStatus ResponseStatus `json:"response_status,omitempty"`
	Self           bool           `json:"self,omitempty"`
}

var (
	ErrMissingStart = errors.New("event has no start time")
	ErrEndBeforeStart = errors.New("event ends before it starts")
)

// Event is a raw meeting report from one producer. IDs are producer-scoped
// and not globally unique.
type Event struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time,omitempty"`
	Attendees   []Attendee `json:"attendees,omitempty"`
	MeetingLink string     `json:"meeting_link,omitempty"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	Source      Source     `json:"source"`
}

// Validate rejects malformed reports. Malformed events are dropped by the
// caller, never propagated (one bad report must not stop the rest).
func (e *Event) Validate() error {
	if e.StartTime.IsZero() {
		return ErrMissingStart
	}

	if !e.EndTime.IsZero() && e.EndTime.Before(e.StartTime) {
		return ErrEndBeforeStart
	}

	return nil
}

// EndOrDefault returns the end time, defaulting to start+1h when absent.
func (e *Event) EndOrDefault() time.Time {
	if e.EndTime.IsZero() {
		return e.StartTime.Add(time.Hour)
	}

	return e.EndTime
}

// SelfDeclined reports whether the user's own attendee record is declined.
func (e *Event) SelfDeclined() bool {
	for _, a := range e.Attendees {
		if a.Self && a.ResponseStatus == ResponseDeclined {
			return true
		}
	}

	return false
}

// RichnessScore measures how much detail a raw report carries. Used to pick
// the best duplicate without hard-coding provider priority.
func (e *Event) RichnessScore() int {
	score := len(e.Attendees) + len(e.Description) + len(e.Location)
	if e.MeetingLink != "" {
		score += 2
	}

	return score
}

// CanonicalEvent is the deduplicated, conflict-annotated projection of one
// or more raw events believed to represent the same meeting. Replaced, never
// mutated in place, when a richer report arrives.
type CanonicalEvent struct {
	Event

	Key           string `json:"key"`
	HasConflict   bool   `json:"has_conflict"`
	ConflictCount int    `json:"conflict_count"`
}

// Severity grades how badly two meetings collide.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Conflict is a pairwise time overlap between two canonical events.
type Conflict struct {
	A        string   `json:"a"`
	B        string   `json:"b"`
	Overlap  time.Duration `json:"overlap"`
	Severity Severity `json:"severity"`
}

// TokenRecord holds per-provider bearer credentials. Owned exclusively by
// the token manager; a disconnected record must never be used for calls.
type TokenRecord struct {
	Provider     string    `json:"provider"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	Connected    bool      `json:"connected"`
}

// ReminderConfig enumerates the user-facing reminder settings.
type ReminderConfig struct {
	ShowPopup     bool `json:"show_popup"`
	PlaySound     bool `json:"play_sound"`
	VoiceReminder bool `json:"voice_reminder"`
	AutoOpen      bool `json:"auto_open"`
	LeadMinutes   int  `json:"lead_minutes"`
}

// DefaultReminderConfig is used when no settings have been persisted yet.
func DefaultReminderConfig() ReminderConfig {
	return ReminderConfig{
		ShowPopup:   true,
		PlaySound:   true,
		LeadMinutes: 2,
	}
}
