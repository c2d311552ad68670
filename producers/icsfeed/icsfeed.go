package icsfeed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"go.uber.org/zap"

	"github.com/meetsentinel/meetsentinel/models"
	"github.com/meetsentinel/meetsentinel/producers"
)

var _ producers.Producer = (*Feed)(nil)

var meetingLinkRe = regexp.MustCompile(`https?://[^\s<>"]+`)

var meetingHosts = []string{
	"zoom.us",
	"meet.google.com",
	"teams.microsoft.com",
	"webex.com",
	"gotomeeting.com",
}

// Feed fetches an ICS subscription URL and converts its VEVENT entries into
// events. Malformed entries are skipped, never fatal.
type Feed struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

type Option func(*Feed)

func WithHTTPClient(c *http.Client) Option {
	return func(f *Feed) {
		f.client = c
	}
}

func New(url string, logger *zap.Logger, opts ...Option) *Feed {
	f := &Feed{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

func (f *Feed) Source() models.Source {
	return models.SourceICSFeed
}

func (f *Feed) Fetch(ctx context.Context) ([]models.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	return f.parse(resp.Body)
}

func (f *Feed) parse(r io.Reader) ([]models.Event, error) {
	dec := ical.NewDecoder(r)

	var events []models.Event

	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}

		for _, comp := range cal.Children {
			if comp.Name != ical.CompEvent {
				continue
			}

			ev, ok := f.parseEvent(comp)
			if !ok {
				continue
			}

			events = append(events, ev)
		}
	}

	return events, nil
}

func (f *Feed) parseEvent(comp *ical.Component) (models.Event, bool) {
	var ev models.Event

	ev.Source = models.SourceICSFeed

	if prop := comp.Props.Get(ical.PropUID); prop != nil {
		ev.ID = prop.Value
	}

	if prop := comp.Props.Get(ical.PropSummary); prop != nil {
		ev.Title = prop.Value
	}

	if prop := comp.Props.Get(ical.PropDescription); prop != nil {
		ev.Description = prop.Value
	}

	if prop := comp.Props.Get(ical.PropLocation); prop != nil {
		ev.Location = prop.Value
	}

	prop := comp.Props.Get(ical.PropDateTimeStart)
	if prop == nil {
		f.logger.Debug("skipping entry without start time", zap.String("title", ev.Title))
		return models.Event{}, false
	}

	start, err := prop.DateTime(time.Local)
	if err != nil {
		f.logger.Debug("skipping entry with unparseable start",
			zap.String("title", ev.Title), zap.Error(err))
		return models.Event{}, false
	}

	ev.StartTime = start

	if prop := comp.Props.Get(ical.PropDateTimeEnd); prop != nil {
		if end, err := prop.DateTime(time.Local); err == nil {
			ev.EndTime = end
		}
	}

	if ev.ID == "" {
		ev.ID = fmt.Sprintf("ics-%s-%d", ev.Title, ev.StartTime.Unix())
	}

	ev.MeetingLink = extractMeetingLink(ev.Description, ev.Location)

	if err := ev.Validate(); err != nil {
		f.logger.Debug("skipping malformed entry",
			zap.String("title", ev.Title), zap.Error(err))
		return models.Event{}, false
	}

	return ev, true
}

// extractMeetingLink returns the first URL from a known conferencing host,
// falling back to the first URL found at all.
func extractMeetingLink(fields ...string) string {
	var first string

	for _, field := range fields {
		for _, url := range meetingLinkRe.FindAllString(field, -1) {
			if first == "" {
				first = url
			}

			for _, host := range meetingHosts {
				if strings.Contains(url, host) {
					return url
				}
			}
		}
	}

	return first
}
