package runner

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/meetsentinel/meetsentinel/tlmt"
	"github.com/meetsentinel/meetsentinel/tlmt/gonoop"
	"github.com/meetsentinel/meetsentinel/tlmt/goposthog"
)

const (
	RunModeService = iota + 1
	RunModeSyncOnce
)

const (
	StoreRedis  = "redis"
	StoreSqlite = "sqlite"
	StoreMemory = "memory"
)

var (
	ErrInvalidRunMode = errors.New("invalid run mode")
)

type Runner interface {
	Run(context.Context) error
	Close(context.Context) error
}

type Config struct {
	Addr                 string
	Debug                bool
	Store                string
	SqlitePath           string
	ICSFeeds             []string
	GoogleEventsURL      string
	GoogleTokenURL       string
	GoogleClientID       string
	GoogleClientSecret   string
	OutlookEventsURL     string
	OutlookTokenURL      string
	OutlookClientID      string
	OutlookClientSecret  string
	PollInterval         time.Duration
	TokenRefreshInterval time.Duration
	ProbeURL             string
	DisableTelemetry     bool
	SyncOnce             bool
	RunMode              int
}

func ParseConfig() *Config {
	cfg := Config{}

	var feeds string

	flag.StringVar(&cfg.Addr, "addr", ":8484", "address to listen on for the local API")
	flag.BoolVar(&cfg.Debug, "debug", false, "enable debug logging")
	flag.StringVar(&cfg.Store, "store", StoreRedis, "state store backend: redis, sqlite or memory")
	flag.StringVar(&cfg.SqlitePath, "sqlite", "meetsentinel.db", "path to the sqlite state file [only valid with -store sqlite]")
	flag.StringVar(&feeds, "ics", "", "comma separated list of ICS subscription URLs")
	flag.StringVar(&cfg.GoogleEventsURL, "google-events-url", "", "Google calendar events endpoint")
	flag.StringVar(&cfg.GoogleTokenURL, "google-token-url", "https://oauth2.googleapis.com/token", "Google OAuth token endpoint")
	flag.StringVar(&cfg.OutlookEventsURL, "outlook-events-url", "", "Outlook calendar events endpoint")
	flag.StringVar(&cfg.OutlookTokenURL, "outlook-token-url", "https://login.microsoftonline.com/common/oauth2/v2.0/token", "Outlook OAuth token endpoint")
	flag.DurationVar(&cfg.PollInterval, "poll", 2*time.Minute, "producer poll interval (e.g., '2m')")
	flag.DurationVar(&cfg.TokenRefreshInterval, "token-refresh", 10*time.Minute, "proactive token refresh interval")
	flag.StringVar(&cfg.ProbeURL, "probe-url", "https://www.google.com/generate_204", "URL probed to detect connectivity returning")
	flag.BoolVar(&cfg.SyncOnce, "sync-once", false, "pull all producers once, schedule reminders and exit")

	flag.Parse()

	cfg.GoogleClientID = os.Getenv("SENTINEL_GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = os.Getenv("SENTINEL_GOOGLE_CLIENT_SECRET")
	cfg.OutlookClientID = os.Getenv("SENTINEL_OUTLOOK_CLIENT_ID")
	cfg.OutlookClientSecret = os.Getenv("SENTINEL_OUTLOOK_CLIENT_SECRET")

	if feeds != "" {
		cfg.ICSFeeds = strings.Split(feeds, ",")
	}

	switch cfg.Store {
	case StoreRedis, StoreSqlite, StoreMemory:
	default:
		panic("store must be one of redis, sqlite, memory")
	}

	if cfg.PollInterval < 10*time.Second {
		panic("poll interval must be at least 10s")
	}

	switch {
	case cfg.SyncOnce:
		cfg.RunMode = RunModeSyncOnce
	default:
		cfg.RunMode = RunModeService
	}

	return &cfg
}

var (
	telemetryOnce sync.Once
	telemetry     tlmt.Telemetry
)

func Telemetry() tlmt.Telemetry {
	telemetryOnce.Do(func() {
		disableTel := func() bool {
			return os.Getenv("DISABLE_TELEMETRY") == "1"
		}()

		if disableTel {
			telemetry = gonoop.New()

			return
		}

		val, err := goposthog.New("phc_wJ2yU1XpeyVFOEZ4PrLHbCzeEyzqAHBGuLpOQx5YetM", "https://eu.i.posthog.com")
		if err != nil || val == nil {
			telemetry = gonoop.New()

			return
		}

		telemetry = val
	})

	return telemetry
}

// wrapByWidth breaks text into lines no wider than width terminal cells,
// counting display width rather than runes.
func wrapByWidth(text string, width int) []string {
	var (
		lines []string
		line  strings.Builder
		used  int
	)

	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if used+w > width {
			lines = append(lines, line.String())
			line.Reset()
			used = 0
		}

		line.WriteRune(r)
		used += w
	}

	if line.Len() > 0 {
		lines = append(lines, line.String())
	}

	return lines
}

func banner(messages []string, width int) string {
	if width <= 0 {
		w, _, err := term.GetSize(0)
		if err != nil {
			w = 80
		}

		width = w
	}

	if width < 20 {
		width = 20
	}

	inner := width - 4

	var b strings.Builder

	b.WriteString("╔" + strings.Repeat("═", width-2) + "╗\n")

	for _, msg := range messages {
		for _, line := range wrapByWidth(msg, inner) {
			pad := inner - runewidth.StringWidth(line)
			if pad < 0 {
				pad = 0
			}

			b.WriteString("║ " + line + strings.Repeat(" ", pad) + " ║\n")
		}
	}

	b.WriteString("╚" + strings.Repeat("═", width-2) + "╝\n")

	return b.String()
}

func Banner() {
	message1 := "⏰ Meet Sentinel"
	message2 := "🔔 Never miss a meeting: deduplicated calendars, durable reminders, conflict alerts"

	fmt.Fprintln(os.Stderr, banner([]string{message1, message2}, 0))
}
