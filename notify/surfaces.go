package notify

import "context"

// The platform primitives behind the channels. Implementations live outside
// the dispatch logic so tests can swap them for fakes.

// Notification is an OS-level notification, with an optional action button.
type Notification struct {
	Title       string
	Body        string
	ActionLabel string
	ActionURL   string
}

// Notifier creates OS notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Popup describes a focus-stealing surface positioned relative to the
// currently active window.
type Popup struct {
	Title string
	Body  string
	Link  string
}

// PopupSurface shows popups.
type PopupSurface interface {
	ShowPopup(ctx context.Context, p Popup) error
}

// CueSurface renders a short audio cue. Surfaces may die with the device
// they were created on, so the sound channel lazily creates one and
// recreates it once on send failure before giving up.
type CueSurface interface {
	PlayCue(ctx context.Context) error
	Close() error
}

// CueSurfaceFactory creates a fresh cue surface.
type CueSurfaceFactory func() (CueSurface, error)

// Speaker renders synthesized speech.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// BadgeState is one step of the badge flash sequence.
type BadgeState struct {
	Color  string
	Text   string
	Urgent bool
}

// Badge sets the persistent badge surface.
type Badge interface {
	SetState(ctx context.Context, state BadgeState) error
}

// Navigator opens meeting links in the user's browser.
type Navigator interface {
	OpenURL(ctx context.Context, url string) error
}
