package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meetsentinel/meetsentinel/models"
	"github.com/meetsentinel/meetsentinel/notify"
)

type fakeNotifier struct {
	sent []notify.Notification
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, n notify.Notification) error {
	f.sent = append(f.sent, n)

	return f.err
}

type fakePopup struct {
	shown []notify.Popup
	err   error
}

func (f *fakePopup) ShowPopup(_ context.Context, p notify.Popup) error {
	f.shown = append(f.shown, p)

	return f.err
}

type fakeSpeaker struct {
	spoken []string
}

func (f *fakeSpeaker) Speak(_ context.Context, text string) error {
	f.spoken = append(f.spoken, text)

	return nil
}

type fakeBadge struct {
	states []notify.BadgeState
}

func (f *fakeBadge) SetState(_ context.Context, s notify.BadgeState) error {
	f.states = append(f.states, s)

	return nil
}

type fakeNavigator struct {
	opened []string
}

func (f *fakeNavigator) OpenURL(_ context.Context, url string) error {
	f.opened = append(f.opened, url)

	return nil
}

type fakeCueSurface struct {
	plays   int
	failure error
	closed  bool
}

func (f *fakeCueSurface) PlayCue(context.Context) error {
	f.plays++

	return f.failure
}

func (f *fakeCueSurface) Close() error {
	f.closed = true

	return nil
}

func reminder() models.CanonicalEvent {
	return models.CanonicalEvent{
		Event: models.Event{
			Title:       "weekly sync",
			StartTime:   time.Now().Add(2 * time.Minute),
			MeetingLink: "https://meet.example.com/abc",
		},
		Key: "weekly sync@123",
	}
}

func allOn() models.ReminderConfig {
	return models.ReminderConfig{
		ShowPopup:     true,
		PlaySound:     true,
		VoiceReminder: true,
		AutoOpen:      true,
		LeadMinutes:   2,
	}
}

func TestSystemChannel(t *testing.T) {
	t.Run("title carries lead minutes and link becomes action", func(t *testing.T) {
		n := &fakeNotifier{}
		ch := notify.NewSystemChannel(n)

		require.NoError(t, ch.Send(context.Background(), reminder(), allOn()))
		require.Len(t, n.sent, 1)

		assert.Equal(t, "Meeting starting in 2m", n.sent[0].Title)
		assert.Equal(t, "weekly sync", n.sent[0].Body)
		assert.Equal(t, "Join", n.sent[0].ActionLabel)
		assert.Equal(t, "https://meet.example.com/abc", n.sent[0].ActionURL)
	})

	t.Run("no link means no action", func(t *testing.T) {
		n := &fakeNotifier{}
		ch := notify.NewSystemChannel(n)

		ev := reminder()
		ev.MeetingLink = ""

		require.NoError(t, ch.Send(context.Background(), ev, allOn()))
		assert.Empty(t, n.sent[0].ActionLabel)
	})

	t.Run("always enabled", func(t *testing.T) {
		ch := notify.NewSystemChannel(&fakeNotifier{})
		assert.True(t, ch.Enabled(models.ReminderConfig{}))
	})
}

func TestChannelGating(t *testing.T) {
	popup := notify.NewPopupChannel(&fakePopup{})
	sound := notify.NewSoundChannel(func() (notify.CueSurface, error) { return &fakeCueSurface{}, nil })
	speech := notify.NewSpeechChannel(&fakeSpeaker{})
	autoopen := notify.NewAutoOpenChannel(&fakeNavigator{})

	off := models.ReminderConfig{LeadMinutes: 2}

	assert.False(t, popup.Enabled(off))
	assert.False(t, sound.Enabled(off))
	assert.False(t, speech.Enabled(off))
	assert.False(t, autoopen.Enabled(off))

	on := allOn()

	assert.True(t, popup.Enabled(on))
	assert.True(t, sound.Enabled(on))
	assert.True(t, speech.Enabled(on))
	assert.True(t, autoopen.Enabled(on))
}

func TestDispatcherFailureIndependence(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("notification daemon down")}
	popup := &fakePopup{err: errors.New("no display")}
	speaker := &fakeSpeaker{}
	badge := &fakeBadge{}
	navigator := &fakeNavigator{}

	d := notify.NewDispatcher(zap.NewNop(),
		notify.NewSystemChannel(notifier),
		notify.NewPopupChannel(popup),
		notify.NewSpeechChannel(speaker),
		notify.NewBadgeChannel(badge, notify.WithFlashInterval(0)),
		notify.NewAutoOpenChannel(navigator, notify.WithOpenDelay(0)),
	)

	err := d.Dispatch(context.Background(), reminder(), allOn())

	// two channels failed, and the rest still ran
	require.Error(t, err)
	assert.Contains(t, err.Error(), "system")
	assert.Contains(t, err.Error(), "popup")

	assert.Len(t, speaker.spoken, 1)
	assert.NotEmpty(t, badge.states)
	assert.Equal(t, []string{"https://meet.example.com/abc"}, navigator.opened)
}

func TestDispatcherSkipsDisabledChannels(t *testing.T) {
	popup := &fakePopup{}
	navigator := &fakeNavigator{}

	d := notify.NewDispatcher(zap.NewNop(),
		notify.NewPopupChannel(popup),
		notify.NewAutoOpenChannel(navigator, notify.WithOpenDelay(0)),
	)

	cfg := models.ReminderConfig{ShowPopup: true, LeadMinutes: 2}

	require.NoError(t, d.Dispatch(context.Background(), reminder(), cfg))
	assert.Len(t, popup.shown, 1)
	assert.Empty(t, navigator.opened)
}

func TestSoundChannelRecreatesSurfaceOnce(t *testing.T) {
	t.Run("healthy surface reused", func(t *testing.T) {
		surface := &fakeCueSurface{}
		created := 0

		ch := notify.NewSoundChannel(func() (notify.CueSurface, error) {
			created++

			return surface, nil
		})

		require.NoError(t, ch.Send(context.Background(), reminder(), allOn()))
		require.NoError(t, ch.Send(context.Background(), reminder(), allOn()))

		assert.Equal(t, 1, created)
		assert.Equal(t, 2, surface.plays)
	})

	t.Run("dead surface recreated once", func(t *testing.T) {
		dead := &fakeCueSurface{failure: errors.New("device gone")}
		healthy := &fakeCueSurface{}
		surfaces := []*fakeCueSurface{dead, healthy}
		created := 0

		ch := notify.NewSoundChannel(func() (notify.CueSurface, error) {
			s := surfaces[created]
			created++

			return s, nil
		})

		require.NoError(t, ch.Send(context.Background(), reminder(), allOn()))

		assert.Equal(t, 2, created)
		assert.True(t, dead.closed)
		assert.Equal(t, 1, healthy.plays)
	})

	t.Run("gives up after one recreate", func(t *testing.T) {
		created := 0

		ch := notify.NewSoundChannel(func() (notify.CueSurface, error) {
			created++

			return &fakeCueSurface{failure: errors.New("device gone")}, nil
		})

		assert.Error(t, ch.Send(context.Background(), reminder(), allOn()))
		assert.Equal(t, 2, created)
	})
}

func TestBadgeChannelSequence(t *testing.T) {
	badge := &fakeBadge{}
	ch := notify.NewBadgeChannel(badge, notify.WithFlashInterval(0))

	require.NoError(t, ch.Send(context.Background(), reminder(), allOn()))
	require.Greater(t, len(badge.states), 2)

	final := badge.states[len(badge.states)-1]
	assert.True(t, final.Urgent)
	assert.Equal(t, "2m", final.Text)

	// the flash alternates colors before settling
	assert.NotEqual(t, badge.states[0].Color, badge.states[1].Color)

	for _, s := range badge.states[:len(badge.states)-1] {
		assert.False(t, s.Urgent)
	}
}

func TestAutoOpenChannel(t *testing.T) {
	t.Run("no link is a no-op", func(t *testing.T) {
		navigator := &fakeNavigator{}
		ch := notify.NewAutoOpenChannel(navigator, notify.WithOpenDelay(0))

		ev := reminder()
		ev.MeetingLink = ""

		require.NoError(t, ch.Send(context.Background(), ev, allOn()))
		assert.Empty(t, navigator.opened)
	})

	t.Run("cancelled context aborts the delay", func(t *testing.T) {
		navigator := &fakeNavigator{}
		ch := notify.NewAutoOpenChannel(navigator, notify.WithOpenDelay(time.Minute))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.Error(t, ch.Send(ctx, reminder(), allOn()))
		assert.Empty(t, navigator.opened)
	})
}
