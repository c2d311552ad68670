// Package reconcile merges raw event reports from multiple producers into a
// single canonical, deduplicated set.
package reconcile

import (
	"github.com/meetsentinel/meetsentinel/eventkey"
	"github.com/meetsentinel/meetsentinel/models"
)

// Reconcile folds incoming raw events into the existing canonical set. Two
// reports collide when their identity keys match, even across producers with
// different IDs. On collision the report with the higher richness score wins;
// ties keep the existing entry. The merge is commutative and idempotent, so
// concurrently arriving batches may interleave in any order.
//
// Malformed events are dropped. Persistence is the caller's responsibility.
func Reconcile(existing []models.CanonicalEvent, incoming []models.Event) []models.CanonicalEvent {
	byKey := make(map[string]models.CanonicalEvent, len(existing)+len(incoming))
	order := make([]string, 0, len(existing)+len(incoming))

	for _, ce := range existing {
		key := ce.Key
		if key == "" {
			key = eventkey.ForEvent(ce.Title, ce.StartTime)
			ce.Key = key
		}

		if _, ok := byKey[key]; !ok {
			order = append(order, key)
		}

		byKey[key] = ce
	}

	for _, ev := range incoming {
		if err := ev.Validate(); err != nil {
			continue
		}

		key := eventkey.ForEvent(ev.Title, ev.StartTime)

		current, ok := byKey[key]
		if !ok {
			order = append(order, key)
			byKey[key] = models.CanonicalEvent{Event: ev, Key: key}

			continue
		}

		if ev.RichnessScore() > current.Event.RichnessScore() {
			byKey[key] = models.CanonicalEvent{Event: ev, Key: key}
		}
	}

	out := make([]models.CanonicalEvent, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}

	return out
}

// DropScraped removes scrape-sourced events for providers that also have an
// active authenticated API feed. Scraped duplicates for such providers are
// systematically noisier, so they are dropped pre-emptively instead of
// merged. Policy, not a correctness requirement.
func DropScraped(events []models.Event, connectedProviders map[string]bool) []models.Event {
	out := make([]models.Event, 0, len(events))

	for _, ev := range events {
		provider := ev.Source.Provider()
		if ev.Source.IsScrape() && provider != "" && connectedProviders[provider] {
			continue
		}

		out = append(out, ev)
	}

	return out
}
