// Package producers defines the external event feeds. Producers push raw
// event batches; the core makes no assumption about their arrival frequency
// or ordering.
package producers

import (
	"context"

	"github.com/meetsentinel/meetsentinel/models"
)

// Producer fetches one batch of raw events from an upstream source.
type Producer interface {
	Source() models.Source
	Fetch(ctx context.Context) ([]models.Event, error)
}
