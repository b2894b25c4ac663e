package worker

import (
	"context"
	"encoding/json"

	"sjsage522/dealfinder/internal/models"
	"sjsage522/dealfinder/services/publisher"
	"sjsage522/dealfinder/services/store"
)

// DealSink receives every admitted deal
type DealSink interface {
	Name() string
	Persist(ctx context.Context, deal models.Deal) error
}

// RunHook is implemented by sinks that need housekeeping after each run
type RunHook interface {
	AfterRun(ctx context.Context) error
}

// PublisherSink publishes deals as JSON on the retailer's stream
type PublisherSink struct {
	Publisher publisher.Publisher
}

// Name identifies the sink in logs and metrics
func (s PublisherSink) Name() string { return "redis" }

// Persist publishes deal keyed by its retailer
func (s PublisherSink) Persist(ctx context.Context, deal models.Deal) error {
	data, err := json.Marshal(deal)
	if err != nil {
		return err
	}
	return s.Publisher.Publish(ctx, deal.Retailer, data)
}

// AfterRun trims all streams after crawling
func (s PublisherSink) AfterRun(ctx context.Context) error {
	return s.Publisher.TrimStreams(ctx)
}

// StoreSink upserts deals into a DealStore
type StoreSink struct {
	Store store.DealStore
}

// Name identifies the sink in logs and metrics
func (s StoreSink) Name() string { return "sqlite" }

// Persist saves deal
func (s StoreSink) Persist(ctx context.Context, deal models.Deal) error {
	return s.Store.Save(ctx, deal)
}
