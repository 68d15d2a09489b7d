package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"redwatch/internal/scan/metrics"
	"redwatch/internal/source"
	"redwatch/pkg/platform/sentinel"
)

type fakeSource struct {
	mu      sync.Mutex
	pages   map[string]string // nationality -> page body; absent means empty page
	fail    map[string]error
	queries []source.Query
}

func (f *fakeSource) SearchPage(_ context.Context, q source.Query) (*source.Page, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)

	if err, ok := f.fail[q.Nationality]; ok {
		return nil, nil, err
	}
	body, ok := f.pages[q.Nationality]
	if !ok {
		body = `{"total":0,"_embedded":{"notices":[]}}`
	}
	var page source.Page
	if err := json.Unmarshal([]byte(body), &page); err != nil {
		return nil, nil, err
	}
	return &page, []byte(body), nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published [][]byte
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, body)
	return nil
}

func newTestProducer(src Source, queue Publisher) *Producer {
	return NewProducer(src, queue, Config{PageSize: 160}, slog.New(slog.DiscardHandler), metrics.New(prometheus.NewRegistry()))
}

const onePersonPage = `{"total":1,"_embedded":{"notices":[{"entity_id":"2026/1111","name":"DOE","nationalities":["TR"]}]}}`

func TestRunCyclePublishesOnlyNonEmptyPages(t *testing.T) {
	src := &fakeSource{pages: map[string]string{"TR": onePersonPage}}
	queue := &fakePublisher{}

	published, err := newTestProducer(src, queue).RunCycle(context.Background())
	require.NoError(t, err)

	// TR has one page body served for every one of its age bands.
	require.Equal(t, len(ageBands), published)
	require.Len(t, queue.published, len(ageBands))
	require.JSONEq(t, onePersonPage, string(queue.published[0]), "the raw page body is the message payload")

	// Every partition was visited with the configured page cap.
	require.Len(t, src.queries, len(countryCodes)*len(ageBands))
	for _, q := range src.queries {
		require.Equal(t, 160, q.PageSize)
	}
}

func TestRunCycleIsolatesPartitionErrors(t *testing.T) {
	src := &fakeSource{
		pages: map[string]string{"TR": onePersonPage},
		fail:  map[string]error{"FR": errors.New("connection reset")},
	}
	queue := &fakePublisher{}

	published, err := newTestProducer(src, queue).RunCycle(context.Background())
	require.NoError(t, err, "partition failures must not abort the cycle")
	require.Equal(t, len(ageBands), published)
}

func TestRunCycleAbortsOnQueueFailure(t *testing.T) {
	src := &fakeSource{pages: map[string]string{"TR": onePersonPage}}
	queue := &fakePublisher{err: errors.New("broker gone")}

	_, err := newTestProducer(src, queue).RunCycle(context.Background())
	require.Error(t, err, "a dead queue connection aborts the whole cycle")
}

func TestRunCycleBacksOffOnRateLimit(t *testing.T) {
	src := &fakeSource{
		fail: map[string]error{"TR": fmt.Errorf("search: %w", sentinel.ErrRateLimited)},
	}
	queue := &fakePublisher{}

	// Zero backoff keeps the test fast; the point is that 429 is survivable.
	p := NewProducer(src, queue, Config{PageSize: 160}, slog.New(slog.DiscardHandler), metrics.New(prometheus.NewRegistry()))
	published, err := p.RunCycle(context.Background())
	require.NoError(t, err)
	require.Zero(t, published)
}

func TestRunCycleStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{}
	_, err := newTestProducer(src, &fakePublisher{}).RunCycle(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
