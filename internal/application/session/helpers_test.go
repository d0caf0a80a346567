package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hilthontt/sketchroom/internal/domain"
	"github.com/hilthontt/sketchroom/internal/infrastructure/registry"
	"github.com/hilthontt/sketchroom/internal/infrastructure/repository"
	"github.com/hilthontt/sketchroom/internal/infrastructure/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// inlineJobs runs background jobs synchronously so tests can assert on
// their effects right after an operation returns.
type inlineJobs struct{}

func (inlineJobs) Submit(job worker.Job) error {
	return job.Fn(context.Background())
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.LifecycleEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.LifecycleEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]string, len(p.events))
	for i, e := range p.events {
		kinds[i] = e.Kind
	}
	return kinds
}

type fixture struct {
	service   *Service
	registry  *registry.Registry
	chats     domain.ChatArchive
	drawings  *repository.DrawingArchive
	publisher *recordingPublisher
}

func newFixture(t *testing.T, maxMessageLength int) *fixture {
	t.Helper()

	reg := registry.New(registry.Options{Shards: 8, ChatHistoryCapacity: 100, StrokeHistoryCapacity: 100})
	f := &fixture{
		registry:  reg,
		chats:     repository.NewMessageArchive(100),
		drawings:  repository.NewDrawingArchive(),
		publisher: &recordingPublisher{},
	}
	f.service = NewService(Options{
		Registry:         reg,
		Logger:           zaptest.NewLogger(t).Sugar(),
		ChatArchive:      f.chats,
		DrawingArchive:   f.drawings,
		Publisher:        f.publisher,
		Jobs:             inlineJobs{},
		MaxMessageLength: maxMessageLength,
		Now:              func() time.Time { return time.Unix(1_700_000_000, 0).UTC() },
	})

	return f
}

// gaugeValue reads an unlabelled gauge from a gathered registry.
func gaugeValue(t *testing.T, gatherer prometheus.Gatherer, name string) float64 {
	t.Helper()

	families, err := gatherer.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			return family.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("gauge %s not registered", name)
	return 0
}
