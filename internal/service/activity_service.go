package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/pkg/metrics"
)

type ActivityRepository interface {
	Create(ctx context.Context, entry *domain.ActivityLog) error
}

type ActivityEntry struct {
	Action       domain.ActivityAction
	ResourceType string
	ResourceID   string
	Outcome      domain.ActivityOutcome
	Detail       string
}

// ActivityService journals console actions to the local store on a single
// background worker so request handlers never wait on the write.
type ActivityService struct {
	repo    ActivityRepository
	metrics *metrics.Collector
	log     *zap.Logger
	entries chan *domain.ActivityLog
	done    chan struct{}
	once    sync.Once

	// mu guards closed and the close of entries; senders hold the read lock.
	mu     sync.RWMutex
	closed bool
}

const activityBufferSize = 10_000

func NewActivityService(repo ActivityRepository, m *metrics.Collector, log *zap.Logger) *ActivityService {
	return newActivityService(repo, m, log, activityBufferSize)
}

func newActivityService(repo ActivityRepository, m *metrics.Collector, log *zap.Logger, size int) *ActivityService {
	svc := &ActivityService{
		repo:    repo,
		metrics: m,
		log:     log,
		entries: make(chan *domain.ActivityLog, size),
		done:    make(chan struct{}),
	}
	go svc.worker()
	return svc
}

// LogAsync enqueues an entry. If the buffer is full or the service has shut
// down the entry is dropped.
func (s *ActivityService) LogAsync(ctx context.Context, entry ActivityEntry) {
	al := &domain.ActivityLog{
		OccurredAt:   time.Now().UTC(),
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Outcome:      entry.Outcome,
		Detail:       entry.Detail,
		RequestID:    RequestIDFrom(ctx),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.metrics.ActivityBufferDropped.Inc()
		s.log.Debug("activity service stopped, dropping entry",
			zap.String("action", string(entry.Action)),
			zap.String("resource", entry.ResourceType),
		)
		return
	}

	select {
	case s.entries <- al:
	default:
		s.metrics.ActivityBufferDropped.Inc()
		s.log.Warn("activity buffer full, dropping entry",
			zap.String("action", string(entry.Action)),
			zap.String("resource", entry.ResourceType),
		)
	}
}

// Shutdown drains pending entries, waiting at most ten seconds. Entries logged
// afterwards are dropped.
func (s *ActivityService) Shutdown() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.entries)
		s.mu.Unlock()

		select {
		case <-s.done:
		case <-time.After(10 * time.Second):
			s.log.Warn("activity service shutdown timed out; some entries may be lost")
		}
	})
}

func (s *ActivityService) worker() {
	defer close(s.done)
	for entry := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.repo.Create(ctx, entry); err != nil {
			s.log.Error("failed to persist activity entry", zap.Error(err))
		} else {
			s.metrics.ActivityEntriesTotal.Inc()
		}
		cancel()
	}
}

func outcomeOf(err error) domain.ActivityOutcome {
	if err != nil {
		return domain.OutcomeFailure
	}
	return domain.OutcomeSuccess
}

type requestIDKey struct{}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
