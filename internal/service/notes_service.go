package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/pkg/metrics"
)

// NotesKey is the store key for the clinician's free-text notes. The notes
// are global to the workstation, not tied to a scan or patient.
const NotesKey = "doctor_notes"

// KeyValueStore is the console's persistent local storage.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	SetMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

type NotesService struct {
	store       KeyValueStore
	activitySvc *ActivityService
	metrics     *metrics.Collector
	log         *zap.Logger

	mu      sync.Mutex
	text    string
	mounted bool
}

func NewNotesService(store KeyValueStore, activitySvc *ActivityService, m *metrics.Collector, log *zap.Logger) *NotesService {
	return &NotesService{store: store, activitySvc: activitySvc, metrics: m, log: log}
}

// Mount loads the persisted notes into memory on first use and serves the
// in-memory copy afterwards. A missing key yields "". A failed read leaves
// the service unmounted so the next call retries.
func (s *NotesService) Mount(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mounted {
		return s.text, nil
	}

	text, _, err := s.store.Get(ctx, NotesKey)
	if err != nil {
		return "", fmt.Errorf("loading notes: %w", err)
	}
	s.text = text
	s.mounted = true
	return text, nil
}

func (s *NotesService) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

func (s *NotesService) Save(ctx context.Context, text string) (Notice, error) {
	if err := s.store.Set(ctx, NotesKey, text); err != nil {
		s.log.Error("failed to save notes", zap.Error(err))
		return Notice{}, fmt.Errorf("saving notes: %w", err)
	}

	s.mu.Lock()
	s.text = text
	s.mounted = true
	s.mu.Unlock()

	s.metrics.NotesWritesTotal.WithLabelValues("save").Inc()
	s.activitySvc.LogAsync(ctx, ActivityEntry{
		Action:       domain.ActionNotesSave,
		ResourceType: "notes",
		Outcome:      domain.OutcomeSuccess,
		Detail:       fmt.Sprintf("%d characters", len([]rune(text))),
	})
	return Notice{Message: "Notes saved."}, nil
}

func (s *NotesService) Clear(ctx context.Context) (Notice, error) {
	if err := s.store.Delete(ctx, NotesKey); err != nil {
		s.log.Error("failed to clear notes", zap.Error(err))
		return Notice{}, fmt.Errorf("clearing notes: %w", err)
	}

	s.mu.Lock()
	s.text = ""
	s.mounted = true
	s.mu.Unlock()

	s.metrics.NotesWritesTotal.WithLabelValues("clear").Inc()
	s.activitySvc.LogAsync(ctx, ActivityEntry{
		Action:       domain.ActionNotesClear,
		ResourceType: "notes",
		Outcome:      domain.OutcomeSuccess,
	})
	return Notice{Message: "Notes cleared."}, nil
}
