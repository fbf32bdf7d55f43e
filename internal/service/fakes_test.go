package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain/scan"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/pkg/metrics"
)

type staticResolver struct {
	token auth.Credential
}

func (r staticResolver) Resolve(context.Context) (auth.Credential, bool) {
	return r.token, r.token != ""
}

// fakeScans records every call in order so tests can assert sequencing.
type fakeScans struct {
	mu    sync.Mutex
	calls []string

	created    []scan.Created
	uploadErr  error
	prediction *scan.Prediction
	predictErr error
	records    []scan.Record
	listErr    error
	deleteErr  error

	// deleteHook runs inside Delete before it returns.
	deleteHook func()
}

func (f *fakeScans) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeScans) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeScans) Upload(_ context.Context, token string, req *scan.UploadRequest) ([]scan.Created, error) {
	f.record("upload:" + token)
	return f.created, f.uploadErr
}

func (f *fakeScans) Predict(_ context.Context, token string, id domain.ID) (*scan.Prediction, error) {
	f.record("predict:" + id.String())
	return f.prediction, f.predictErr
}

func (f *fakeScans) ListAll(context.Context, string) ([]scan.Record, error) {
	f.record("list")
	return f.records, f.listErr
}

func (f *fakeScans) Delete(_ context.Context, _ string, id domain.ID) error {
	f.record("delete:" + id.String())
	if f.deleteHook != nil {
		f.deleteHook()
	}
	return f.deleteErr
}

type fakePatients struct {
	raw []patient.Raw
	err error
}

func (f *fakePatients) ListForUser(context.Context, string) ([]patient.Raw, error) {
	return f.raw, f.err
}

type memStore struct {
	mu     sync.Mutex
	values map[string]string
	err    error
	gets   int
}

func (m *memStore) Gets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets
}

func newMemStore() *memStore {
	return &memStore{values: map[string]string{}}
}

func (m *memStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	return nil
}

func (m *memStore) SetMany(ctx context.Context, values map[string]string) error {
	for k, v := range values {
		if err := m.Set(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

type fakeActivityRepo struct {
	mu      sync.Mutex
	entries []domain.ActivityLog
	err     error
}

func (r *fakeActivityRepo) Create(_ context.Context, e *domain.ActivityLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, *e)
	return nil
}

func (r *fakeActivityRepo) Entries() []domain.ActivityLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ActivityLog(nil), r.entries...)
}

var errBoom = errors.New("boom")

func testMetrics() *metrics.Collector {
	return metrics.NewCollector("test", prometheus.NewRegistry())
}

// testActivity returns a running journal and its backing repo. Shutdown is
// registered as cleanup.
func testActivity(t *testing.T) (*ActivityService, *fakeActivityRepo) {
	t.Helper()
	repo := &fakeActivityRepo{}
	svc := NewActivityService(repo, testMetrics(), zap.NewNop())
	t.Cleanup(svc.Shutdown)
	return svc, repo
}

func intPtr(v int) *int { return &v }

func rec(id, name string) scan.Record {
	return scan.Record{ScanID: domain.ID(id), Patient: &scan.PatientRef{Name: name}}
}
