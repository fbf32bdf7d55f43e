package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain/scan"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/pkg/metrics"
)

// Names of the two halves of a history load, as reported in Aggregate.Degraded.
const (
	HalfScans    = "scans"
	HalfPatients = "patients"
)

// Aggregate is the result of one history load. A half that failed to fetch
// is empty and named in Degraded.
type Aggregate struct {
	Scans    []scan.Record
	Patients []patient.Summary
	Degraded []string
	LoadedAt time.Time
}

type HistoryAggregator struct {
	creds    CredentialResolver
	scans    scan.Repository
	patients patient.Repository
	metrics  *metrics.Collector
	log      *zap.Logger
}

func NewHistoryAggregator(creds CredentialResolver, scans scan.Repository, patients patient.Repository, m *metrics.Collector, log *zap.Logger) *HistoryAggregator {
	return &HistoryAggregator{creds: creds, scans: scans, patients: patients, metrics: m, log: log}
}

// LoadAll fetches the scan history and the patient list concurrently. The
// only error it returns is ErrUnauthenticated; fetch failures degrade.
func (a *HistoryAggregator) LoadAll(ctx context.Context) (*Aggregate, error) {
	token, ok := a.creds.Resolve(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	var (
		wg       sync.WaitGroup
		records  []scan.Record
		raw      []patient.Raw
		scansErr error
		rawErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		records, scansErr = a.scans.ListAll(ctx, token.String())
	}()
	go func() {
		defer wg.Done()
		raw, rawErr = a.patients.ListForUser(ctx, token.String())
	}()
	wg.Wait()

	agg := &Aggregate{
		Scans:    []scan.Record{},
		Patients: []patient.Summary{},
		LoadedAt: time.Now().UTC(),
	}

	if scansErr != nil {
		a.degrade(agg, HalfScans, scansErr)
	} else if records != nil {
		agg.Scans = records
	}

	if rawErr != nil {
		a.degrade(agg, HalfPatients, rawErr)
	} else {
		agg.Patients = patient.Summarize(raw)
	}

	a.log.Debug("history loaded",
		zap.Int("scans", len(agg.Scans)),
		zap.Int("patients", len(agg.Patients)),
		zap.Strings("degraded", agg.Degraded),
	)
	return agg, nil
}

func (a *HistoryAggregator) degrade(agg *Aggregate, half string, err error) {
	agg.Degraded = append(agg.Degraded, half)
	a.metrics.HistoryFetchDegraded.WithLabelValues(half).Inc()
	a.log.Warn("history fetch degraded to empty", zap.String("half", half), zap.Error(err))
}
