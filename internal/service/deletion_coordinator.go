package service

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain/scan"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/pkg/metrics"
)

// DeletionCoordinator drives idle -> confirm_pending -> deleting -> idle
// against the shared HistoryView. The remote call runs with the view lock
// released; the deleting phase keeps a second delete out meanwhile.
type DeletionCoordinator struct {
	view        *HistoryView
	creds       CredentialResolver
	scans       scan.Repository
	activitySvc *ActivityService
	metrics     *metrics.Collector
	log         *zap.Logger
}

func NewDeletionCoordinator(
	view *HistoryView,
	creds CredentialResolver,
	scans scan.Repository,
	activitySvc *ActivityService,
	m *metrics.Collector,
	log *zap.Logger,
) *DeletionCoordinator {
	return &DeletionCoordinator{
		view:        view,
		creds:       creds,
		scans:       scans,
		activitySvc: activitySvc,
		metrics:     m,
		log:         log,
	}
}

// Request asks for confirmation to delete the scan at position (zero based)
// in the current filtered list. The scan id is captured now, so a later
// filter change cannot redirect the delete.
func (d *DeletionCoordinator) Request(position int) (DeletionStatus, error) {
	v := d.view
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.deletion.Phase != DeletionIdle {
		return v.deletion, ErrDeleteInProgress
	}
	if position < 0 || position >= len(v.filtered) {
		return v.deletion, ErrInvalidPosition
	}

	rec := v.filtered[position]
	v.setDeletion(DeletionStatus{
		Phase:       DeletionConfirmPending,
		ScanID:      rec.ScanID,
		PatientName: rec.PatientName(),
	})
	return v.deletion, nil
}

// RequestScan is Request keyed by scan id. The scan must be visible in the
// current filtered list.
func (d *DeletionCoordinator) RequestScan(id domain.ID) (DeletionStatus, error) {
	v := d.view
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.deletion.Phase != DeletionIdle {
		return v.deletion, ErrDeleteInProgress
	}
	i := slices.IndexFunc(v.filtered, func(r scan.Record) bool { return r.ScanID == id })
	if id.IsZero() || i < 0 {
		return v.deletion, ErrInvalidPosition
	}

	v.setDeletion(DeletionStatus{
		Phase:       DeletionConfirmPending,
		ScanID:      id,
		PatientName: v.filtered[i].PatientName(),
	})
	return v.deletion, nil
}

// Cancel abandons a pending delete without touching either list.
func (d *DeletionCoordinator) Cancel() error {
	v := d.view
	v.mu.Lock()
	defer v.mu.Unlock()

	switch v.deletion.Phase {
	case DeletionIdle:
		return ErrNoPendingDelete
	case DeletionDeleting:
		return ErrDeleteInProgress
	}
	v.setDeletion(DeletionStatus{Phase: DeletionIdle})
	return nil
}

// Confirm performs the pending delete. On success the scan is pruned from
// both lists; on any failure the lists are untouched. Either way the flow
// ends idle.
func (d *DeletionCoordinator) Confirm(ctx context.Context) (domain.ID, error) {
	token, ok := d.creds.Resolve(ctx)

	v := d.view
	v.mu.Lock()
	switch v.deletion.Phase {
	case DeletionIdle:
		v.mu.Unlock()
		return "", ErrNoPendingDelete
	case DeletionDeleting:
		v.mu.Unlock()
		return "", ErrDeleteInProgress
	}

	id := v.deletion.ScanID
	if !ok {
		v.setDeletion(DeletionStatus{Phase: DeletionIdle})
		v.mu.Unlock()
		d.metrics.DeletionsTotal.WithLabelValues("unauthenticated").Inc()
		return id, ErrUnauthenticated
	}
	v.setDeletion(DeletionStatus{Phase: DeletionDeleting, ScanID: id, PatientName: v.deletion.PatientName})
	v.mu.Unlock()

	err := d.scans.Delete(ctx, token.String(), id)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.setDeletion(DeletionStatus{Phase: DeletionIdle})

	d.activitySvc.LogAsync(ctx, ActivityEntry{
		Action:       domain.ActionDelete,
		ResourceType: "scan",
		ResourceID:   id.String(),
		Outcome:      outcomeOf(err),
	})

	if err != nil {
		d.metrics.DeletionsTotal.WithLabelValues("rejected").Inc()
		d.log.Warn("scan delete rejected", zap.String("scan_id", id.String()), zap.Error(err))

		rejected := &DeleteRejectedError{ScanID: id, Err: err}
		var se *domain.StatusError
		if errors.As(err, &se) {
			rejected.StatusCode = se.StatusCode
			rejected.Message = se.Message
		}
		return id, rejected
	}

	v.prune(id)
	d.metrics.DeletionsTotal.WithLabelValues("deleted").Inc()
	d.log.Info("scan deleted", zap.String("scan_id", id.String()))
	return id, nil
}

func (d *DeletionCoordinator) Status() DeletionStatus {
	d.view.mu.Lock()
	defer d.view.mu.Unlock()
	return d.view.deletion
}
