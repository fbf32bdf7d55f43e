package service

import (
	"slices"
	"sync"
	"time"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain/scan"
)

type DeletionPhase string

const (
	DeletionIdle           DeletionPhase = "idle"
	DeletionConfirmPending DeletionPhase = "confirm_pending"
	DeletionDeleting       DeletionPhase = "deleting"
)

var allowedDeletionTransitions = map[DeletionPhase][]DeletionPhase{
	DeletionIdle:           {DeletionConfirmPending},
	DeletionConfirmPending: {DeletionIdle, DeletionDeleting},
	DeletionDeleting:       {DeletionIdle},
}

func (p DeletionPhase) CanTransitionTo(next DeletionPhase) bool {
	return slices.Contains(allowedDeletionTransitions[p], next)
}

// DeletionStatus describes the delete flow as shown to the clinician.
type DeletionStatus struct {
	Phase       DeletionPhase `json:"phase"`
	ScanID      domain.ID     `json:"scan_id,omitempty"`
	PatientName string        `json:"patient_name,omitempty"`
}

// HistoryView is the console's loaded copy of the clinician's history plus
// the current filters. One instance serves every request, so all access
// goes through mu.
type HistoryView struct {
	mu sync.Mutex

	full     []scan.Record
	filtered []scan.Record
	patients []patient.Summary
	degraded []string
	loadedAt time.Time

	searchTerm      string
	selectedPatient string

	deletion DeletionStatus
}

func NewHistoryView() *HistoryView {
	return &HistoryView{
		full:     []scan.Record{},
		filtered: []scan.Record{},
		patients: []patient.Summary{},
		deletion: DeletionStatus{Phase: DeletionIdle},
	}
}

// Snapshot is a copy of the view that is safe to hand to callers.
type Snapshot struct {
	Groups          []scan.Group      `json:"groups"`
	Filtered        []scan.Record     `json:"scans"`
	Patients        []patient.Summary `json:"patients"`
	SearchTerm      string            `json:"search_term"`
	SelectedPatient string            `json:"selected_patient"`
	Total           int               `json:"total"`
	Degraded        []string          `json:"degraded,omitempty"`
	LoadedAt        domain.Timestamp  `json:"loaded_at"`
	Deletion        DeletionStatus    `json:"deletion"`
}

// Replace installs a freshly loaded aggregate and re-applies the filters.
func (v *HistoryView) Replace(agg *Aggregate) Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.full = slices.Clone(agg.Scans)
	if v.full == nil {
		v.full = []scan.Record{}
	}
	v.patients = slices.Clone(agg.Patients)
	if v.patients == nil {
		v.patients = []patient.Summary{}
	}
	v.degraded = slices.Clone(agg.Degraded)
	v.loadedAt = agg.LoadedAt
	v.refilter()

	return v.snapshotLocked()
}

func (v *HistoryView) SetFilters(search, selectedPatient string) Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.searchTerm = search
	v.selectedPatient = selectedPatient
	v.refilter()

	return v.snapshotLocked()
}

// UpdateFilters changes only the filters that are given; a nil argument
// keeps the current value.
func (v *HistoryView) UpdateFilters(search, selectedPatient *string) Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	if search == nil && selectedPatient == nil {
		return v.snapshotLocked()
	}
	if search != nil {
		v.searchTerm = *search
	}
	if selectedPatient != nil {
		v.selectedPatient = *selectedPatient
	}
	v.refilter()

	return v.snapshotLocked()
}

func (v *HistoryView) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

func (v *HistoryView) refilter() {
	v.filtered = scan.Filter(v.full, v.selectedPatient, v.searchTerm)
	if v.filtered == nil {
		v.filtered = []scan.Record{}
	}
}

func (v *HistoryView) snapshotLocked() Snapshot {
	return Snapshot{
		Groups:          scan.GroupByPatient(v.filtered),
		Filtered:        slices.Clone(v.filtered),
		Patients:        slices.Clone(v.patients),
		SearchTerm:      v.searchTerm,
		SelectedPatient: v.selectedPatient,
		Total:           len(v.full),
		Degraded:        slices.Clone(v.degraded),
		LoadedAt:        domain.Timestamp{Time: v.loadedAt},
		Deletion:        v.deletion,
	}
}

func (v *HistoryView) setDeletion(next DeletionStatus) bool {
	if !v.deletion.Phase.CanTransitionTo(next.Phase) {
		return false
	}
	v.deletion = next
	return true
}

// prune drops id from both the full and the filtered lists.
func (v *HistoryView) prune(id domain.ID) {
	v.full, _ = scan.RemoveByID(v.full, id)
	v.filtered, _ = scan.RemoveByID(v.filtered, id)
}
