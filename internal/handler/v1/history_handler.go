package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain/scan"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/service"
)

type HistoryHandler struct {
	aggregator  *service.HistoryAggregator
	view        *service.HistoryView
	deletion    *service.DeletionCoordinator
	assetOrigin string
}

func NewHistoryHandler(aggregator *service.HistoryAggregator, view *service.HistoryView, deletion *service.DeletionCoordinator, assetOrigin string) *HistoryHandler {
	return &HistoryHandler{aggregator: aggregator, view: view, deletion: deletion, assetOrigin: assetOrigin}
}

type scanItem struct {
	scan.Record
	ImageURL string `json:"image_url,omitempty"`
}

type groupItem struct {
	PatientName string     `json:"patient_name"`
	Sex         string     `json:"patient_sex"`
	Age         string     `json:"patient_age"`
	Scans       []scanItem `json:"scans"`
}

type historyResponse struct {
	Groups          []groupItem            `json:"groups"`
	Scans           []scanItem             `json:"scans"`
	Patients        []patient.Summary      `json:"patients"`
	SearchTerm      string                 `json:"search_term"`
	SelectedPatient string                 `json:"selected_patient"`
	Total           int                    `json:"total"`
	Degraded        []string               `json:"degraded,omitempty"`
	LoadedAt        domain.Timestamp       `json:"loaded_at"`
	Deletion        service.DeletionStatus `json:"deletion"`
}

func (h *HistoryHandler) present(snap service.Snapshot) historyResponse {
	items := func(records []scan.Record) []scanItem {
		out := make([]scanItem, len(records))
		for i, r := range records {
			out[i] = scanItem{Record: r, ImageURL: scan.AssetURL(h.assetOrigin, r.ImagePath())}
		}
		return out
	}

	groups := make([]groupItem, len(snap.Groups))
	for i, g := range snap.Groups {
		groups[i] = groupItem{PatientName: g.PatientName, Sex: g.Sex, Age: g.Age, Scans: items(g.Scans)}
	}

	return historyResponse{
		Groups:          groups,
		Scans:           items(snap.Filtered),
		Patients:        snap.Patients,
		SearchTerm:      snap.SearchTerm,
		SelectedPatient: snap.SelectedPatient,
		Total:           snap.Total,
		Degraded:        snap.Degraded,
		LoadedAt:        snap.LoadedAt,
		Deletion:        snap.Deletion,
	}
}

// Get returns the grouped view. The search and patient query parameters,
// when present, replace the saved filters; an empty value clears one.
// Absent parameters leave the saved filters alone.
func (h *HistoryHandler) Get(c *gin.Context) {
	var search, selected *string
	if v, ok := c.GetQuery("search"); ok {
		search = &v
	}
	if v, ok := c.GetQuery("patient"); ok {
		selected = &v
	}
	respondOK(c, h.present(h.view.UpdateFilters(search, selected)))
}

func (h *HistoryHandler) Reload(c *gin.Context) {
	agg, err := h.aggregator.LoadAll(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	snap := h.view.Replace(agg)
	if len(snap.Degraded) > 0 {
		respondMessage(c, h.present(snap), "some history could not be loaded")
		return
	}
	respondOK(c, h.present(snap))
}

type deleteRequest struct {
	Position *int      `json:"position"`
	ScanID   domain.ID `json:"scan_id"`
}

func (h *HistoryHandler) RequestDelete(c *gin.Context) {
	var req deleteRequest
	if !bindJSON(c, &req) {
		return
	}

	var (
		st  service.DeletionStatus
		err error
	)
	switch {
	case !req.ScanID.IsZero():
		st, err = h.deletion.RequestScan(req.ScanID)
	case req.Position != nil:
		st, err = h.deletion.Request(*req.Position)
	default:
		respondServiceError(c, &service.ValidationError{Fields: []string{"scan_id or position is required"}})
		return
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, st, "confirm to delete this scan")
}

func (h *HistoryHandler) DeletionStatus(c *gin.Context) {
	respondOK(c, h.deletion.Status())
}

func (h *HistoryHandler) ConfirmDelete(c *gin.Context) {
	id, err := h.deletion.Confirm(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, gin.H{"scan_id": id, "history": h.present(h.view.Snapshot())}, "Scan deleted successfully")
}

func (h *HistoryHandler) CancelDelete(c *gin.Context) {
	if err := h.deletion.Cancel(); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, h.deletion.Status())
}
