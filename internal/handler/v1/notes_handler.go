package v1

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/service"
)

type NotesHandler struct {
	svc *service.NotesService
}

func NewNotesHandler(svc *service.NotesService) *NotesHandler {
	return &NotesHandler{svc: svc}
}

type notesBody struct {
	Notes string `json:"notes"`
}

// Get serves the in-memory notes; the store is only read if startup could
// not mount them.
func (h *NotesHandler) Get(c *gin.Context) {
	text, err := h.svc.Mount(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, notesBody{Notes: text})
}

func (h *NotesHandler) Save(c *gin.Context) {
	var body notesBody
	if !bindJSON(c, &body) {
		return
	}
	notice, err := h.svc.Save(c.Request.Context(), body.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, notesBody{Notes: h.svc.Text()}, notice.Message)
}

func (h *NotesHandler) Clear(c *gin.Context) {
	notice, err := h.svc.Clear(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, notesBody{Notes: h.svc.Text()}, notice.Message)
}

type ActivityReader interface {
	Recent(ctx context.Context, limit int) ([]domain.ActivityLog, error)
}

type ActivityHandler struct {
	repo ActivityReader
}

func NewActivityHandler(repo ActivityReader) *ActivityHandler {
	return &ActivityHandler{repo: repo}
}

func (h *ActivityHandler) List(c *gin.Context) {
	entries, err := h.repo.Recent(c.Request.Context(), parseQueryInt(c, "limit", 50))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, entries)
}
