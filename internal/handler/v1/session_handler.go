package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/service"
)

type SessionHandler struct {
	svc *service.SessionService
}

func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

func (h *SessionHandler) Login(c *gin.Context) {
	var cmd service.LoginCommand
	if !bindJSON(c, &cmd) {
		return
	}
	st, err := h.svc.Login(c.Request.Context(), &cmd)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, st)
}

func (h *SessionHandler) Status(c *gin.Context) {
	st, err := h.svc.Status(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, st)
}

func (h *SessionHandler) Refresh(c *gin.Context) {
	st, err := h.svc.Refresh(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, st)
}

func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context()); err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, nil, "signed out")
}

func (h *SessionHandler) Signup(c *gin.Context) {
	var cmd domain.SignupCommand
	if !bindJSON(c, &cmd) {
		return
	}
	acct, err := h.svc.Signup(c.Request.Context(), &cmd)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, acct)
}
