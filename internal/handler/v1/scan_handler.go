package v1

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain/scan"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/service"
)

type ScanHandler struct {
	svc            *service.SubmissionService
	maxUploadBytes int64
}

func NewScanHandler(svc *service.SubmissionService, maxUploadBytes int64) *ScanHandler {
	return &ScanHandler{svc: svc, maxUploadBytes: maxUploadBytes}
}

// Submit accepts the same multipart fields the remote upload endpoint does
// and runs the upload and prediction in one go.
func (h *ScanHandler) Submit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	var maxErr *http.MaxBytesError
	if err := c.Request.ParseMultipartForm(h.maxUploadBytes); err != nil {
		if errors.As(err, &maxErr) {
			respondError(c, http.StatusRequestEntityTooLarge, "scan file is too large")
			return
		}
		respondError(c, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	cmd := &service.SubmitCommand{Notes: c.PostForm("doctor_notes")}

	var fields []string
	cmd.Patient.Name = c.PostForm("patient_name")
	cmd.Patient.Sex = scan.Sex(strings.TrimSpace(c.PostForm("sex")))

	if raw := strings.TrimSpace(c.PostForm("age")); raw != "" {
		age, err := strconv.Atoi(raw)
		if err != nil {
			fields = append(fields, "age must be a whole number")
		}
		cmd.Patient.Age = age
	}
	if raw := strings.TrimSpace(c.PostForm("scan_date")); raw != "" {
		d, err := scan.ParseScanDate(raw)
		if err != nil {
			fields = append(fields, "scan_date must be YYYY-MM-DD")
		}
		cmd.Patient.ScanDate = d
	}

	fh, err := c.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		respondError(c, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	default:
		f, err := fh.Open()
		if err != nil {
			respondError(c, http.StatusBadRequest, "could not read scan file")
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			respondError(c, http.StatusBadRequest, "could not read scan file")
			return
		}
		cmd.File = &scan.File{Name: fh.Filename, Data: data}
	}

	if len(fields) > 0 {
		respondServiceError(c, &service.ValidationError{Fields: fields})
		return
	}

	res, err := h.svc.Submit(c.Request.Context(), cmd)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	switch res.Status {
	case service.SubmissionSkipped:
		respondMessage(c, res, "no file selected")
	case service.SubmissionUploaded:
		respondMessage(c, res, "scan uploaded")
	default:
		respondCreated(c, res)
	}
}
