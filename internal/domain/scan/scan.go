package scan

import (
	"path"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain"
)

type Sex string

const (
	SexMale   Sex = "Male"
	SexFemale Sex = "Female"
	SexOther  Sex = "Other"
	SexUnset  Sex = ""
)

func (s Sex) IsValid() bool {
	switch s {
	case SexMale, SexFemale, SexOther, SexUnset:
		return true
	}
	return false
}

// PredictionStatus mirrors the server's prediction lifecycle. Older records
// carry no status at all.
type PredictionStatus string

const (
	StatusPending PredictionStatus = "pending"
	StatusDone    PredictionStatus = "completed"
	StatusFailed  PredictionStatus = "failed"
)

func (s PredictionStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusDone, StatusFailed:
		return true
	}
	return false
}

const dateLayout = "2006-01-02"

// PatientInfo is what the uploader fills in. It is not persisted on its own;
// the server embeds it in the created scan record.
type PatientInfo struct {
	Name     string    `validate:"required,max=255"`
	Age      int       `validate:"gte=0,lte=150"`
	Sex      Sex       `validate:"omitempty,oneof=Male Female Other"`
	ScanDate time.Time `validate:"required"`
}

func (p PatientInfo) FormattedScanDate() string {
	return p.ScanDate.Format(dateLayout)
}

func ParseScanDate(raw string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(raw))
}

type PatientRef struct {
	ID   domain.ID `json:"patient_id,omitempty"`
	Name string    `json:"patient_name"`
	Age  *int      `json:"patient_age,omitempty"`
	Sex  string    `json:"patient_sex,omitempty"`
}

// Record is the client-side replica of one scan.
type Record struct {
	ScanID               domain.ID        `json:"scan_id"`
	Patient              *PatientRef      `json:"patient,omitempty"`
	UploadedAt           domain.Timestamp `json:"uploaded_at"`
	PredictionStatus     PredictionStatus `json:"prediction_status,omitempty"`
	TumorType            string           `json:"tumor_type,omitempty"`
	DoctorNotes          string           `json:"doctor_notes,omitempty"`
	FilePath             string           `json:"file_path,omitempty"`
	PredictionResultPath string           `json:"prediction_result_path,omitempty"`
}

func (r Record) PatientName() string {
	if r.Patient == nil {
		return ""
	}
	return r.Patient.Name
}

// ImagePath prefers the prediction overlay over the raw upload.
func (r Record) ImagePath() string {
	if r.PredictionResultPath != "" {
		return r.PredictionResultPath
	}
	return r.FilePath
}

type File struct {
	Name string
	Data []byte
}

type UploadRequest struct {
	File    File
	Patient PatientInfo
	Notes   string
}

// Created is one element of the upload response.
type Created struct {
	ID     domain.ID `json:"id"`
	ScanID domain.ID `json:"scan_id"`
}

func (c Created) Identifier() domain.ID {
	if !c.ID.IsZero() {
		return c.ID
	}
	return c.ScanID
}

type Prediction struct {
	OverlayImagePath string           `json:"overlay_image_path"`
	ResultPath       string           `json:"result_path"`
	TumorType        string           `json:"tumor_type"`
	Status           PredictionStatus `json:"status,omitempty"`
}

func (p Prediction) OverlayPath() string {
	if p.OverlayImagePath != "" {
		return p.OverlayImagePath
	}
	return p.ResultPath
}

// PredictionView is what the uploader displays once inference returns.
type PredictionView struct {
	ScanID     domain.ID `json:"scan_id"`
	OverlayURL string    `json:"overlay_url"`
	TumorType  string    `json:"tumor_type"`
}

// OverlayURL keeps only the file name of the server-side overlay path and
// places it under the static asset base.
func OverlayURL(staticBase, overlayPath string) string {
	p := strings.TrimSpace(strings.ReplaceAll(overlayPath, `\`, "/"))
	if p == "" {
		return ""
	}
	name := path.Base(p)
	if name == "/" || name == "." {
		return ""
	}
	return strings.TrimRight(staticBase, "/") + "/" + name
}

// AssetURL resolves a stored relative path against the asset origin.
func AssetURL(origin, stored string) string {
	p := strings.TrimSpace(strings.ReplaceAll(stored, `\`, "/"))
	if p == "" {
		return ""
	}
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	return strings.TrimRight(origin, "/") + "/" + strings.TrimLeft(p, "/")
}
