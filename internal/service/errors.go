package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain"
)

var (
	ErrUnauthenticated    = errors.New("not signed in")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPredictionFailed   = errors.New("prediction failed")
	ErrDeleteRejected     = errors.New("delete rejected by server")
	ErrInvalidPosition    = errors.New("no scan at that position in the current view")
	ErrNoPendingDelete    = errors.New("no delete is awaiting confirmation")
	ErrDeleteInProgress   = errors.New("another delete is already pending")
)

const defaultUploadMessage = "Upload failed. Please try again."

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// UploadRejectedError is returned when the upload step did not produce a
// record. StatusCode is zero when the server was never reached.
type UploadRejectedError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *UploadRejectedError) Error() string {
	if e.StatusCode == 0 {
		return "upload rejected: " + e.Message
	}
	return fmt.Sprintf("upload rejected (status %d): %s", e.StatusCode, e.Message)
}

func (e *UploadRejectedError) Unwrap() error { return e.Err }

// PredictionFailedError means the scan was stored but inference did not
// complete. The uploaded record is left in place.
type PredictionFailedError struct {
	ScanID domain.ID
	Err    error
}

func (e *PredictionFailedError) Error() string {
	return fmt.Sprintf("prediction failed for scan %s: %v", e.ScanID, e.Err)
}

func (e *PredictionFailedError) Unwrap() error { return e.Err }

func (e *PredictionFailedError) Is(target error) bool { return target == ErrPredictionFailed }

type DeleteRejectedError struct {
	ScanID     domain.ID
	StatusCode int
	Message    string
	Err        error
}

func (e *DeleteRejectedError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("delete of scan %s rejected: %s", e.ScanID, msg)
}

func (e *DeleteRejectedError) Unwrap() error { return e.Err }

func (e *DeleteRejectedError) Is(target error) bool { return target == ErrDeleteRejected }

// Notice is a short user-facing confirmation.
type Notice struct {
	Message string `json:"message"`
}
