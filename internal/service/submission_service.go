package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain/scan"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/pkg/metrics"
)

// CredentialResolver is satisfied by auth.Chain.
type CredentialResolver interface {
	Resolve(ctx context.Context) (auth.Credential, bool)
}

type SubmissionStatus string

const (
	SubmissionSkipped   SubmissionStatus = "skipped"
	SubmissionUploaded  SubmissionStatus = "uploaded"
	SubmissionPredicted SubmissionStatus = "predicted"
)

type SubmitCommand struct {
	File    *scan.File
	Patient scan.PatientInfo
	Notes   string
}

type SubmissionResult struct {
	Status     SubmissionStatus     `json:"status"`
	ScanID     domain.ID            `json:"scan_id,omitempty"`
	Prediction *scan.PredictionView `json:"prediction,omitempty"`
}

// SubmissionService runs upload then predict for one scan. The two calls
// are strictly sequential and share the credential resolved up front.
type SubmissionService struct {
	creds       CredentialResolver
	scans       scan.Repository
	staticBase  string
	activitySvc *ActivityService
	metrics     *metrics.Collector
	log         *zap.Logger
}

func NewSubmissionService(
	creds CredentialResolver,
	scans scan.Repository,
	staticBase string,
	activitySvc *ActivityService,
	m *metrics.Collector,
	log *zap.Logger,
) *SubmissionService {
	return &SubmissionService{
		creds:       creds,
		scans:       scans,
		staticBase:  staticBase,
		activitySvc: activitySvc,
		metrics:     m,
		log:         log,
	}
}

func (s *SubmissionService) Submit(ctx context.Context, cmd *SubmitCommand) (*SubmissionResult, error) {
	if cmd == nil || cmd.File == nil || len(cmd.File.Data) == 0 {
		s.metrics.SubmissionsTotal.WithLabelValues(string(SubmissionSkipped)).Inc()
		return &SubmissionResult{Status: SubmissionSkipped}, nil
	}

	token, ok := s.creds.Resolve(ctx)
	if !ok {
		s.metrics.SubmissionsTotal.WithLabelValues("unauthenticated").Inc()
		return nil, ErrUnauthenticated
	}

	cmd.Patient.Name = strings.TrimSpace(cmd.Patient.Name)
	if err := validateStruct(cmd.Patient); err != nil {
		s.metrics.SubmissionsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	created, err := s.scans.Upload(ctx, token.String(), &scan.UploadRequest{
		File:    *cmd.File,
		Patient: cmd.Patient,
		Notes:   cmd.Notes,
	})
	if err != nil {
		rejected := uploadRejection(err)
		s.metrics.SubmissionsTotal.WithLabelValues("upload_rejected").Inc()
		s.activitySvc.LogAsync(ctx, ActivityEntry{
			Action:       domain.ActionUpload,
			ResourceType: "scan",
			Outcome:      domain.OutcomeFailure,
			Detail:       rejected.Message,
		})
		s.log.Warn("scan upload rejected",
			zap.Int("status", rejected.StatusCode),
			zap.String("message", rejected.Message),
			zap.Error(err),
		)
		return nil, rejected
	}

	var id domain.ID
	if len(created) > 0 {
		id = created[0].Identifier()
	}
	s.activitySvc.LogAsync(ctx, ActivityEntry{
		Action:       domain.ActionUpload,
		ResourceType: "scan",
		ResourceID:   id.String(),
		Outcome:      domain.OutcomeSuccess,
	})

	if id.IsZero() {
		s.log.Warn("upload succeeded without a scan identifier; skipping prediction",
			zap.Int("created", len(created)),
		)
		s.metrics.SubmissionsTotal.WithLabelValues(string(SubmissionUploaded)).Inc()
		return &SubmissionResult{Status: SubmissionUploaded}, nil
	}

	pred, err := s.scans.Predict(ctx, token.String(), id)
	s.activitySvc.LogAsync(ctx, ActivityEntry{
		Action:       domain.ActionPredict,
		ResourceType: "scan",
		ResourceID:   id.String(),
		Outcome:      outcomeOf(err),
	})
	if err != nil {
		s.metrics.SubmissionsTotal.WithLabelValues("prediction_failed").Inc()
		s.log.Warn("prediction failed after upload", zap.String("scan_id", id.String()), zap.Error(err))
		return nil, &PredictionFailedError{ScanID: id, Err: err}
	}

	view := &scan.PredictionView{
		ScanID:     id,
		OverlayURL: scan.OverlayURL(s.staticBase, pred.OverlayPath()),
		TumorType:  pred.TumorType,
	}

	s.metrics.SubmissionsTotal.WithLabelValues(string(SubmissionPredicted)).Inc()
	s.log.Info("scan submitted",
		zap.String("scan_id", id.String()),
		zap.String("tumor_type", view.TumorType),
	)

	return &SubmissionResult{Status: SubmissionPredicted, ScanID: id, Prediction: view}, nil
}

func uploadRejection(err error) *UploadRejectedError {
	var se *domain.StatusError
	if errors.As(err, &se) {
		msg := se.Message
		if msg == "" {
			msg = defaultUploadMessage
		}
		return &UploadRejectedError{StatusCode: se.StatusCode, Message: msg, Err: err}
	}
	return &UploadRejectedError{Message: defaultUploadMessage, Err: err}
}
