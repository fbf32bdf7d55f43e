package service

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain/scan"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/pkg/auth"
)

const staticBase = "http://localhost:8000/predictions"

func validCommand() *SubmitCommand {
	return &SubmitCommand{
		File: &scan.File{Name: "t1.png", Data: []byte{0x89, 'P', 'N', 'G'}},
		Patient: scan.PatientInfo{
			Name:     "Jane Doe",
			Age:      41,
			Sex:      scan.SexFemale,
			ScanDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		Notes: "headaches",
	}
}

func newSubmission(t *testing.T, token string, scans *fakeScans) *SubmissionService {
	t.Helper()
	activity, _ := testActivity(t)
	return NewSubmissionService(staticResolver{token: auth.Credential(token)}, scans, staticBase, activity, testMetrics(), zap.NewNop())
}

func TestSubmitUploadsThenPredicts(t *testing.T) {
	scans := &fakeScans{
		created:    []scan.Created{{ID: "12"}},
		prediction: &scan.Prediction{OverlayImagePath: `outputs\overlays\12_overlay.png`, TumorType: "glioma"},
	}
	svc := newSubmission(t, "tok", scans)

	res, err := svc.Submit(context.Background(), validCommand())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Status != SubmissionPredicted || res.ScanID != "12" {
		t.Errorf("unexpected result %+v", res)
	}
	if res.Prediction.OverlayURL != staticBase+"/12_overlay.png" || res.Prediction.TumorType != "glioma" {
		t.Errorf("unexpected prediction %+v", res.Prediction)
	}
	if got, want := scans.Calls(), []string{"upload:tok", "predict:12"}; !slices.Equal(got, want) {
		t.Errorf("calls %v, want %v", got, want)
	}
}

func TestSubmitWithoutFileIsSkipped(t *testing.T) {
	scans := &fakeScans{}
	svc := newSubmission(t, "tok", scans)

	cmd := validCommand()
	cmd.File = nil
	res, err := svc.Submit(context.Background(), cmd)
	if err != nil || res.Status != SubmissionSkipped {
		t.Fatalf("got %+v, %v", res, err)
	}
	if len(scans.Calls()) != 0 {
		t.Errorf("unexpected calls %v", scans.Calls())
	}
}

func TestSubmitWithoutCredentialDoesNoIO(t *testing.T) {
	scans := &fakeScans{}
	svc := newSubmission(t, "", scans)

	_, err := svc.Submit(context.Background(), validCommand())
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("got %v, want ErrUnauthenticated", err)
	}
	if len(scans.Calls()) != 0 {
		t.Errorf("unexpected calls %v", scans.Calls())
	}
}

func TestSubmitValidatesPatientBeforeUpload(t *testing.T) {
	scans := &fakeScans{}
	svc := newSubmission(t, "tok", scans)

	cmd := validCommand()
	cmd.Patient.Name = "   "
	cmd.Patient.Age = -3
	cmd.Patient.Sex = "Unknown"

	_, err := svc.Submit(context.Background(), cmd)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("got %v, want ValidationError", err)
	}
	if len(verr.Fields) != 3 {
		t.Errorf("fields %v, want three failures", verr.Fields)
	}
	if len(scans.Calls()) != 0 {
		t.Errorf("unexpected calls %v", scans.Calls())
	}
}

func TestSubmitUploadFailureNeverPredicts(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "validation detail",
			err:        &domain.StatusError{Operation: "upload_scan", StatusCode: 422, Message: "body.age: field required"},
			wantStatus: 422,
			wantMsg:    "body.age: field required",
		},
		{
			name:       "no message",
			err:        &domain.StatusError{Operation: "upload_scan", StatusCode: 500},
			wantStatus: 500,
			wantMsg:    "Upload failed. Please try again.",
		},
		{
			name:    "transport",
			err:     errBoom,
			wantMsg: "Upload failed. Please try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scans := &fakeScans{uploadErr: tt.err}
			svc := newSubmission(t, "tok", scans)

			_, err := svc.Submit(context.Background(), validCommand())
			var rej *UploadRejectedError
			if !errors.As(err, &rej) {
				t.Fatalf("got %v, want UploadRejectedError", err)
			}
			if rej.StatusCode != tt.wantStatus || rej.Message != tt.wantMsg {
				t.Errorf("got %+v", rej)
			}
			if !errors.Is(err, tt.err) {
				t.Error("cause must stay reachable")
			}
			if got := scans.Calls(); !slices.Equal(got, []string{"upload:tok"}) {
				t.Errorf("calls %v", got)
			}
		})
	}
}

func TestSubmitPredictionFailureKeepsUpload(t *testing.T) {
	scans := &fakeScans{
		created:    []scan.Created{{ScanID: "33"}},
		predictErr: &domain.StatusError{Operation: "predict_scan", StatusCode: 500},
	}
	svc := newSubmission(t, "tok", scans)

	res, err := svc.Submit(context.Background(), validCommand())
	if res != nil {
		t.Errorf("no result view expected, got %+v", res)
	}
	if !errors.Is(err, ErrPredictionFailed) {
		t.Fatalf("got %v, want ErrPredictionFailed", err)
	}
	var pf *PredictionFailedError
	if !errors.As(err, &pf) || pf.ScanID != "33" {
		t.Errorf("unexpected error %v", err)
	}
	for _, c := range scans.Calls() {
		if c == "delete:33" {
			t.Error("no rollback delete may be issued")
		}
	}
}

func TestSubmitWithoutIdentifierStopsAfterUpload(t *testing.T) {
	scans := &fakeScans{created: []scan.Created{}}
	svc := newSubmission(t, "tok", scans)

	res, err := svc.Submit(context.Background(), validCommand())
	if err != nil || res.Status != SubmissionUploaded || res.Prediction != nil {
		t.Fatalf("got %+v, %v", res, err)
	}
	if got := scans.Calls(); !slices.Equal(got, []string{"upload:tok"}) {
		t.Errorf("calls %v", got)
	}
}
