package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain/scan"
)

// Scans implements scan.Repository over the remote API.
type Scans struct {
	c *Client
}

func (c *Client) Scans() *Scans {
	return &Scans{c: c}
}

var _ scan.Repository = (*Scans)(nil)

func (s *Scans) Upload(ctx context.Context, token string, req *scan.UploadRequest) ([]scan.Created, error) {
	if len(req.File.Data) == 0 {
		return nil, scan.ErrEmptyFile
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", req.File.Name)
	if err != nil {
		return nil, fmt.Errorf("creating file part: %w", err)
	}
	if _, err := part.Write(req.File.Data); err != nil {
		return nil, fmt.Errorf("writing file part: %w", err)
	}

	fields := [][2]string{
		{"patient_name", req.Patient.Name},
		{"age", strconv.Itoa(req.Patient.Age)},
		{"sex", string(req.Patient.Sex)},
		{"scan_date", req.Patient.FormattedScanDate()},
		{"doctor_notes", req.Notes},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("writing field %s: %w", f[0], err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	httpReq, err := s.c.newRequest(ctx, http.MethodPost, "/mri/upload", token, &buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())

	var raw json.RawMessage
	if err := s.c.call(ctx, "upload_scan", httpReq, &raw); err != nil {
		return nil, err
	}

	// The endpoint answers with a list; a single object is accepted too.
	var created []scan.Created
	if err := json.Unmarshal(raw, &created); err != nil {
		var one scan.Created
		if err2 := json.Unmarshal(raw, &one); err2 != nil {
			return nil, fmt.Errorf("upload_scan: decoding response: %w", err)
		}
		created = []scan.Created{one}
	}
	return created, nil
}

func (s *Scans) Predict(ctx context.Context, token string, id domain.ID) (*scan.Prediction, error) {
	if id.IsZero() {
		return nil, scan.ErrInvalidScanID
	}
	req, err := s.c.newRequest(ctx, http.MethodPost, "/predict/"+url.PathEscape(id.String()), token, nil)
	if err != nil {
		return nil, err
	}

	var p scan.Prediction
	if err := s.c.call(ctx, "predict_scan", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Scans) ListAll(ctx context.Context, token string) ([]scan.Record, error) {
	req, err := s.c.newRequest(ctx, http.MethodGet, "/history/user/all", token, nil)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := s.c.call(ctx, "list_scans", req, &raw); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("list_scans: empty response body")
	}

	switch trimmed[0] {
	case '{':
		var wrapped struct {
			Scans []scan.Record `json:"scans"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("list_scans: decoding scan wrapper: %w", err)
		}
		if wrapped.Scans == nil {
			return []scan.Record{}, nil
		}
		return wrapped.Scans, nil
	case '[':
		var list []scan.Record
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("list_scans: decoding scan array: %w", err)
		}
		if list == nil {
			return []scan.Record{}, nil
		}
		return list, nil
	}
	return nil, fmt.Errorf("list_scans: unrecognized response shape starting with %q", trimmed[0])
}

func (s *Scans) Delete(ctx context.Context, token string, id domain.ID) error {
	if id.IsZero() {
		return scan.ErrInvalidScanID
	}
	req, err := s.c.newRequest(ctx, http.MethodDelete, "/history/delete/"+url.PathEscape(id.String()), token, nil)
	if err != nil {
		return err
	}
	return s.c.call(ctx, "delete_scan", req, nil)
}
