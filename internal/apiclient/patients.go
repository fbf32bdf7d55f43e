package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain/patient"
)

type Patients struct {
	c *Client
}

func (c *Client) Patients() *Patients {
	return &Patients{c: c}
}

var _ patient.Repository = (*Patients)(nil)

// ListForUser returns the raw patient list. An unrecognized payload shape is
// logged and treated as an empty list rather than an error.
func (p *Patients) ListForUser(ctx context.Context, token string) ([]patient.Raw, error) {
	req, err := p.c.newRequest(ctx, http.MethodGet, "/history/user/patients", token, nil)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := p.c.call(ctx, "list_patients", req, &raw); err != nil {
		return nil, err
	}

	list, shape, err := patient.DecodeList(raw)
	if errors.Is(err, patient.ErrUnrecognizedListShape) {
		p.c.log.Warn("patient list has an unexpected shape", zap.Int("bytes", len(raw)))
		return list, nil
	}
	if err != nil {
		return nil, err
	}
	p.c.log.Debug("patient list decoded", zap.Stringer("shape", shape), zap.Int("count", len(list)))
	return list, nil
}
