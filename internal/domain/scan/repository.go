package scan

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain"
)

// Repository is the remote scan store. Every call carries the bearer token
// the caller resolved; implementations never look credentials up themselves.
type Repository interface {
	// Upload submits one image with its patient metadata and returns the created records.
	Upload(ctx context.Context, token string, req *UploadRequest) ([]Created, error)

	// Predict triggers inference for a previously uploaded scan.
	Predict(ctx context.Context, token string, id domain.ID) (*Prediction, error)

	// ListAll returns the caller's complete scan history, newest first.
	ListAll(ctx context.Context, token string) ([]Record, error)

	// Delete removes a scan owned by the caller.
	Delete(ctx context.Context, token string, id domain.ID) error
}
