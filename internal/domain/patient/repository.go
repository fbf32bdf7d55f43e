package patient

import "context"

type Repository interface {
	// ListForUser returns the distinct patients linked to the caller's scans,
	// decoded from whichever list shape the server sent.
	ListForUser(ctx context.Context, token string) ([]Raw, error)
}
