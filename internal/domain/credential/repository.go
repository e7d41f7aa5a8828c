package credential

import (
	"context"
)

type Repository interface {
	// FetchByUserID returns nil, nil when no row matches.
	FetchByUserID(ctx context.Context, userID UserID) (*Credential, error)
}
