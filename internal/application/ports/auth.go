package ports

import (
	"context"
)

type Auth interface {
	// Authenticate returns false, nil for unknown users and wrong passwords;
	// an error means the credential store could not answer.
	Authenticate(ctx context.Context, username, password string) (bool, error)
}
