package share

import (
	"context"
)

type Repository interface {
	InsertEntry(ctx context.Context, e Entry) (ID, error)
}
