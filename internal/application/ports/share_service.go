package ports

import (
	"context"

	"webshare-api/internal/domain/share"
)

type ShareService interface {
	Share(ctx context.Context, req share.Request) (*share.Entry, error)
}
