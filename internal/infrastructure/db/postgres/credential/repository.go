package credential

import (
	"context"

	"github.com/jackc/pgx/v5"

	"webshare-api/internal/domain/credential"
)

// Querier is satisfied by *pgxpool.Pool. Query checks a connection out of the
// pool and rows.Close hands it back.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Repository struct {
	db Querier
}

func NewRepository(db Querier) credential.Repository {
	return &Repository{db: db}
}

func (r *Repository) FetchByUserID(ctx context.Context, userID credential.UserID) (*credential.Credential, error) {
	rows, err := r.db.Query(ctx, SelectCredentialByUserID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var c *Credential
	if rows.Next() {
		c = new(Credential)
		if err = rows.Scan(&c.UserID, &c.Password); err != nil {
			return nil, err
		}
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}

	return fromDBModel(c), nil
}
