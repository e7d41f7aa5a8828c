package share

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"webshare-api/internal/domain/share"
)

var ErrUnexpectedID = errors.New("unexpected inserted id type")

// inserter is the part of *mongo.Collection the repository needs.
type inserter interface {
	InsertOne(
		ctx context.Context,
		document any,
		opts ...options.Lister[options.InsertOneOptions],
	) (*mongo.InsertOneResult, error)
}

type Repository struct {
	coll inserter
}

func NewRepository(db *mongo.Database, collection string) share.Repository {
	return &Repository{coll: db.Collection(collection)}
}

func (r *Repository) InsertEntry(ctx context.Context, e share.Entry) (share.ID, error) {
	res, err := r.coll.InsertOne(ctx, toDBModel(e))
	if err != nil {
		return "", err
	}

	id, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return "", fmt.Errorf("%w: %T", ErrUnexpectedID, res.InsertedID)
	}

	return share.ID(id.Hex()), nil
}
