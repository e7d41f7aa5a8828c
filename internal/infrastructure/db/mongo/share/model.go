package share

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Entry is the document stored in the sharing collection.
type Entry struct {
	ID       bson.ObjectID `bson:"_id,omitempty"`
	TS       time.Time     `bson:"ts"`
	Title    string        `bson:"title"`
	Comments string        `bson:"comments"`
	Image    string        `bson:"image"`
}
