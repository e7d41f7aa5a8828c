package share

import (
	domain "webshare-api/internal/domain/share"
)

func toDBModel(e domain.Entry) *Entry {
	return &Entry{
		TS:       e.CreatedAt,
		Title:    e.Title,
		Comments: e.Comments,
		Image:    e.ImageURL,
	}
}
