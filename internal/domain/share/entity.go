package share

import (
	"time"
)

type (
	ID    string
	Entry struct {
		ID        ID
		CreatedAt time.Time
		Title     string
		Comments  string
		ImageURL  string
	}

	// UploadedFile lives only for the duration of one request.
	UploadedFile struct {
		Path         string
		FileName     string
		OriginalName string
		ContentType  string
		Size         int64
	}

	StoredBlob struct {
		Bucket      string
		Key         string
		ContentType string
		Size        int64
		URL         string
	}

	Request struct {
		Username string
		Password string
		Title    string
		Comments string
		File     *UploadedFile
	}
)
