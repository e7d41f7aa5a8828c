package ports

import (
	"mime/multipart"

	"webshare-api/internal/domain/share"
)

type UploadReceiver interface {
	Receive(fh *multipart.FileHeader) (*share.UploadedFile, error)
	Discard(f *share.UploadedFile) error
}
