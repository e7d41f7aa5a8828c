package share

import (
	"webshare-api/internal/domain/share"
)

func ToDomainRequest(r Request, f *share.UploadedFile) share.Request {
	return share.Request{
		Username: r.Username,
		Password: r.Password,
		Title:    r.Title,
		Comments: r.Comments,
		File:     f,
	}
}

func ToResponse(e share.Entry) Response {
	return Response{
		Status: "ok",
		ID:     string(e.ID),
	}
}
