package credential

import (
	domain "webshare-api/internal/domain/credential"
)

func fromDBModel(model *Credential) *domain.Credential {
	return &domain.Credential{
		UserID: model.UserID,
		Secret: model.Password,
	}
}
