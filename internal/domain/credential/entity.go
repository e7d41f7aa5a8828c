package credential

type (
	UserID     = string
	Credential struct {
		UserID UserID
		// Secret is either a bcrypt hash or a legacy plaintext value.
		Secret string
	}
)
