package credential

type Credential struct {
	UserID   string
	Password string
}
