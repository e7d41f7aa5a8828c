package auth

// LoginRequest binds both JSON and url-encoded form bodies.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}
