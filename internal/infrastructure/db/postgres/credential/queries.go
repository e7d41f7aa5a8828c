package credential

const (
	SelectCredentialByUserID = `SELECT user_id, password FROM "user" WHERE user_id = $1`
)
