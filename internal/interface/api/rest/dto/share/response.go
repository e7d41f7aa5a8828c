package share

type Response struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}
