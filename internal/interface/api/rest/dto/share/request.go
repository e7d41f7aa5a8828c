package share

// Request holds the text fields of the multipart share form.
// The image itself is read separately from the "image-file" part.
type Request struct {
	Username string `form:"username"`
	Password string `form:"password"`
	Title    string `form:"title"`
	Comments string `form:"comments"`
}
