package model

// Upload is an uploaded image file.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Registration carries the raw registration form fields.
type Registration struct {
	Login    string
	Name     string
	Email    string
	Password string
	UserType string
	Document *Upload
}

// Session is the result of a successful login.
type Session struct {
	Token string
	User  *User
}
