package dto

// RegisterForm is the multipart registration payload. The document photo travels as the "document" file part.
type RegisterForm struct {
	Login    string `form:"login" json:"login" binding:"required"`
	Name     string `form:"name" json:"name" binding:"required"`
	Email    string `form:"email" json:"email" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
	UserType string `form:"userType" json:"userType" binding:"omitempty,oneof=individual company pf pj"`
}

// RegisterResponse carries the identifier of the created user.
type RegisterResponse struct {
	UserID string `json:"userId"`
}

// LoginRequest describes login/password payload.
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SessionResponse is returned after a successful login.
type SessionResponse struct {
	Token      string `json:"token"`
	UserID     string `json:"userId"`
	Name       string `json:"name"`
	IsVerified bool   `json:"isVerified"`
}
