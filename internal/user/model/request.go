package model

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" binding:"required,max=100"`
	Phone     string `json:"phone" binding:"omitempty,max=32"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,max=100"`
	LastName  *string `json:"last_name" binding:"omitempty,max=100"`
	Phone     *string `json:"phone" binding:"omitempty,max=32"`
}

// UpdatePasswordRequest requires the current password so a stolen
// session cannot silently rotate credentials.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

type AddressRequest struct {
	Label     string `json:"label" binding:"omitempty,max=60"`
	Line1     string `json:"line1" binding:"required,max=255"`
	Line2     string `json:"line2" binding:"omitempty,max=255"`
	City      string `json:"city" binding:"required,max=100"`
	Region    string `json:"region" binding:"omitempty,max=100"`
	Country   string `json:"country" binding:"required,max=100"`
	IsDefault bool   `json:"is_default"`
}

type AuthResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
