package domain

import "time"

// Token purposes. A token issued for one purpose never validates for another.
const (
	TokenPurposeVerify = "verify"
	TokenPurposeReset  = "reset"
)

type Account struct {
	AccountID    string    `json:"id" dynamodbav:"account_id"`
	Username     string    `json:"username" dynamodbav:"username"`
	Email        string    `json:"email" dynamodbav:"email"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	Active       bool      `json:"active" dynamodbav:"active"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

type SignupRequest struct {
	Username        string `json:"username" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
}
