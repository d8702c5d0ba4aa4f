// Package domain defines subscription types and ports
package domain

import "context"

// SendRequest asks for a verification email for one author/email pair
type SendRequest struct {
	AuthorName string `json:"author_name" validate:"required,min=1,max=200"`
	Email      string `json:"email"       validate:"required,email,max=320"`
}

// Token is one pending verification token
type Token struct {
	ID         string
	Email      string
	Expiration int64
}

// SubscribePort is the surface the HTTP layer drives
type SubscribePort interface {
	SendVerification(ctx context.Context, ip string, req SendRequest) error
	Verify(ctx context.Context, authorName, token string) error
	Unsubscribe(ctx context.Context, id, email string) error
}
