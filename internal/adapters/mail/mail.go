// Package mail sends html email through an HTTP mail provider
package mail

import "context"

// Message is one outbound email
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Sender delivers messages. Implementations are safe for concurrent use
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
