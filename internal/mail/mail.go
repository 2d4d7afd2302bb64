// Package mail defines the outbound and inbound mail provider contracts.
// Concrete implementations live in separate modules (e.g. mail.gmail).
package mail

import (
	"context"
	"errors"
	"time"
)

// ErrTransport wraps any send/fetch failure from the underlying provider.
var ErrTransport = errors.New("mail: transport error")

// Message is the metadata of one received message.
type Message struct {
	From    string
	Subject string
	Date    string
	Snippet string
}

// Fetcher lists recently received messages on behalf of a user.
type Fetcher interface {
	// ListSince returns up to limit messages received at or after since,
	// most recent first. The access token authorizes the call.
	ListSince(ctx context.Context, accessToken string, since time.Time, limit int) ([]Message, error)
}

// Sender delivers a single HTML message on behalf of a user.
type Sender interface {
	// Send delivers htmlBody from from to to and returns the provider
	// message ID.
	Send(ctx context.Context, accessToken, from, to, subject, htmlBody string) (string, error)
}
