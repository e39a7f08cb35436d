package ports

import "context"

// MailDispatcher queues confirmation mail delivery for a user. It must not
// block the caller and has no failure mode visible to it.
type MailDispatcher interface {
	Enqueue(userID string)
}

// ConfirmationMailer delivers the confirmation link for a user's latest token.
type ConfirmationMailer interface {
	SendConfirmation(ctx context.Context, userID string) error
}

// OriginLookup enriches a client address for audit records.
type OriginLookup interface {
	Lookup(ctx context.Context, addr string) (string, error)
}
