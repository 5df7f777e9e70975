package submission

import (
	"context"

	"github.com/nuwe/site-forms/internal/domain"
	"github.com/nuwe/site-forms/internal/notify"
)

// ContactRepository persists contact messages.
type ContactRepository interface {
	// InsertContact stores a new message, filling in ID and CreatedAt when empty.
	InsertContact(ctx context.Context, c *domain.ContactSubmission) error
}

// NewsletterRepository persists newsletter subscriptions.
type NewsletterRepository interface {
	// SubscriptionExists reports whether email is already subscribed.
	SubscriptionExists(ctx context.Context, email string) (bool, error)

	// InsertSubscription stores a new subscription, filling in ID and
	// CreatedAt when empty. Returns ErrDuplicate if the store rejects the
	// address as already present.
	InsertSubscription(ctx context.Context, s *domain.NewsletterSubscription) error
}

// Notifier delivers the contact notification. Implementations never fail the
// caller; the Result says whether anything was sent.
type Notifier interface {
	NotifyContact(ctx context.Context, c domain.ContactSubmission) notify.Result
}

// KeyLocker serializes work on a single key across processes.
type KeyLocker interface {
	// TryLock makes one non-blocking attempt. When ok is true the caller
	// must call release.
	TryLock(ctx context.Context, key string) (release func(context.Context) error, ok bool, err error)
}
