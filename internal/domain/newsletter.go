package domain

import "time"

// NewsletterSubscription is a single address signed up for the newsletter.
// Email is unique across all subscriptions.
type NewsletterSubscription struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
