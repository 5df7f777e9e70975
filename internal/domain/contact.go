package domain

import "time"

// ContactSubmission is a message left through the public contact form.
// ID and CreatedAt are assigned when the row is written.
type ContactSubmission struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Subject   string    `json:"subject" db:"subject"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
