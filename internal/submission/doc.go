// Package submission implements the two public form flows: contact messages
// and newsletter subscriptions.
//
// Both flows share one shape: parse and validate the payload, persist it
// through a Repository, and (contact only) attempt a best-effort operator
// notification. The outcome is reported as either nil or one of the error
// types in errors.go, which the HTTP layer maps to a response.
//
// The service layer depends only on the interfaces in repository.go. It never
// imports net/http or database/sql directly.
package submission
