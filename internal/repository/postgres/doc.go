// Package postgres implements the submission repositories against
// PostgreSQL using database/sql and lib/pq.
//
// Rules for this package:
//   - Only SQL and row mapping live here; no validation or HTTP concerns.
//   - Every statement takes a context and uses positional parameters.
//   - Unique violations on newsletter_subscriptions surface as
//     submission.ErrDuplicate; every other driver error is wrapped with %w.
package postgres
