// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/Strob0t/MailWarden/internal/domain/assessment"
	"github.com/Strob0t/MailWarden/internal/domain/email"
)

// Store is the port interface for database operations.
type Store interface {
	// UpsertEmail records the envelope of an email, keyed by its external
	// UID, and returns the stored row. An empty UID always inserts.
	UpsertEmail(ctx context.Context, uid string, data assessment.EmailData) (*email.Email, error)

	// SaveCoordination stores an outcome against an email and updates the
	// email's final verdict columns in the same transaction.
	SaveCoordination(ctx context.Context, emailID string, outcome assessment.Outcome) error

	GetEmail(ctx context.Context, id string) (*email.Detail, error)
	ListEmails(ctx context.Context, filter email.ListFilter) ([]email.Email, error)

	Ping(ctx context.Context) error
}
