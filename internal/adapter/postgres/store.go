package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/MailWarden/internal/domain/assessment"
	"github.com/Strob0t/MailWarden/internal/domain/email"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

const emailColumns = `id, email_uid, subject, sender, recipient, received_at,
	final_risk_score, final_threat_level, final_action, created_at, updated_at`

// --- Emails ---

func (s *Store) UpsertEmail(ctx context.Context, uid string, data assessment.EmailData) (*email.Email, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO emails (id, email_uid, subject, sender, recipient, received_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (email_uid) DO UPDATE SET
		   subject = EXCLUDED.subject,
		   sender = EXCLUDED.sender,
		   recipient = EXCLUDED.recipient,
		   updated_at = now()
		 RETURNING `+emailColumns,
		uuid.NewString(), nullIfEmpty(uid), data.Subject, data.Sender, data.Recipient,
		receivedAt(data.Date, s.now()))

	e, err := scanEmail(row)
	if err != nil {
		return nil, fmt.Errorf("upsert email %q: %w", uid, err)
	}
	return &e, nil
}

func (s *Store) GetEmail(ctx context.Context, id string) (*email.Detail, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, notFoundWrap(pgx.ErrNoRows, "get email %s", id)
	}

	row := s.pool.QueryRow(ctx, `SELECT `+emailColumns+` FROM emails WHERE id = $1`, id)
	e, err := scanEmail(row)
	if err != nil {
		return nil, notFoundWrap(err, "get email %s", id)
	}

	detail := &email.Detail{Email: e}

	var (
		status     string
		raw        []byte
		analyzedAt time.Time
	)
	err = s.pool.QueryRow(ctx,
		`SELECT status, result, analyzed_at FROM coordination_results
		 WHERE email_id = $1 ORDER BY analyzed_at DESC, id DESC LIMIT 1`, id).
		Scan(&status, &raw, &analyzedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return detail, nil
	case err != nil:
		return nil, fmt.Errorf("get coordination for %s: %w", id, err)
	}

	var result assessment.CoordinationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode coordination for %s: %w", id, err)
	}
	detail.Coordination = &result
	detail.Fallback = assessment.Status(status) == assessment.StatusFallback
	detail.AnalyzedAt = &analyzedAt
	return detail, nil
}

func (s *Store) ListEmails(ctx context.Context, filter email.ListFilter) ([]email.Email, error) {
	filter = filter.Normalize()

	rows, err := s.pool.Query(ctx,
		`SELECT `+emailColumns+` FROM emails
		 WHERE ($1 = '' OR final_threat_level = $1)
		 ORDER BY received_at DESC, created_at DESC
		 LIMIT $2 OFFSET $3`,
		string(filter.RiskLevel), filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list emails: %w", err)
	}
	defer rows.Close()

	emails := []email.Email{}
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan email: %w", err)
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

// --- Coordination results ---

func (s *Store) SaveCoordination(ctx context.Context, emailID string, outcome assessment.Outcome) error {
	r := outcome.Result
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode coordination: %w", err)
	}

	analyzedAt := r.Timestamp
	if analyzedAt.IsZero() {
		analyzedAt = s.now()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	var coordinationID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO coordination_results
		   (email_id, request_id, status, fallback_reason, final_risk_score, risk_level,
		    aggregated_certainty, uncertainty, override_active, execution_time_ms, result, analyzed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		emailID, r.Metadata.RequestID, string(outcome.Status), outcome.Reason,
		r.FinalRiskScore, string(r.RiskLevel), string(r.AggregatedCertainty), r.Uncertainty,
		r.Metadata.OverrideActive, r.Metadata.TotalProcessingTimeMs, raw, analyzedAt).
		Scan(&coordinationID)
	if err != nil {
		return notFoundWrap(err, "insert coordination for %s", emailID)
	}

	for i := range r.AgentContributions {
		c := &r.AgentContributions[i]
		findings, err := json.Marshal(orEmpty(c.KeyFindings))
		if err != nil {
			return fmt.Errorf("encode findings for %s: %w", c.Agent, err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO agent_analyses
			   (coordination_id, email_id, agent_name, risk_score, certainty_level, weight,
			    weighted_contribution, reasoning, key_findings, analyzed_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			coordinationID, emailID, string(c.Agent), c.RiskScore, string(c.Certainty), c.Weight,
			c.WeightedContribution, c.Reasoning, findings, analyzedAt)
		if err != nil {
			return fmt.Errorf("insert agent analysis %s: %w", c.Agent, err)
		}
	}

	tag, err := tx.Exec(ctx,
		`UPDATE emails SET final_risk_score = $2, final_threat_level = $3, final_action = $4, updated_at = now()
		 WHERE id = $1`,
		emailID, r.FinalRiskScore, string(r.RiskLevel), string(assessment.FinalActionFor(r.FinalRiskScore)))
	if err := execExpectOne(tag, err, "update email %s", emailID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit coordination: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func scanEmail(row scannable) (email.Email, error) {
	var (
		e           email.Email
		uid         *string
		level       *string
		finalAction *string
	)
	err := row.Scan(&e.ID, &uid, &e.Subject, &e.Sender, &e.Recipient, &e.ReceivedAt,
		&e.FinalRiskScore, &level, &finalAction, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return email.Email{}, err
	}
	e.EmailUID = derefString(uid)
	e.FinalRiskLevel = assessment.RiskLevel(derefString(level))
	e.FinalAction = assessment.FinalAction(derefString(finalAction))
	return e, nil
}

// orEmpty returns items unchanged if non-nil, or an empty slice if nil.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
