// Package platform is the reference collaborator backend: form definitions
// from a formsource store, domain verification and submission storage in
// SQLite, exposed over the JSON API the embed client talks to.
package platform

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-formflow/pkg/embed"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/submit"
)

// Submission is a stored submission.
type Submission struct {
	ID         string                `json:"id"`
	FormID     string                `json:"formId"`
	Data       model.SubmissionState `json:"data"`
	Metadata   submit.Metadata       `json:"metadata"`
	ReceivedAt time.Time             `json:"receivedAt"`
}

// Store persists verified domains and submissions.
type Store struct {
	conn *sql.DB
	now  func() time.Time
}

// Open opens (or creates) the SQLite database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("platform: create db directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("platform: open sqlite: %w", err)
	}
	// single writer
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn, now: time.Now}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("platform: migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS verified_domains (
			form_id TEXT NOT NULL,
			domain TEXT NOT NULL,
			verified_at TEXT NOT NULL,
			PRIMARY KEY (form_id, domain)
		)`,
		`CREATE TABLE IF NOT EXISTS submissions (
			id TEXT PRIMARY KEY,
			form_id TEXT NOT NULL,
			data_json TEXT NOT NULL DEFAULT '{}',
			metadata_json TEXT NOT NULL DEFAULT '{}',
			received_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_form ON submissions(form_id, received_at)`,
	}
	for _, m := range migrations {
		if _, err := s.conn.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// VerifyDomain records domain as verified for formID.
func (s *Store) VerifyDomain(ctx context.Context, formID, domain string) error {
	normalized, err := embed.NormalizeDomain(domain)
	if err != nil {
		return fmt.Errorf("platform: verify domain: %w", err)
	}
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO verified_domains (form_id, domain, verified_at) VALUES (?, ?, ?)
		 ON CONFLICT(form_id, domain) DO UPDATE SET verified_at = excluded.verified_at`,
		formID, normalized, s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("platform: verify domain %q: %w", normalized, err)
	}
	return nil
}

// RevokeDomain removes a verified domain. Removing an unknown domain is not
// an error.
func (s *Store) RevokeDomain(ctx context.Context, formID, domain string) error {
	normalized, err := embed.NormalizeDomain(domain)
	if err != nil {
		return fmt.Errorf("platform: revoke domain: %w", err)
	}
	if _, err := s.conn.ExecContext(ctx,
		`DELETE FROM verified_domains WHERE form_id = ? AND domain = ?`, formID, normalized); err != nil {
		return fmt.Errorf("platform: revoke domain %q: %w", normalized, err)
	}
	return nil
}

// VerifiedDomains lists the domains verified for formID, sorted.
func (s *Store) VerifiedDomains(ctx context.Context, formID string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT domain FROM verified_domains WHERE form_id = ? ORDER BY domain`, formID)
	if err != nil {
		return nil, fmt.Errorf("platform: list domains: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var domain string
		if err := rows.Scan(&domain); err != nil {
			return nil, err
		}
		out = append(out, domain)
	}
	return out, rows.Err()
}

// DomainVerified reports whether domain was verified for formID. domain must
// already be normalised.
func (s *Store) DomainVerified(ctx context.Context, formID, domain string) (bool, error) {
	var one int
	err := s.conn.QueryRowContext(ctx,
		`SELECT 1 FROM verified_domains WHERE form_id = ? AND domain = ?`, formID, domain,
	).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("platform: lookup domain %q: %w", domain, err)
	}
	return true, nil
}

// SaveSubmission stores payload under a new id.
func (s *Store) SaveSubmission(ctx context.Context, payload submit.Payload) (Submission, error) {
	sub := Submission{
		ID:         uuid.NewString(),
		FormID:     payload.FormID,
		Data:       payload.Data.Clone(),
		Metadata:   payload.Metadata,
		ReceivedAt: s.now().UTC(),
	}
	data, err := json.Marshal(sub.Data)
	if err != nil {
		return Submission{}, fmt.Errorf("platform: encode submission data: %w", err)
	}
	meta, err := json.Marshal(sub.Metadata)
	if err != nil {
		return Submission{}, fmt.Errorf("platform: encode submission metadata: %w", err)
	}
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO submissions (id, form_id, data_json, metadata_json, received_at) VALUES (?, ?, ?, ?, ?)`,
		sub.ID, sub.FormID, string(data), string(meta), sub.ReceivedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Submission{}, fmt.Errorf("platform: save submission: %w", err)
	}
	return sub, nil
}

// Submissions lists the submissions of formID, oldest first.
func (s *Store) Submissions(ctx context.Context, formID string) ([]Submission, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, form_id, data_json, metadata_json, received_at FROM submissions
		 WHERE form_id = ? ORDER BY received_at, id`, formID)
	if err != nil {
		return nil, fmt.Errorf("platform: list submissions: %w", err)
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var (
			sub        Submission
			data, meta string
			received   string
		)
		if err := rows.Scan(&sub.ID, &sub.FormID, &data, &meta, &received); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &sub.Data); err != nil {
			return nil, fmt.Errorf("platform: decode submission %s: %w", sub.ID, err)
		}
		if err := json.Unmarshal([]byte(meta), &sub.Metadata); err != nil {
			return nil, fmt.Errorf("platform: decode submission %s metadata: %w", sub.ID, err)
		}
		if sub.ReceivedAt, err = time.Parse(time.RFC3339Nano, received); err != nil {
			return nil, fmt.Errorf("platform: decode submission %s time: %w", sub.ID, err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}
