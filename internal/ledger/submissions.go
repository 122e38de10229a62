package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const submissionColumns = `id, user_id, content, content_type, status, submitted_at`

// CreateSubmission stores a pending submission and returns its id.
func (s *Store) CreateSubmission(ctx context.Context, userID int64, content string, kind ContentKind) (int64, error) {
	if kind != ContentText && kind != ContentPhoto {
		return 0, fmt.Errorf("ledger: unknown content type %q", kind)
	}
	var id int64
	q := s.db.Rebind(`INSERT INTO submissions (user_id, content, content_type, status, submitted_at)
		VALUES (?, ?, ?, ?, ?) RETURNING id`)
	err := s.db.QueryRowxContext(ctx, q, userID, content, string(kind), string(StatusPending), s.stamp()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ledger: create submission for %d: %w", userID, err)
	}
	return id, nil
}

// DeleteSubmission removes a submission that never reached moderators.
func (s *Store) DeleteSubmission(ctx context.Context, id int64) error {
	q := s.db.Rebind(`DELETE FROM submissions WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("ledger: delete submission %d: %w", id, err)
	}
	return requireRow(res, "delete submission")
}

// GetSubmission loads one submission or returns ErrNotFound.
func (s *Store) GetSubmission(ctx context.Context, id int64) (Submission, error) {
	return getSubmission(ctx, s.db, id)
}

type queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

func getSubmission(ctx context.Context, q queryer, id int64) (Submission, error) {
	var sub Submission
	query := q.Rebind(`SELECT ` + submissionColumns + ` FROM submissions WHERE id = ?`)
	if err := sqlx.GetContext(ctx, q, &sub, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Submission{}, ErrNotFound
		}
		return Submission{}, fmt.Errorf("ledger: get submission %d: %w", id, err)
	}
	return sub, nil
}

// decide moves a pending submission to status inside tx. Submissions that
// were already decided yield ErrNotPending.
func decide(ctx context.Context, tx *sqlx.Tx, id int64, status SubmissionStatus) (Submission, error) {
	sub, err := getSubmission(ctx, tx, id)
	if err != nil {
		return Submission{}, err
	}
	if sub.Status != StatusPending {
		return sub, ErrNotPending
	}
	q := tx.Rebind(`UPDATE submissions SET status = ? WHERE id = ? AND status = ?`)
	res, err := tx.ExecContext(ctx, q, string(status), id, string(StatusPending))
	if err != nil {
		return Submission{}, fmt.Errorf("ledger: set submission %d %s: %w", id, status, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Submission{}, fmt.Errorf("ledger: set submission %d %s: %w", id, status, err)
	}
	if n == 0 {
		return sub, ErrNotPending
	}
	sub.Status = status
	return sub, nil
}

// RejectSubmission marks a pending submission rejected.
func (s *Store) RejectSubmission(ctx context.Context, id int64) (Submission, error) {
	var out Submission
	err := s.inTx(ctx, "reject submission", func(tx *sqlx.Tx) error {
		sub, err := decide(ctx, tx, id, StatusRejected)
		out = sub
		return err
	})
	return out, err
}

// ApproveSubmission marks a pending submission approved, records the approved
// item count and adds it to the owner's approved_count, atomically.
func (s *Store) ApproveSubmission(ctx context.Context, id int64, count int) (Submission, error) {
	if count < 0 {
		return Submission{}, fmt.Errorf("ledger: negative approved count %d", count)
	}
	var out Submission
	err := s.inTx(ctx, "approve submission", func(tx *sqlx.Tx) error {
		sub, err := decide(ctx, tx, id, StatusApproved)
		out = sub
		if err != nil {
			return err
		}
		detail := tx.Rebind(`INSERT INTO submission_details (submission_id, approved_count, created_at) VALUES (?, ?, ?)`)
		if _, err := tx.ExecContext(ctx, detail, id, count, s.stamp()); err != nil {
			return fmt.Errorf("ledger: approval detail %d: %w", id, err)
		}
		inc := tx.Rebind(`UPDATE users SET approved_count = approved_count + ? WHERE user_id = ?`)
		if _, err := tx.ExecContext(ctx, inc, count, sub.UserID); err != nil {
			return fmt.Errorf("ledger: approved count for %d: %w", sub.UserID, err)
		}
		return nil
	})
	return out, err
}

// GetApprovalDetail returns the approval record of a submission.
func (s *Store) GetApprovalDetail(ctx context.Context, submissionID int64) (ApprovalDetail, error) {
	var d ApprovalDetail
	q := s.db.Rebind(`SELECT submission_id, approved_count, created_at FROM submission_details WHERE submission_id = ?`)
	if err := s.db.GetContext(ctx, &d, q, submissionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ApprovalDetail{}, ErrNotFound
		}
		return ApprovalDetail{}, fmt.Errorf("ledger: approval detail %d: %w", submissionID, err)
	}
	return d, nil
}

// CountSubmissions returns submission totals keyed by status.
func (s *Store) CountSubmissions(ctx context.Context) (map[SubmissionStatus]int, error) {
	var rows []struct {
		Status SubmissionStatus `db:"status"`
		N      int              `db:"n"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS n FROM submissions GROUP BY status`); err != nil {
		return nil, fmt.Errorf("ledger: count submissions: %w", err)
	}
	out := make(map[SubmissionStatus]int, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}
