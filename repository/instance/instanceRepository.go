// repository/instance/repo.go
package instancerepo

import (
	"context"
	"database/sql"
	"errors"

	"libcirc/model"
)

type Repo interface {
	// PickLoanable locks and returns one loanable copy of the book.
	PickLoanable(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error)
	Get(ctx context.Context, id int64) (*model.BookInstance, error)
	SetStatus(ctx context.Context, id int64, status model.InstanceStatus) error
}

type repo struct {
	db *sql.DB
}

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) PickLoanable(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error) {
	// Prevent double assignment with SKIP LOCKED. DAMAGED copies still
	// circulate; only LOST and flagged-out copies are excluded.
	const q = `
		SELECT bi.id
		FROM book_instances bi
		WHERE bi.book_id = $1
		AND bi.status IN ('AVAILABLE','DAMAGED')
		AND NOT EXISTS (
			SELECT 1 FROM reservations rs
			WHERE rs.book_instance_id = bi.id)
		AND NOT EXISTS (
			SELECT 1 FROM book_loans bl
			WHERE bl.book_instance_id = bi.id
			AND bl.return_date IS NULL)
		ORDER BY bi.id
		FOR UPDATE OF bi SKIP LOCKED
		LIMIT 1`
	var id int64
	err := tx.QueryRowContext(ctx, q, bookID).Scan(&id)
	return id, err
}

func (r *repo) Get(ctx context.Context, id int64) (*model.BookInstance, error) {
	const q = `
		SELECT id, book_id, status
		FROM book_instances
		WHERE id = $1`
	bi := &model.BookInstance{}
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&bi.ID, &bi.BookID, &bi.Status); err != nil {
		return nil, err
	}
	return bi, nil
}

func (r *repo) SetStatus(ctx context.Context, id int64, status model.InstanceStatus) error {
	const q = `
		UPDATE book_instances
		SET status = $2
		WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, status)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return errors.New("instance not found")
	}
	return nil
}
