// repository/loan/repo.go
package loanrepo

import (
	"context"
	"database/sql"
	"time"

	"libcirc/model"
)

// HistoryRow is a loan joined with its book for list endpoints.
type HistoryRow struct {
	LoanID     int64      `json:"loan_id"`
	BookID     int64      `json:"book_id"`
	BookTitle  string     `json:"book_title"`
	InstanceID int64      `json:"instance_id"`
	Status     string     `json:"status"` // OPEN | CLOSED
	LoanDate   time.Time  `json:"loan_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	RenewCount int        `json:"renew_count"`
	FineAmount float64    `json:"fine_amount"`
}

// OverdueRow is the slice of an open loan the accrual job needs.
type OverdueRow struct {
	LoanID  int64
	DueDate time.Time
}

type Repo interface {
	Insert(ctx context.Context, tx *sql.Tx, l *model.BookLoan) error
	FindOpenForUpdate(ctx context.Context, tx *sql.Tx, userID, bookID int64) (*model.BookLoan, error)
	MarkReturned(ctx context.Context, tx *sql.Tx, loanID int64, when time.Time) error
	// Renew bumps renew_count and due_date; the renew_count guard is in
	// the statement itself so a concurrent renew cannot push past the cap.
	Renew(ctx context.Context, tx *sql.Tx, loanID int64, maxRenewals int, by time.Duration) (int64, error)
	Get(ctx context.Context, id int64) (*model.BookLoan, error)

	CountAllByUser(ctx context.Context, userID int64) (int64, error)
	ExistsForUserAndBook(ctx context.Context, userID, bookID int64) (bool, error)
	HasOpen(ctx context.Context, userID, bookID int64) (bool, error)
	ListOpenByUser(ctx context.Context, userID int64) ([]HistoryRow, error)
	ListReturnedByUser(ctx context.Context, userID int64) ([]HistoryRow, error)
	SumOpenFinesByInstance(ctx context.Context, userID int64) (map[int64]float64, error)

	ListOverdueOpen(ctx context.Context, now time.Time) ([]OverdueRow, error)
	UpdateFine(ctx context.Context, loanID int64, amount float64) error
}

type repo struct {
	db *sql.DB
}

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Insert(ctx context.Context, tx *sql.Tx, l *model.BookLoan) error {
	const q = `
		INSERT INTO book_loans (user_id, book_instance_id, status, loan_date, due_date, renew_count, fine_amount)
		VALUES ($1, $2, 'OPEN', $3, $4, 0, 0)
		RETURNING id`
	return tx.QueryRowContext(ctx, q, l.UserID, l.BookInstanceID, l.LoanDate, l.DueDate).Scan(&l.ID)
}

func (r *repo) FindOpenForUpdate(ctx context.Context, tx *sql.Tx, userID, bookID int64) (*model.BookLoan, error) {
	const q = `
		SELECT bl.id, bl.user_id, bl.book_instance_id, bl.status, bl.loan_date,
		       bl.due_date, bl.return_date, bl.renew_count, bl.fine_amount
		FROM book_loans bl
		JOIN book_instances bi ON bi.id = bl.book_instance_id
		WHERE bl.user_id = $1
		AND bi.book_id = $2
		AND bl.return_date IS NULL
		FOR UPDATE OF bl
		LIMIT 1`
	return scanLoan(tx.QueryRowContext(ctx, q, userID, bookID))
}

func (r *repo) MarkReturned(ctx context.Context, tx *sql.Tx, loanID int64, when time.Time) error {
	const q = `
		UPDATE book_loans
		SET status = 'CLOSED',
			return_date = $2
		WHERE id = $1
		AND return_date IS NULL`
	_, err := tx.ExecContext(ctx, q, loanID, when)
	return err
}

func (r *repo) Renew(ctx context.Context, tx *sql.Tx, loanID int64, maxRenewals int, by time.Duration) (int64, error) {
	const q = `
		UPDATE book_loans
		SET renew_count = renew_count + 1,
			due_date = due_date + $3
		WHERE id = $1
		AND return_date IS NULL
		AND renew_count < $2`
	res, err := tx.ExecContext(ctx, q, loanID, maxRenewals, by)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}

func (r *repo) Get(ctx context.Context, id int64) (*model.BookLoan, error) {
	const q = `
		SELECT id, user_id, book_instance_id, status, loan_date,
		       due_date, return_date, renew_count, fine_amount
		FROM book_loans
		WHERE id = $1`
	return scanLoan(r.db.QueryRowContext(ctx, q, id))
}

func (r *repo) CountAllByUser(ctx context.Context, userID int64) (int64, error) {
	const q = `
		SELECT COUNT(*)
		FROM book_loans
		WHERE user_id = $1`
	var n int64
	err := r.db.QueryRowContext(ctx, q, userID).Scan(&n)
	return n, err
}

func (r *repo) ExistsForUserAndBook(ctx context.Context, userID, bookID int64) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1
			FROM book_loans bl
			JOIN book_instances bi ON bi.id = bl.book_instance_id
			WHERE bl.user_id = $1
			AND bi.book_id = $2)`
	var ok bool
	err := r.db.QueryRowContext(ctx, q, userID, bookID).Scan(&ok)
	return ok, err
}

func (r *repo) HasOpen(ctx context.Context, userID, bookID int64) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1
			FROM book_loans bl
			JOIN book_instances bi ON bi.id = bl.book_instance_id
			WHERE bl.user_id = $1
			AND bi.book_id = $2
			AND bl.return_date IS NULL)`
	var ok bool
	err := r.db.QueryRowContext(ctx, q, userID, bookID).Scan(&ok)
	return ok, err
}

func (r *repo) ListOpenByUser(ctx context.Context, userID int64) ([]HistoryRow, error) {
	return r.listByUser(ctx, userID, `AND bl.return_date IS NULL`)
}

func (r *repo) ListReturnedByUser(ctx context.Context, userID int64) ([]HistoryRow, error) {
	return r.listByUser(ctx, userID, `AND bl.return_date IS NOT NULL`)
}

func (r *repo) listByUser(ctx context.Context, userID int64, cond string) ([]HistoryRow, error) {
	q := `
		SELECT
		bl.id          AS loan_id,
		bi.book_id     AS book_id,
		b.title        AS book_title,
		bl.book_instance_id AS instance_id,
		bl.status      AS status,
		bl.loan_date   AS loan_date,
		bl.due_date    AS due_date,
		bl.return_date AS return_date,
		bl.renew_count AS renew_count,
		bl.fine_amount AS fine_amount
		FROM book_loans bl
		JOIN book_instances bi ON bi.id = bl.book_instance_id
		JOIN books b ON b.id = bi.book_id
		WHERE bl.user_id = $1
		` + cond + `
		ORDER BY bl.loan_date DESC, bl.id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryRow
	for rows.Next() {
		var h HistoryRow
		if err := rows.Scan(
			&h.LoanID, &h.BookID, &h.BookTitle, &h.InstanceID, &h.Status,
			&h.LoanDate, &h.DueDate, &h.ReturnDate, &h.RenewCount, &h.FineAmount,
		); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *repo) SumOpenFinesByInstance(ctx context.Context, userID int64) (map[int64]float64, error) {
	const q = `
		SELECT book_instance_id, SUM(fine_amount)
		FROM book_loans
		WHERE user_id = $1
		AND return_date IS NULL
		AND fine_amount > 0
		GROUP BY book_instance_id`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]float64)
	for rows.Next() {
		var id int64
		var sum float64
		if err := rows.Scan(&id, &sum); err != nil {
			return nil, err
		}
		out[id] = sum
	}
	return out, rows.Err()
}

func (r *repo) ListOverdueOpen(ctx context.Context, now time.Time) ([]OverdueRow, error) {
	const q = `
		SELECT id, due_date
		FROM book_loans
		WHERE return_date IS NULL
		AND due_date < $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OverdueRow
	for rows.Next() {
		var o OverdueRow
		if err := rows.Scan(&o.LoanID, &o.DueDate); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *repo) UpdateFine(ctx context.Context, loanID int64, amount float64) error {
	const q = `
		UPDATE book_loans
		SET fine_amount = $2
		WHERE id = $1
		AND return_date IS NULL`
	_, err := r.db.ExecContext(ctx, q, loanID, amount)
	return err
}

func scanLoan(row *sql.Row) (*model.BookLoan, error) {
	l := &model.BookLoan{}
	err := row.Scan(
		&l.ID, &l.UserID, &l.BookInstanceID, &l.Status, &l.LoanDate,
		&l.DueDate, &l.ReturnDate, &l.RenewCount, &l.FineAmount,
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}
