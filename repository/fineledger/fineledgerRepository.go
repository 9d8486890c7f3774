package fineledgerrepo

import (
	"context"
	"database/sql"
	"time"
)

type LedgerRow struct {
	ID           int64     `json:"id"`
	LoanID       int64     `json:"loan_id"`
	EntryType    string    `json:"entry_type"`
	Amount       float64   `json:"amount"`
	BalanceAfter float64   `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}

type Repo interface {
	// GetLoanFineForUpdate locks the loan row so payment and accrual
	// arithmetic cannot interleave.
	GetLoanFineForUpdate(ctx context.Context, tx *sql.Tx, loanID int64) (ownerID int64, status string, fine float64, err error)
	SumPayments(ctx context.Context, tx *sql.Tx, loanID int64) (float64, error)
	InsertEntry(ctx context.Context, tx *sql.Tx, userID, loanID int64, entryType string, amount, balanceAfter float64) (int64, error)
	ListLedger(ctx context.Context, userID int64) ([]LedgerRow, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) GetLoanFineForUpdate(ctx context.Context, tx *sql.Tx, loanID int64) (int64, string, float64, error) {
	const q = `
		SELECT user_id, status, fine_amount
		FROM book_loans
		WHERE id = $1
		FOR UPDATE`
	var uid int64
	var status string
	var fine float64
	err := tx.QueryRowContext(ctx, q, loanID).Scan(&uid, &status, &fine)
	return uid, status, fine, err
}

func (r *repo) SumPayments(ctx context.Context, tx *sql.Tx, loanID int64) (float64, error) {
	const q = `
		SELECT COALESCE(SUM(amount),0)
		FROM fine_ledger
		WHERE loan_id = $1`
	var sum float64
	err := tx.QueryRowContext(ctx, q, loanID).Scan(&sum)
	return sum, err
}

func (r *repo) InsertEntry(ctx context.Context, tx *sql.Tx, userID, loanID int64, entryType string, amount, balanceAfter float64) (int64, error) {
	const q = `
INSERT INTO fine_ledger (user_id, loan_id, entry_type, amount, balance_after)
VALUES ($1,$2,$3,$4,$5)
RETURNING id`
	var id int64
	if err := tx.QueryRowContext(ctx, q, userID, loanID, entryType, amount, balanceAfter).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) ListLedger(ctx context.Context, userID int64) ([]LedgerRow, error) {
	const q = `
SELECT id, loan_id, entry_type, amount, balance_after, created_at
FROM fine_ledger
WHERE user_id=$1
ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LedgerRow
	for rows.Next() {
		var l LedgerRow
		if err := rows.Scan(&l.ID, &l.LoanID, &l.EntryType, &l.Amount, &l.BalanceAfter, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
