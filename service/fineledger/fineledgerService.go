package fineledger

import (
	"context"
	"database/sql"
	"errors"

	"libcirc/model"
	flrepo "libcirc/repository/fineledger"
	"libcirc/util/database"
)

// errors used by controllers

type ErrCode string

const (
	ErrNotFound       ErrCode = "NOT_FOUND"
	ErrNotOwner       ErrCode = "NOT_OWNER"
	ErrLoanStillOpen  ErrCode = "LOAN_STILL_OPEN"
	ErrBadAmount      ErrCode = "BAD_AMOUNT"
	ErrExceedsBalance ErrCode = "EXCEEDS_BALANCE"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

// LedgerRow = repository shape
type LedgerRow = flrepo.LedgerRow

type Repo interface {
	GetLoanFineForUpdate(ctx context.Context, tx *sql.Tx, loanID int64) (ownerID int64, status string, fine float64, err error)
	SumPayments(ctx context.Context, tx *sql.Tx, loanID int64) (float64, error)
	InsertEntry(ctx context.Context, tx *sql.Tx, userID, loanID int64, entryType string, amount, balanceAfter float64) (int64, error)
	ListLedger(ctx context.Context, userID int64) ([]LedgerRow, error)
}

type Service interface {
	// Pay records a settlement against the fine of the user's own closed
	// loan. Fines on open loans keep accruing and cannot be settled yet.
	Pay(ctx context.Context, userID, loanID int64, amount float64) (*LedgerRow, error)

	// Ledger lists the user's settlement entries, newest first.
	Ledger(ctx context.Context, userID int64) ([]LedgerRow, error)
}

type txRunner func(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error

type service struct {
	db  *sql.DB
	r   Repo
	run txRunner
}

func New(db *sql.DB, r Repo) Service {
	return &service{db: db, r: r, run: database.WithTx}
}

func (s *service) Pay(ctx context.Context, userID, loanID int64, amount float64) (*LedgerRow, error) {
	if amount <= 0 {
		return nil, makeErr(ErrBadAmount)
	}

	var out *LedgerRow
	err := s.run(ctx, s.db, func(tx *sql.Tx) error {
		owner, status, fine, err := s.r.GetLoanFineForUpdate(ctx, tx, loanID)
		if errors.Is(err, sql.ErrNoRows) {
			return makeErr(ErrNotFound)
		}
		if err != nil {
			return err
		}
		if owner != userID {
			return makeErr(ErrNotOwner)
		}
		if status != string(model.LoanClosed) {
			return makeErr(ErrLoanStillOpen)
		}

		paid, err := s.r.SumPayments(ctx, tx, loanID)
		if err != nil {
			return err
		}
		outstanding := fine - paid
		if amount > outstanding {
			return makeErr(ErrExceedsBalance)
		}

		id, err := s.r.InsertEntry(ctx, tx, userID, loanID, string(model.LedgerFinePayment), amount, outstanding-amount)
		if err != nil {
			return err
		}
		out = &LedgerRow{
			ID:           id,
			LoanID:       loanID,
			EntryType:    string(model.LedgerFinePayment),
			Amount:       amount,
			BalanceAfter: outstanding - amount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) Ledger(ctx context.Context, userID int64) ([]LedgerRow, error) {
	return s.r.ListLedger(ctx, userID)
}
