package loan

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"libcirc/model"
	loanrepo "libcirc/repository/loan"
	"libcirc/service/availability"
	"libcirc/util/database"
)

// errors used by controllers

type ErrCode string

const (
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrBookNotAvailable ErrCode = "BOOK_NOT_AVAILABLE"
	ErrRenewLimit       ErrCode = "RENEW_LIMIT"
	ErrNotOpen          ErrCode = "NOT_OPEN"
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

const (
	loanPeriod  = 14 * 24 * time.Hour
	renewPeriod = 14 * 24 * time.Hour
	maxRenewals = 2
	maxLoans    = 5
)

// HistoryRow = repository shape
type HistoryRow = loanrepo.HistoryRow

type Repo interface {
	Insert(ctx context.Context, tx *sql.Tx, l *model.BookLoan) error
	FindOpenForUpdate(ctx context.Context, tx *sql.Tx, userID, bookID int64) (*model.BookLoan, error)
	MarkReturned(ctx context.Context, tx *sql.Tx, loanID int64, when time.Time) error
	Renew(ctx context.Context, tx *sql.Tx, loanID int64, maxRenewals int, by time.Duration) (int64, error)
	CountAllByUser(ctx context.Context, userID int64) (int64, error)
	ExistsForUserAndBook(ctx context.Context, userID, bookID int64) (bool, error)
	HasOpen(ctx context.Context, userID, bookID int64) (bool, error)
	ListOpenByUser(ctx context.Context, userID int64) ([]HistoryRow, error)
	ListReturnedByUser(ctx context.Context, userID int64) ([]HistoryRow, error)
	SumOpenFinesByInstance(ctx context.Context, userID int64) (map[int64]float64, error)
}

// Reservations is the slice of the reservation store Create consumes.
type Reservations interface {
	FindForUpdate(ctx context.Context, tx *sql.Tx, userID, bookID int64) (*model.Reservation, error)
	Delete(ctx context.Context, tx *sql.Tx, id int64) (int64, error)
}

type Service interface {
	// Create borrows a copy of the book: the user's own reservation is
	// consumed when one exists, otherwise a free copy is picked directly.
	Create(ctx context.Context, userID, bookID int64) (*model.BookLoan, error)

	// Return closes the single open loan for (user, book). A second call
	// finds no open loan and fails; that is the "already returned" signal.
	Return(ctx context.Context, userID, bookID int64) (*model.BookLoan, error)

	// Renew extends the due date by two weeks, at most twice per loan.
	Renew(ctx context.Context, userID, bookID int64) (*model.BookLoan, error)

	// CanUserLoan is advisory: true while the user's total loan count,
	// open or closed, is under the cap. Create does not consult it.
	CanUserLoan(ctx context.Context, userID int64) (bool, error)

	HasActiveLoan(ctx context.Context, userID, bookID int64) (bool, error)
	Current(ctx context.Context, userID int64) ([]HistoryRow, error)
	History(ctx context.Context, userID int64) ([]HistoryRow, error)
	FinesByInstance(ctx context.Context, userID int64) (map[int64]float64, error)
}

type txRunner func(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error

type service struct {
	db    *sql.DB
	r     Repo
	resv  Reservations
	avail availability.Resolver
	run   txRunner
	now   func() time.Time
}

func New(db *sql.DB, r Repo, resv Reservations, avail availability.Resolver) Service {
	return &service{db: db, r: r, resv: resv, avail: avail, run: database.WithTx, now: time.Now}
}

func (s *service) Create(ctx context.Context, userID, bookID int64) (*model.BookLoan, error) {
	l := &model.BookLoan{UserID: userID, Status: model.LoanOpen}
	err := s.run(ctx, s.db, func(tx *sql.Tx) error {
		rs, err := s.resv.FindForUpdate(ctx, tx, userID, bookID)
		switch {
		case err == nil:
			l.BookInstanceID = rs.BookInstanceID
		case errors.Is(err, sql.ErrNoRows):
			instID, err := s.avail.FindAvailable(ctx, tx, bookID)
			if err != nil {
				if errors.Is(err, availability.ErrNoInstance) {
					return makeErr(ErrBookNotAvailable)
				}
				return err
			}
			l.BookInstanceID = instID
		default:
			return err
		}

		now := s.now().UTC()
		l.LoanDate = now
		l.DueDate = now.Add(loanPeriod)
		if err := s.r.Insert(ctx, tx, l); err != nil {
			return err
		}
		// Reservation is removed only after the loan row exists,
		// inside the same tx.
		if rs != nil {
			if _, err := s.resv.Delete(ctx, tx, rs.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *service) Return(ctx context.Context, userID, bookID int64) (*model.BookLoan, error) {
	var out *model.BookLoan
	err := s.run(ctx, s.db, func(tx *sql.Tx) error {
		l, err := s.r.FindOpenForUpdate(ctx, tx, userID, bookID)
		if errors.Is(err, sql.ErrNoRows) {
			return s.noOpenLoanErr(ctx, userID, bookID)
		}
		if err != nil {
			return err
		}
		when := s.now().UTC()
		if err := s.r.MarkReturned(ctx, tx, l.ID, when); err != nil {
			return err
		}
		l.Status = model.LoanClosed
		l.ReturnDate = &when
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) Renew(ctx context.Context, userID, bookID int64) (*model.BookLoan, error) {
	var out *model.BookLoan
	err := s.run(ctx, s.db, func(tx *sql.Tx) error {
		l, err := s.r.FindOpenForUpdate(ctx, tx, userID, bookID)
		if errors.Is(err, sql.ErrNoRows) {
			return s.noOpenLoanErr(ctx, userID, bookID)
		}
		if err != nil {
			return err
		}
		if l.RenewCount >= maxRenewals {
			return makeErr(ErrRenewLimit)
		}
		aff, err := s.r.Renew(ctx, tx, l.ID, maxRenewals, renewPeriod)
		if err != nil {
			return err
		}
		if aff == 0 {
			return makeErr(ErrRenewLimit)
		}
		l.RenewCount++
		l.DueDate = l.DueDate.Add(renewPeriod)
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// noOpenLoanErr tells "never borrowed" apart from "already returned" so the
// caller gets a stable signal for each.
func (s *service) noOpenLoanErr(ctx context.Context, userID, bookID int64) error {
	any, err := s.r.ExistsForUserAndBook(ctx, userID, bookID)
	if err != nil {
		return err
	}
	if any {
		return makeErr(ErrNotOpen)
	}
	return makeErr(ErrNotFound)
}

func (s *service) CanUserLoan(ctx context.Context, userID int64) (bool, error) {
	n, err := s.r.CountAllByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return n < maxLoans, nil
}

func (s *service) HasActiveLoan(ctx context.Context, userID, bookID int64) (bool, error) {
	return s.r.HasOpen(ctx, userID, bookID)
}

func (s *service) Current(ctx context.Context, userID int64) ([]HistoryRow, error) {
	return s.r.ListOpenByUser(ctx, userID)
}

func (s *service) History(ctx context.Context, userID int64) ([]HistoryRow, error) {
	return s.r.ListReturnedByUser(ctx, userID)
}

func (s *service) FinesByInstance(ctx context.Context, userID int64) (map[int64]float64, error) {
	return s.r.SumOpenFinesByInstance(ctx, userID)
}
