package reservation

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"libcirc/model"
	"libcirc/service/availability"
	"libcirc/util/database"
)

// errors used by controllers

type ErrCode string

const (
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrBookNotFound     ErrCode = "BOOK_NOT_FOUND"
	ErrBookNotAvailable ErrCode = "BOOK_NOT_AVAILABLE"
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
	maxConcurrent = 3
	holdPeriod    = 3 * 24 * time.Hour
	extendStep    = 24 * time.Hour
)

type Repo interface {
	LockUser(ctx context.Context, tx *sql.Tx, userID int64) error
	CountByUser(ctx context.Context, tx *sql.Tx, userID int64) (int64, error)
	BookExists(ctx context.Context, bookID int64) (bool, error)
	Insert(ctx context.Context, tx *sql.Tx, rs *model.Reservation) error
	Delete(ctx context.Context, tx *sql.Tx, id int64) (int64, error)
	ExtendDue(ctx context.Context, id int64, by time.Duration) (*model.Reservation, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Reservation, error)
}

type Service interface {
	// Create places a hold on a free copy of the book. The per-user cap
	// and the availability scan both surface as BOOK_NOT_AVAILABLE.
	Create(ctx context.Context, userID, bookID int64) (*model.Reservation, error)

	// Cancel removes the reservation unconditionally; ownership checks
	// belong to the caller.
	Cancel(ctx context.Context, reservationID int64) error

	// Extend pushes the due date out by one day.
	Extend(ctx context.Context, reservationID int64) (*model.Reservation, error)

	My(ctx context.Context, userID int64) ([]model.Reservation, error)
}

type txRunner func(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error

type service struct {
	db    *sql.DB
	r     Repo
	avail availability.Resolver
	run   txRunner
	now   func() time.Time
}

func New(db *sql.DB, r Repo, avail availability.Resolver) Service {
	return &service{db: db, r: r, avail: avail, run: database.WithTx, now: time.Now}
}

func (s *service) Create(ctx context.Context, userID, bookID int64) (*model.Reservation, error) {
	exists, err := s.r.BookExists(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, makeErr(ErrBookNotFound)
	}

	rs := &model.Reservation{UserID: userID}
	err = s.run(ctx, s.db, func(tx *sql.Tx) error {
		// The user row lock serializes concurrent Creates for the
		// same user, so the count below cannot go stale before the
		// insert.
		if err := s.r.LockUser(ctx, tx, userID); err != nil {
			return err
		}
		n, err := s.r.CountByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if n >= maxConcurrent {
			return makeErr(ErrBookNotAvailable)
		}

		instID, err := s.avail.FindAvailable(ctx, tx, bookID)
		if err != nil {
			if errors.Is(err, availability.ErrNoInstance) {
				return makeErr(ErrBookNotAvailable)
			}
			return err
		}

		now := s.now().UTC()
		rs.BookInstanceID = instID
		rs.ReservedAt = now
		rs.DueDate = now.Add(holdPeriod)
		return s.r.Insert(ctx, tx, rs)
	})
	if err != nil {
		return nil, err
	}
	return rs, nil
}

func (s *service) Cancel(ctx context.Context, reservationID int64) error {
	aff, err := s.r.Delete(ctx, nil, reservationID)
	if err != nil {
		return err
	}
	if aff == 0 {
		return makeErr(ErrNotFound)
	}
	return nil
}

func (s *service) Extend(ctx context.Context, reservationID int64) (*model.Reservation, error) {
	rs, err := s.r.ExtendDue(ctx, reservationID, extendStep)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, makeErr(ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rs, nil
}

func (s *service) My(ctx context.Context, userID int64) ([]model.Reservation, error) {
	return s.r.ListByUser(ctx, userID)
}
