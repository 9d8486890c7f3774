package availability

import (
	"context"
	"database/sql"
	"errors"
)

// ErrNoInstance means no loanable copy currently exists for the book. It is
// an expected outcome for callers, not a defect.
var ErrNoInstance = errors.New("no loanable instance")

type Repo interface {
	PickLoanable(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error)
}

// Resolver finds one free, loanable copy of a book. The pick runs inside the
// caller's transaction so the chosen row stays locked until commit.
type Resolver interface {
	FindAvailable(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error)
}

type resolver struct{ r Repo }

func New(r Repo) Resolver { return &resolver{r: r} }

func (s *resolver) FindAvailable(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error) {
	id, err := s.r.PickLoanable(ctx, tx, bookID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNoInstance
	}
	return id, err
}
