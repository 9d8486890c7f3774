package availability

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

type repoMock struct {
	fn func(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error)
}

func (m *repoMock) PickLoanable(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error) {
	return m.fn(ctx, tx, bookID)
}

func TestFindAvailable(t *testing.T) {
	s := New(&repoMock{fn: func(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error) {
		return 12, nil
	}})
	id, err := s.FindAvailable(context.Background(), nil, 5)
	if err != nil || id != 12 {
		t.Fatalf("got id=%d err=%v; want 12 nil", id, err)
	}
}

func TestFindAvailable_NoRowsBecomesErrNoInstance(t *testing.T) {
	s := New(&repoMock{fn: func(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error) {
		return 0, sql.ErrNoRows
	}})
	_, err := s.FindAvailable(context.Background(), nil, 5)
	if !errors.Is(err, ErrNoInstance) {
		t.Fatalf("err = %v; want ErrNoInstance", err)
	}
}

func TestFindAvailable_OtherErrorsPassThrough(t *testing.T) {
	boom := errors.New("boom")
	s := New(&repoMock{fn: func(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error) {
		return 0, boom
	}})
	_, err := s.FindAvailable(context.Background(), nil, 5)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v; want boom", err)
	}
}
