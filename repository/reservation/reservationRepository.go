// repository/reservation/repo.go
package reservationrepo

import (
	"context"
	"database/sql"
	"time"

	"libcirc/model"
)

type Repo interface {
	// Cap check support: the user row lock serializes concurrent creates
	// for the same user so the count cannot go stale before the insert.
	LockUser(ctx context.Context, tx *sql.Tx, userID int64) error
	CountByUser(ctx context.Context, tx *sql.Tx, userID int64) (int64, error)

	BookExists(ctx context.Context, bookID int64) (bool, error)

	Insert(ctx context.Context, tx *sql.Tx, rs *model.Reservation) error
	FindForUpdate(ctx context.Context, tx *sql.Tx, userID, bookID int64) (*model.Reservation, error)
	Delete(ctx context.Context, tx *sql.Tx, id int64) (int64, error)
	ExtendDue(ctx context.Context, id int64, by time.Duration) (*model.Reservation, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Reservation, error)
}

type repo struct {
	db *sql.DB
}

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) LockUser(ctx context.Context, tx *sql.Tx, userID int64) error {
	const q = `
		SELECT id
		FROM users
		WHERE id = $1
		FOR UPDATE`
	var id int64
	return tx.QueryRowContext(ctx, q, userID).Scan(&id)
}

func (r *repo) CountByUser(ctx context.Context, tx *sql.Tx, userID int64) (int64, error) {
	const q = `
		SELECT COUNT(*)
		FROM reservations
		WHERE user_id = $1`
	var n int64
	err := tx.QueryRowContext(ctx, q, userID).Scan(&n)
	return n, err
}

func (r *repo) BookExists(ctx context.Context, bookID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`
	var ok bool
	err := r.db.QueryRowContext(ctx, q, bookID).Scan(&ok)
	return ok, err
}

func (r *repo) Insert(ctx context.Context, tx *sql.Tx, rs *model.Reservation) error {
	const q = `
		INSERT INTO reservations (user_id, book_instance_id, reserved_at, due_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	return tx.QueryRowContext(ctx, q, rs.UserID, rs.BookInstanceID, rs.ReservedAt, rs.DueDate).Scan(&rs.ID)
}

func (r *repo) FindForUpdate(ctx context.Context, tx *sql.Tx, userID, bookID int64) (*model.Reservation, error) {
	const q = `
		SELECT rs.id, rs.user_id, rs.book_instance_id, rs.reserved_at, rs.due_date, rs.returned_at
		FROM reservations rs
		JOIN book_instances bi ON bi.id = rs.book_instance_id
		WHERE rs.user_id = $1
		AND bi.book_id = $2
		FOR UPDATE OF rs
		LIMIT 1`
	rs := &model.Reservation{}
	err := tx.QueryRowContext(ctx, q, userID, bookID).Scan(
		&rs.ID, &rs.UserID, &rs.BookInstanceID, &rs.ReservedAt, &rs.DueDate, &rs.ReturnedAt,
	)
	if err != nil {
		return nil, err
	}
	return rs, nil
}

func (r *repo) Delete(ctx context.Context, tx *sql.Tx, id int64) (int64, error) {
	const q = `DELETE FROM reservations WHERE id = $1`
	var res sql.Result
	var err error
	if tx != nil {
		res, err = tx.ExecContext(ctx, q, id)
	} else {
		res, err = r.db.ExecContext(ctx, q, id)
	}
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}

func (r *repo) ExtendDue(ctx context.Context, id int64, by time.Duration) (*model.Reservation, error) {
	const q = `
		UPDATE reservations
		SET due_date = due_date + $2
		WHERE id = $1
		RETURNING id, user_id, book_instance_id, reserved_at, due_date, returned_at`
	rs := &model.Reservation{}
	err := r.db.QueryRowContext(ctx, q, id, by).Scan(
		&rs.ID, &rs.UserID, &rs.BookInstanceID, &rs.ReservedAt, &rs.DueDate, &rs.ReturnedAt,
	)
	if err != nil {
		return nil, err
	}
	return rs, nil
}

func (r *repo) ListByUser(ctx context.Context, userID int64) ([]model.Reservation, error) {
	const q = `
		SELECT id, user_id, book_instance_id, reserved_at, due_date, returned_at
		FROM reservations
		WHERE user_id = $1
		ORDER BY reserved_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		var rs model.Reservation
		if err := rows.Scan(&rs.ID, &rs.UserID, &rs.BookInstanceID, &rs.ReservedAt, &rs.DueDate, &rs.ReturnedAt); err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}
