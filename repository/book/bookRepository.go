package bookrepo

import (
	"context"
	"database/sql"
	"errors"

	"libcirc/model"
)

type Book = model.Book

type Repo interface {
	CreateBook(ctx context.Context, title, author, category string) (int64, error)
	AddInstances(ctx context.Context, bookID int64, n int) (int64, error)
	List(ctx context.Context) ([]Book, error)
	Detail(ctx context.Context, id int64) (*Book, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) CreateBook(ctx context.Context, title, author, category string) (int64, error) {
	const q = `
INSERT INTO books (title, author, category)
VALUES ($1,$2,$3)
RETURNING id`
	var id int64
	if err := r.db.QueryRowContext(ctx, q, title, author, category).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) AddInstances(ctx context.Context, bookID int64, n int) (int64, error) {
	if n <= 0 {
		return 0, errors.New("n must be > 0")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	const ins = `INSERT INTO book_instances (book_id, status) VALUES ($1,'AVAILABLE')`
	for i := 0; i < n; i++ {
		if _, err = tx.ExecContext(ctx, ins, bookID); err != nil {
			return 0, err
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return int64(n), nil
}

// A copy counts as available when nothing blocks it from being loaned: status
// AVAILABLE or DAMAGED, no open reservation, no open loan.
const availableCount = `
	COALESCE(COUNT(bi.*) FILTER (
		WHERE bi.status IN ('AVAILABLE','DAMAGED')
		AND NOT EXISTS (SELECT 1 FROM reservations rs WHERE rs.book_instance_id = bi.id)
		AND NOT EXISTS (SELECT 1 FROM book_loans bl
			WHERE bl.book_instance_id = bi.id AND bl.return_date IS NULL)
	),0)::BIGINT AS available_instances`

func (r *repo) List(ctx context.Context) ([]Book, error) {

	q := `
	SELECT b.id, b.title, b.author, b.category, ` + availableCount + `
	FROM books b
	LEFT JOIN book_instances bi ON bi.book_id=b.id
	GROUP BY b.id
	ORDER BY b.id DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Category, &b.AvailableInstances); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repo) Detail(ctx context.Context, id int64) (*Book, error) {
	q := `
SELECT b.id, b.title, b.author, b.category, ` + availableCount + `
FROM books b
LEFT JOIN book_instances bi ON bi.book_id=b.id
WHERE b.id=$1
GROUP BY b.id`
	var b Book
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&b.ID, &b.Title, &b.Author, &b.Category, &b.AvailableInstances); err != nil {
		return nil, err
	}
	return &b, nil
}
