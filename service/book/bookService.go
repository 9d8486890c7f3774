package booksvc

import (
	"context"
	"errors"

	"libcirc/model"
	repo "libcirc/repository/book"
)

type Book = repo.Book

var ErrBadStatus = errors.New("invalid instance status")

type Repo interface {
	CreateBook(ctx context.Context, title, author, category string) (int64, error)
	AddInstances(ctx context.Context, bookID int64, n int) (int64, error)
	List(ctx context.Context) ([]Book, error)
	Detail(ctx context.Context, id int64) (*Book, error)
}

// Instances is the slice of the instance store the catalog needs for
// librarian status flips (DAMAGED, LOST, back to AVAILABLE).
type Instances interface {
	SetStatus(ctx context.Context, id int64, status model.InstanceStatus) error
}

type Service interface {
	Create(ctx context.Context, title, author, category string) (int64, error)
	AddInstances(ctx context.Context, bookID int64, n int) (int64, error)
	List(ctx context.Context) ([]Book, error)
	Detail(ctx context.Context, id int64) (*Book, error)
	SetInstanceStatus(ctx context.Context, instanceID int64, status string) error
}

type service struct {
	r  Repo
	ir Instances
}

func New(r Repo, ir Instances) Service { return &service{r: r, ir: ir} }

func (s *service) Create(ctx context.Context, title, author, category string) (int64, error) {
	if title == "" || author == "" || category == "" {
		return 0, errors.New("invalid payload")
	}
	return s.r.CreateBook(ctx, title, author, category)
}

func (s *service) AddInstances(ctx context.Context, bookID int64, n int) (int64, error) {
	return s.r.AddInstances(ctx, bookID, n)
}

func (s *service) List(ctx context.Context) ([]Book, error)            { return s.r.List(ctx) }
func (s *service) Detail(ctx context.Context, id int64) (*Book, error) { return s.r.Detail(ctx, id) }

func (s *service) SetInstanceStatus(ctx context.Context, instanceID int64, status string) error {
	if !model.IsValidInstanceStatus(status) {
		return ErrBadStatus
	}
	return s.ir.SetStatus(ctx, instanceID, model.InstanceStatus(status))
}
