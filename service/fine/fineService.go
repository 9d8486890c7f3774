package fine

import (
	"context"
	"log/slog"
	"time"

	loanrepo "libcirc/repository/loan"
)

// DailyRate is the fine charged per whole day overdue.
const DailyRate = 0.5

type Repo interface {
	ListOverdueOpen(ctx context.Context, now time.Time) ([]loanrepo.OverdueRow, error)
	UpdateFine(ctx context.Context, loanID int64, amount float64) error
}

// Accruer recomputes fines for every open overdue loan. The computation is a
// full recompute from current state, so re-running after a crash is safe.
type Accruer interface {
	Accrue(ctx context.Context) (int64, error)
}

type accruer struct {
	r    Repo
	log  *slog.Logger
	rate float64
	now  func() time.Time
}

func NewAccruer(r Repo, log *slog.Logger) Accruer {
	return &accruer{r: r, log: log, rate: DailyRate, now: time.Now}
}

func (a *accruer) Accrue(ctx context.Context) (int64, error) {
	now := a.now().UTC()
	rows, err := a.r.ListOverdueOpen(ctx, now)
	if err != nil {
		return 0, err
	}

	var updated int64
	for _, row := range rows {
		days := int64(now.Sub(row.DueDate).Hours() / 24)
		if days <= 0 {
			continue
		}
		if err := a.r.UpdateFine(ctx, row.LoanID, float64(days)*a.rate); err != nil {
			// one bad loan must not starve the rest of the batch
			a.log.Error("fine accrual: update failed", "loan_id", row.LoanID, "err", err)
			continue
		}
		updated++
	}
	return updated, nil
}
