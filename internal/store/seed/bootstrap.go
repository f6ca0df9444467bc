package seed

import (
	"context"
	"fmt"

	"github.com/sqlask/sqlask/internal/store"
)

// Summary counts the seeds a bootstrap run touched.
type Summary struct {
	RolledBack int `json:"rolled_back"`
	Applied    int `json:"applied"`
}

// Bootstrap opens s, resets every seed and closes the store again.
func (r *Runner) Bootstrap(ctx context.Context, s store.Store) (Summary, error) {
	db, err := s.Open(ctx)
	if err != nil {
		return Summary{}, err
	}
	defer func() { _ = db.Close() }()

	rolledBack, applied, err := r.Reset(ctx, db)
	if err != nil {
		return Summary{RolledBack: rolledBack, Applied: applied}, fmt.Errorf("reset seeds: %w", err)
	}
	return Summary{RolledBack: rolledBack, Applied: applied}, nil
}
