package ledger

import (
	"context"
)

// UserDrift is one user whose cached balance disagreed with the recomputed
// ground truth.
type UserDrift struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	OldBalance int64  `json:"old_balance"`
	NewBalance int64  `json:"new_balance"`
}

// RepairReport summarizes one repair run.
type RepairReport struct {
	UsersScanned int         `json:"users_scanned"`
	Drifted      []UserDrift `json:"drifted"`
}

// Repair discards every cached balance and recomputes it from the full
// allocation and expense history, using exactly the inclusion rules of the
// primitives in this package. It is idempotent: a second run with no
// intervening writes rewrites the same numbers and reports zero drift.
//
// The whole collection set is read into memory and overwritten in one batch;
// this is a maintenance operation, not something to run under write load.
func (s *Service) Repair(ctx context.Context) (*RepairReport, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	allocs, err := s.store.ListAllocations(ctx)
	if err != nil {
		return nil, err
	}
	expenses, err := s.store.ListExpenses(ctx)
	if err != nil {
		return nil, err
	}

	report := &RepairReport{UsersScanned: len(users)}

	err = s.commit(ctx, func(tx Store) error {
		for _, u := range users {
			recomputed := Balance(u.ID, allocs, expenses)

			if recomputed != u.Balance {
				report.Drifted = append(report.Drifted, UserDrift{
					UserID:     u.ID,
					Email:      u.Email,
					OldBalance: u.Balance,
					NewBalance: recomputed,
				})
				s.logger.Warn("balance drift repaired",
					"user_id", u.ID,
					"email", u.Email,
					"old_balance", u.Balance,
					"new_balance", recomputed)
			}

			if err := tx.SetUserBalance(ctx, u.ID, recomputed); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("balance repair finished",
		"users", report.UsersScanned,
		"drifted", len(report.Drifted))
	return report, nil
}
