package invoice

import (
	"context"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/gestionviaticos/viaticos/internal"
	invoiceDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/invoice"
	movementDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/movement"
)

// DefaultReconcileTolerance allows bank rounding of one minor unit when
// matching movements to invoice totals.
const DefaultReconcileTolerance int64 = 1

// bankCSVRow is one statement line as exported by the bank.
type bankCSVRow struct {
	Date        string `csv:"date"`
	Description string `csv:"description"`
	Amount      int64  `csv:"amount"`
	Bank        string `csv:"bank"`
}

var bankDateLayouts = []string{"2006-01-02", "02/01/2006"}

func (r bankCSVRow) parseDate() (time.Time, error) {
	var lastErr error
	for _, layout := range bankDateLayouts {
		t, err := time.Parse(layout, r.Date)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ImportMovements parses a bank CSV export and stores its rows for
// reconciliation. Rows with an unparseable date or a zero amount fail the
// whole import; a half-imported statement is worse than none.
func (s *Service) ImportMovements(ctx context.Context, csv io.Reader) ([]*movementDatamodel.Movement, error) {
	var rows []*bankCSVRow
	if err := gocsv.Unmarshal(csv, &rows); err != nil {
		return nil, internal.NewValidationError("could not parse bank CSV", internal.ErrCodeValidationFailed).WithCause(err)
	}
	if len(rows) == 0 {
		return nil, internal.NewValidationError("bank CSV has no rows", internal.ErrCodeValidationFailed)
	}

	now := time.Now()
	movements := make([]*movementDatamodel.Movement, 0, len(rows))
	for _, row := range rows {
		if row.Amount == 0 {
			return nil, internal.NewValidationError("bank CSV row has a zero amount", internal.ErrCodeInvalidAmount)
		}
		date, err := row.parseDate()
		if err != nil {
			return nil, internal.NewValidationError("bank CSV row has an invalid date", internal.ErrCodeInvalidDate).WithCause(err)
		}
		movements = append(movements, &movementDatamodel.Movement{
			Date:        date,
			Description: row.Description,
			Amount:      row.Amount,
			Bank:        row.Bank,
			ImportedAt:  now,
		})
	}

	if err := s.repo.CreateMovements(ctx, movements); err != nil {
		return nil, err
	}

	s.logger.Info("bank movements imported", "count", len(movements))
	return movements, nil
}

// Reconcile pairs pending invoices with unmatched movements by amount. Each
// invoice and each movement match at most once per run; a matched invoice is
// marked paid and linked to its movement.
func (s *Service) Reconcile(ctx context.Context, dto ReconcileDTO) (*ReconcileReport, error) {
	tolerance := dto.Tolerance
	if tolerance < 0 {
		return nil, internal.NewValidationError("tolerance cannot be negative", internal.ErrCodeInvalidAmount)
	}
	if tolerance == 0 {
		tolerance = DefaultReconcileTolerance
	}

	pending, err := s.repo.List(ctx, invoiceDatamodel.PaymentStatusPending)
	if err != nil {
		return nil, err
	}
	movements, err := s.repo.ListUnmatchedMovements(ctx)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{Pending: len(pending)}
	usedMovements := make(map[int64]bool)

	for _, inv := range pending {
		for _, mv := range movements {
			if usedMovements[mv.ID] {
				continue
			}
			if abs(inv.TotalAmount-mv.Amount) > tolerance {
				continue
			}

			if _, err := s.MarkPaid(ctx, inv.ID); err != nil {
				return nil, err
			}
			if err := s.repo.LinkMovement(ctx, mv.ID, inv.ID); err != nil {
				return nil, err
			}

			usedMovements[mv.ID] = true
			report.Matched = append(report.Matched, Match{Invoice: inv, Movement: mv})
			s.logger.Info("invoice reconciled",
				"invoice_id", inv.ID,
				"movement_id", mv.ID,
				"amount", mv.Amount)
			break
		}
	}

	report.Unmatched = len(movements) - len(report.Matched)
	return report, nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
