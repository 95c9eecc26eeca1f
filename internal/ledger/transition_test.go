package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestionviaticos/viaticos/internal"
	expenseDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/expense"
	"github.com/gestionviaticos/viaticos/internal/ledger"
)

func TestExpenseTransitionTable(t *testing.T) {
	const amount = int64(30000)

	cases := []struct {
		name    string
		event   ledger.ExpenseEvent
		status  string
		company bool
		want    ledger.Effect
	}{
		{
			name:   "submit credits the user immediately",
			event:  ledger.EventSubmit,
			status: expenseDatamodel.StatusPending,
			want:   ledger.Effect{Balance: amount},
		},
		{
			name:    "submit of a company expense touches nothing",
			event:   ledger.EventSubmit,
			status:  expenseDatamodel.StatusPending,
			company: true,
			want:    ledger.Effect{},
		},
		{
			name:   "approve only moves the project total",
			event:  ledger.EventApprove,
			status: expenseDatamodel.StatusPending,
			want:   ledger.Effect{Project: amount},
		},
		{
			name:    "approve of a company expense still moves the project total",
			event:   ledger.EventApprove,
			status:  expenseDatamodel.StatusPending,
			company: true,
			want:    ledger.Effect{Project: amount},
		},
		{
			name:   "reject pending reverses the submission credit",
			event:  ledger.EventReject,
			status: expenseDatamodel.StatusPending,
			want:   ledger.Effect{Balance: -amount},
		},
		{
			name:   "reject approved reverses credit and project total",
			event:  ledger.EventReject,
			status: expenseDatamodel.StatusApproved,
			want:   ledger.Effect{Balance: -amount, Project: -amount},
		},
		{
			name:    "reject approved company expense only reverses the project total",
			event:   ledger.EventReject,
			status:  expenseDatamodel.StatusApproved,
			company: true,
			want:    ledger.Effect{Project: -amount},
		},
		{
			name:   "delete pending reverses the credit",
			event:  ledger.EventDelete,
			status: expenseDatamodel.StatusPending,
			want:   ledger.Effect{Balance: -amount},
		},
		{
			name:   "delete approved reverses credit and project total",
			event:  ledger.EventDelete,
			status: expenseDatamodel.StatusApproved,
			want:   ledger.Effect{Balance: -amount, Project: -amount},
		},
		{
			name:   "delete rejected is a no-op on both caches",
			event:  ledger.EventDelete,
			status: expenseDatamodel.StatusRejected,
			want:   ledger.Effect{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ledger.ExpenseTransition(tc.event, tc.status, amount, tc.company)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExpenseTransitionRejectsInvalidMoves(t *testing.T) {
	cases := []struct {
		name   string
		event  ledger.ExpenseEvent
		status string
	}{
		{"approve an approved expense", ledger.EventApprove, expenseDatamodel.StatusApproved},
		{"approve a rejected expense", ledger.EventApprove, expenseDatamodel.StatusRejected},
		{"reject a rejected expense", ledger.EventReject, expenseDatamodel.StatusRejected},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ledger.ExpenseTransition(tc.event, tc.status, 100, false)
			require.Error(t, err)

			appErr, ok := internal.IsAppError(err)
			require.True(t, ok)
			assert.Equal(t, internal.ErrCodeInvalidTransition, appErr.Code)
		})
	}
}

func TestSubmitThenTerminalEventCancels(t *testing.T) {
	// Every path out of a submitted expense must return both caches to their
	// pre-submission values once the terminal event lands.
	const amount = int64(4500)

	submit, err := ledger.ExpenseTransition(ledger.EventSubmit, expenseDatamodel.StatusPending, amount, false)
	require.NoError(t, err)

	t.Run("submit then delete pending", func(t *testing.T) {
		del, err := ledger.ExpenseTransition(ledger.EventDelete, expenseDatamodel.StatusPending, amount, false)
		require.NoError(t, err)
		assert.True(t, submit.Add(del).IsZero())
	})

	t.Run("submit then reject pending", func(t *testing.T) {
		rej, err := ledger.ExpenseTransition(ledger.EventReject, expenseDatamodel.StatusPending, amount, false)
		require.NoError(t, err)
		assert.True(t, submit.Add(rej).IsZero())
	})

	t.Run("submit, approve, then reject approved", func(t *testing.T) {
		app, err := ledger.ExpenseTransition(ledger.EventApprove, expenseDatamodel.StatusPending, amount, false)
		require.NoError(t, err)
		rej, err := ledger.ExpenseTransition(ledger.EventReject, expenseDatamodel.StatusApproved, amount, false)
		require.NoError(t, err)
		assert.True(t, submit.Add(app).Add(rej).IsZero())
	})

	t.Run("submit, approve, then delete approved", func(t *testing.T) {
		app, err := ledger.ExpenseTransition(ledger.EventApprove, expenseDatamodel.StatusPending, amount, false)
		require.NoError(t, err)
		del, err := ledger.ExpenseTransition(ledger.EventDelete, expenseDatamodel.StatusApproved, amount, false)
		require.NoError(t, err)
		assert.True(t, submit.Add(app).Add(del).IsZero())
	})
}

func TestAllocationEffects(t *testing.T) {
	assert.Equal(t, ledger.Effect{Balance: -100000}, ledger.AllocationCreate(100000))
	assert.Equal(t, ledger.Effect{Balance: 100000}, ledger.AllocationDelete(100000))
	assert.True(t, ledger.AllocationCreate(77).Add(ledger.AllocationDelete(77)).IsZero())

	// Edit applies the delta-of-deltas.
	assert.Equal(t, ledger.Effect{Balance: -50}, ledger.AllocationAmountEdit(100, 150))
	assert.Equal(t, ledger.Effect{Balance: 50}, ledger.AllocationAmountEdit(150, 100))
	assert.True(t, ledger.AllocationAmountEdit(200, 200).IsZero())

	// A transfer pair nets to zero on the user's balance.
	pair := ledger.AllocationCreate(-300).Add(ledger.AllocationCreate(300))
	assert.True(t, pair.IsZero())
}
