package ledger_test

import (
	"context"
	"errors"
	"sort"

	"github.com/gestionviaticos/viaticos/internal"
	allocationDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/allocation"
	expenseDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/expense"
	projectDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/project"
	userDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/user"
	"github.com/gestionviaticos/viaticos/internal/ledger"
)

// memoryStore is a hand-rolled ledger.Store used by the protocol tests.
// Atomically snapshots all state before running the batch and restores it on
// error, mirroring the all-or-nothing contract of the real store.
type memoryStore struct {
	users       map[string]*userDatamodel.User
	projects    map[int64]*projectDatamodel.Project
	expenses    map[int64]*expenseDatamodel.Expense
	allocations map[int64]*allocationDatamodel.Allocation
	nextID      int64

	createCount     int
	failCreateAfter int // >0: creating more than this many records fails the batch
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:       make(map[string]*userDatamodel.User),
		projects:    make(map[int64]*projectDatamodel.Project),
		expenses:    make(map[int64]*expenseDatamodel.Expense),
		allocations: make(map[int64]*allocationDatamodel.Allocation),
		nextID:      1,
	}
}

func (m *memoryStore) addUser(id string, balance int64) {
	m.users[id] = &userDatamodel.User{ID: id, Email: id + "@example.com", Balance: balance}
}

func (m *memoryStore) addProject(id int64, name string) {
	m.projects[id] = &projectDatamodel.Project{ID: id, Name: name, Status: projectDatamodel.StatusActive}
}

func (m *memoryStore) balanceOf(id string) int64 {
	if u, ok := m.users[id]; ok {
		return u.Balance
	}
	return 0
}

func (m *memoryStore) projectExpensesOf(id int64) int64 {
	if p, ok := m.projects[id]; ok {
		return p.Expenses
	}
	return 0
}

func (m *memoryStore) snapshot() *memoryStore {
	clone := newMemoryStore()
	clone.nextID = m.nextID
	clone.createCount = m.createCount
	for k, v := range m.users {
		u := *v
		clone.users[k] = &u
	}
	for k, v := range m.projects {
		p := *v
		clone.projects[k] = &p
	}
	for k, v := range m.expenses {
		e := *v
		clone.expenses[k] = &e
	}
	for k, v := range m.allocations {
		a := *v
		clone.allocations[k] = &a
	}
	return clone
}

func (m *memoryStore) restore(snap *memoryStore) {
	m.users = snap.users
	m.projects = snap.projects
	m.expenses = snap.expenses
	m.allocations = snap.allocations
	m.nextID = snap.nextID
	m.createCount = snap.createCount
}

func (m *memoryStore) Atomically(ctx context.Context, fn func(tx ledger.Store) error) error {
	snap := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memoryStore) countCreate() error {
	m.createCount++
	if m.failCreateAfter > 0 && m.createCount > m.failCreateAfter {
		return errors.New("simulated write failure")
	}
	return nil
}

func (m *memoryStore) GetExpense(ctx context.Context, id int64) (*expenseDatamodel.Expense, error) {
	exp, ok := m.expenses[id]
	if !ok {
		return nil, internal.ErrExpenseNotFound
	}
	clone := *exp
	return &clone, nil
}

func (m *memoryStore) CreateExpense(ctx context.Context, exp *expenseDatamodel.Expense) error {
	if err := m.countCreate(); err != nil {
		return err
	}
	exp.ID = m.nextID
	m.nextID++
	clone := *exp
	m.expenses[exp.ID] = &clone
	return nil
}

func (m *memoryStore) SaveExpense(ctx context.Context, exp *expenseDatamodel.Expense) error {
	clone := *exp
	m.expenses[exp.ID] = &clone
	return nil
}

func (m *memoryStore) DeleteExpense(ctx context.Context, id int64) error {
	delete(m.expenses, id)
	return nil
}

func (m *memoryStore) GetAllocation(ctx context.Context, id int64) (*allocationDatamodel.Allocation, error) {
	alloc, ok := m.allocations[id]
	if !ok {
		return nil, internal.ErrAllocationNotFound
	}
	clone := *alloc
	return &clone, nil
}

func (m *memoryStore) CreateAllocation(ctx context.Context, alloc *allocationDatamodel.Allocation) error {
	if err := m.countCreate(); err != nil {
		return err
	}
	alloc.ID = m.nextID
	m.nextID++
	clone := *alloc
	m.allocations[alloc.ID] = &clone
	return nil
}

func (m *memoryStore) SaveAllocation(ctx context.Context, alloc *allocationDatamodel.Allocation) error {
	clone := *alloc
	m.allocations[alloc.ID] = &clone
	return nil
}

func (m *memoryStore) DeleteAllocation(ctx context.Context, id int64) error {
	delete(m.allocations, id)
	return nil
}

func (m *memoryStore) AddUserBalance(ctx context.Context, userID string, delta int64) (bool, error) {
	u, ok := m.users[userID]
	if !ok {
		return false, nil
	}
	u.Balance += delta
	return true, nil
}

func (m *memoryStore) AddProjectExpenses(ctx context.Context, projectID int64, delta int64) (bool, error) {
	p, ok := m.projects[projectID]
	if !ok {
		return false, nil
	}
	p.Expenses += delta
	return true, nil
}

func (m *memoryStore) SetUserBalance(ctx context.Context, userID string, balance int64) error {
	if u, ok := m.users[userID]; ok {
		u.Balance = balance
	}
	return nil
}

func (m *memoryStore) ListUsers(ctx context.Context) ([]*userDatamodel.User, error) {
	out := make([]*userDatamodel.User, 0, len(m.users))
	for _, u := range m.users {
		clone := *u
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) ListAllocations(ctx context.Context) ([]*allocationDatamodel.Allocation, error) {
	out := make([]*allocationDatamodel.Allocation, 0, len(m.allocations))
	for _, a := range m.allocations {
		clone := *a
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) ListExpenses(ctx context.Context) ([]*expenseDatamodel.Expense, error) {
	out := make([]*expenseDatamodel.Expense, 0, len(m.expenses))
	for _, e := range m.expenses {
		clone := *e
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
