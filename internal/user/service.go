package user

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gestionviaticos/viaticos/internal"
	userDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/user"
	"github.com/gestionviaticos/viaticos/internal/ledger"
)

type Service struct {
	repo   Repository
	hasher PasswordHasher
	logger *slog.Logger
}

func NewService(repo Repository, hasher PasswordHasher, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		logger: logger,
	}
}

// Create registers a user with a first-login password that must be changed.
func (s *Service) Create(ctx context.Context, dto CreateUserDTO) (*userDatamodel.User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByEmail(ctx, dto.Email); err == nil {
		return nil, internal.NewConflictError("email already registered", internal.ErrCodeValidationFailed)
	}

	hash, err := s.hasher.HashPassword(dto.Password)
	if err != nil {
		return nil, err
	}

	u := &userDatamodel.User{
		ID:                 strings.TrimSpace(dto.ID),
		Name:               strings.TrimSpace(dto.Name),
		Email:              strings.ToLower(strings.TrimSpace(dto.Email)),
		PasswordHash:       hash,
		Role:               dto.Role,
		IsActive:           true,
		MustChangePassword: true,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("user created", "user_id", u.ID, "role", u.Role)
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (*userDatamodel.User, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns every account with its derived summary, for the admin panel.
func (s *Service) List(ctx context.Context) ([]*Profile, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	profiles := make([]*Profile, 0, len(users))
	for _, u := range users {
		summary, err := s.summarize(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, &Profile{User: u, Summary: summary})
	}
	return profiles, nil
}

func (s *Service) Update(ctx context.Context, id string, dto UpdateUserDTO) (*userDatamodel.User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil {
		u.Name = strings.TrimSpace(*dto.Name)
	}
	if dto.Role != nil {
		u.Role = *dto.Role
	}
	if dto.IsActive != nil {
		u.IsActive = *dto.IsActive
	}

	if err := s.repo.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Profile returns one user with the accounting summary.
func (s *Service) Profile(ctx context.Context, id string) (*Profile, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	summary, err := s.summarize(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Profile{User: u, Summary: summary}, nil
}

// Migrate moves an account to a new ID, typically after the identity provider
// reissued the uid. History and the stored balance follow the new ID; the old
// ID stops resolving.
func (s *Service) Migrate(ctx context.Context, oldID string, dto MigrateAccountDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}
	newID := strings.TrimSpace(dto.NewID)
	if newID == oldID {
		return internal.NewValidationError("new account id equals the current one", internal.ErrCodeUserAlreadyMigrated)
	}

	if _, err := s.repo.GetByID(ctx, newID); err == nil {
		return internal.NewConflictError("target account id is taken", internal.ErrCodeMigrationTargetTaken)
	}

	if err := s.repo.Migrate(ctx, oldID, newID); err != nil {
		return err
	}

	s.logger.Info("account migrated", "old_id", oldID, "new_id", newID)
	return nil
}

func (s *Service) summarize(ctx context.Context, userID string) (ledger.UserSummary, error) {
	allocs, err := s.repo.ListAllocationsByUser(ctx, userID)
	if err != nil {
		return ledger.UserSummary{}, err
	}
	expenses, err := s.repo.ListExpensesByUser(ctx, userID)
	if err != nil {
		return ledger.UserSummary{}, err
	}
	return ledger.SummarizeUser(userID, allocs, expenses), nil
}
