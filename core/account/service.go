package account

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
)

var (
	// errors
	ErrNotFound    = errors.New("account not found")
	ErrEmailExists = errors.New("an account with this email already exists")
	ErrInvalidRole = errors.New("invalid role")
)

type (
	Repository interface {
		// CreateAccount fails with ErrEmailExists if the email is taken.
		CreateAccount(ctx context.Context, acc Account) (Account, error)
		GetAccount(ctx context.Context, filter GetFilter) (Account, error)
		UpdateAccount(ctx context.Context, acc Account) (Account, error)
		DeleteAccount(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		validate *core.Validator
	}
)

func NewService(repo Repository, validate *core.Validator) *Service {
	return &Service{repo: repo, validate: validate}
}

func emailExistsErr() error {
	return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
}

// Register creates an applicant Account.
func (svc *Service) Register(ctx context.Context, na NewAccount) (Account, error) {
	return svc.Create(ctx, na, RoleApplicant)
}

// Create validates `na` and creates an active Account with the given role.
func (svc *Service) Create(ctx context.Context, na NewAccount, role string) (Account, error) {
	if !IsValidRole(role) {
		return Account{}, ErrInvalidRole
	}
	na.Clean()
	if err := svc.validate.Check(na); err != nil {
		return Account{}, err
	}

	if _, err := svc.repo.GetAccount(ctx, GetFilter{Email: na.Email}); err == nil {
		return Account{}, emailExistsErr()
	} else if errors.Cause(err) != ErrNotFound {
		return Account{}, errors.Wrap(err, "checking email uniqueness")
	}

	now := time.Now().UTC()
	acc := Account{
		ID:        uuid.New().String(),
		Name:      na.Name,
		Email:     na.Email,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := acc.SetPassword(na.Password); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}

	acc, err := svc.repo.CreateAccount(ctx, acc)
	if err != nil {
		// lost a race against a concurrent registration
		if errors.Cause(err) == ErrEmailExists {
			return Account{}, emailExistsErr()
		}
		return Account{}, errors.Wrap(err, "creating account")
	}
	return acc, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Account, error) {
	return svc.repo.GetAccount(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Account, error) {
	return svc.repo.GetAccount(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) SetLastLogin(ctx context.Context, acc Account) (Account, error) {
	now := time.Now().UTC()
	acc.LastLogin = now
	acc.UpdatedAt = now
	return svc.repo.UpdateAccount(ctx, acc)
}

// SetPassword validates `pwd` against the password policy and stores its hash.
func (svc *Service) SetPassword(ctx context.Context, acc Account, pwd string) (Account, error) {
	if err := svc.validate.Check(SetPassword{Name: acc.Name, Email: acc.Email, Password: pwd}); err != nil {
		return Account{}, err
	}
	if err := acc.SetPassword(pwd); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}
	acc.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAccount(ctx, acc)
}

// SetRole changes the role of an existing Account.
func (svc *Service) SetRole(ctx context.Context, acc Account, role string) (Account, error) {
	if !IsValidRole(role) {
		return Account{}, ErrInvalidRole
	}
	acc.Role = role
	acc.IsActive = true
	acc.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAccount(ctx, acc)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteAccount(ctx, id)
}
