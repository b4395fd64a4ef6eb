package account

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/admissions/core"
)

// Roles
const (
	RoleSuperAdmin = "superadmin"
	RoleAdmin      = "admin"
	RoleTeacher    = "teacher"
	RoleStudent    = "student"
	RoleApplicant  = "applicant"
)

var (
	AdminRoles = []string{RoleSuperAdmin, RoleAdmin}
	AllRoles   = []string{RoleSuperAdmin, RoleAdmin, RoleTeacher, RoleStudent, RoleApplicant}

	rolePriorities = map[string]int{
		RoleSuperAdmin: 30,
		RoleAdmin:      21,
		RoleTeacher:    11,
		RoleStudent:    2,
		RoleApplicant:  1,
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

func IsValidRole(role string) bool {
	_, ok := rolePriorities[role]
	return ok
}

func IsAdminRole(role string) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}

// Principal is the resolved identity of the caller of an operation.
type Principal struct {
	AccountID string
	Role      string
}

func (p Principal) IsAdmin() bool {
	return IsAdminRole(p.Role)
}

func (p Principal) Owns(accountID string) bool {
	return p.AccountID != "" && p.AccountID == accountID
}

type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"isActive"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"` // UTC
	UpdatedAt    time.Time `json:"updatedAt"` // UTC
	LastLogin    time.Time `json:"lastLogin"` // UTC
}

func (acc *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	acc.PasswordHash = hash
	return nil
}

func (acc *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(pwd))
}

func (acc Account) IsAdmin() bool {
	return IsAdminRole(acc.Role)
}

func (acc Account) Principal() Principal {
	return Principal{AccountID: acc.ID, Role: acc.Role}
}

// NewAccount contains information needed to register a new Account.
type NewAccount struct {
	Name            string `json:"name" validate:"required,max=255"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

func (na *NewAccount) Clean() {
	na.Name = core.CleanString(na.Name)
	na.Email = core.CleanString(na.Email, true /* lower */)
}

// GetFilter selects a single Account; the first non-empty field wins.
type GetFilter struct {
	ID    string
	Email string
}

// SetPassword is used to (re)set the password of an existing Account.
// Name & Email are only used by the password similarity check.
type SetPassword struct {
	Name     string `json:"-"`
	Email    string `json:"-"`
	Password string `json:"password" validate:"required"`
}
