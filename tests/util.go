// Package testutil holds helpers shared by the tests of several packages.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/account"
	"github.com/trezcool/admissions/core/admission"
)

func CreateAccount(
	t *testing.T,
	repo account.Repository,
	name, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) account.Account {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	acc := account.Account{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := acc.SetPassword(pwd); err != nil {
			t.Fatalf("createAccount() failed: %v", err)
		}
	}
	acc, err := repo.CreateAccount(context.Background(), acc)
	if err != nil {
		t.Fatalf("createAccount() failed: %v", err)
	}
	return acc
}

// CreateApplicant creates an applicant account along with its unsubmitted application.
func CreateApplicant(
	t *testing.T,
	accRepo account.Repository,
	svc *admission.Service,
	name, email, pwd string,
) (account.Account, admission.Application) {
	acc := CreateAccount(t, accRepo, name, email, pwd, account.RoleApplicant, true)
	app, err := svc.Open(context.Background(), acc)
	if err != nil {
		t.Fatalf("createApplicant() failed: %v", err)
	}
	return acc, app
}

// SubmitApplication submits valid details on behalf of `acc`.
func SubmitApplication(t *testing.T, svc *admission.Service, acc account.Account) admission.Application {
	app, err := svc.Submit(context.Background(), acc.Principal(), acc.ID, ValidDetails(acc.Name))
	if err != nil {
		t.Fatalf("submitApplication() failed: %v", err)
	}
	return app
}

// ValidDetails returns a complete application form for an applicant named `name`.
func ValidDetails(name string) admission.Details {
	return admission.Details{
		Personal: admission.PersonalDetails{
			FirstName:   name,
			LastName:    "Mutombo",
			DateOfBirth: "2008-04-21",
			Gender:      "female",
			Phone:       "0812345678",
			Address:     "12 Avenue de la Paix, Lubumbashi",
			Nationality: "Congolese",
			BloodGroup:  "O+",
		},
		Guardian: admission.GuardianDetails{
			Name:         "Joseph Mutombo",
			Relationship: "father",
			Phone:        "0998765432",
			Email:        "joseph@example.com",
		},
		Academic: admission.AcademicDetails{
			PreviousSchool:   "Institut Maadini",
			PreviousClass:    "8",
			ApplyingForClass: "9",
			MarksObtained:    412,
			TotalMarks:       500,
			Percentage:       82.4,
		},
	}
}

// NewValidator returns a validator with every app validator registered.
func NewValidator() *core.Validator {
	v := core.NewValidator()
	account.InitValidators(v)
	admission.InitValidators(v)
	return v
}

type LogEntry struct {
	Level   string
	Message string
}

// Logger records log entries, for assertions.
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger {
	return &Logger{}
}

func (l *Logger) log(level, msg string) {
	l.mu.Lock()
	l.entries = append(l.entries, LogEntry{Level: level, Message: msg})
	l.mu.Unlock()
}

func (l *Logger) Entries(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := make([]LogEntry, 0, len(l.entries))
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			entries = append(entries, e)
		}
	}
	return entries
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.log("DEBUG", msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.log("INFO", msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.log("WARN", msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.log("ERROR", msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.log("FATAL", msg) }
