package admission

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/trezcool/admissions/core"
)

// State is the lifecycle state of an Application.
type State string

const (
	StateUnsubmitted State = "unsubmitted"
	StatePending     State = "pending"
	StateApproved    State = "approved"
	StateRejected    State = "rejected"
)

var (
	// SubmittedStates are the states an Application can be in once submitted.
	SubmittedStates = []State{StatePending, StateApproved, StateRejected}

	transitions = map[State][]State{
		StateUnsubmitted: {StatePending},
		StatePending:     {StateApproved, StateRejected},
	}
)

func (s State) IsValid() bool {
	switch s {
	case StateUnsubmitted, StatePending, StateApproved, StateRejected:
		return true
	}
	return false
}

func (s State) IsSubmitted() bool { return s.IsValid() && s != StateUnsubmitted }
func (s State) IsTerminal() bool  { return s == StateApproved || s == StateRejected }

// CanTransition reports whether the lifecycle allows moving from s to `to`.
func (s State) CanTransition(to State) bool {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ParseStatus parses an admission status as exposed to API clients (pending | approved | rejected).
func ParseStatus(status string) (State, error) {
	s := State(core.CleanString(status, true /* lower */))
	if !s.IsSubmitted() {
		return "", fmt.Errorf("invalid status %q", status)
	}
	return s, nil
}

type (
	PersonalDetails struct {
		FirstName   string `json:"firstName" validate:"required,max=100"`
		LastName    string `json:"lastName" validate:"required,max=100"`
		DateOfBirth string `json:"dateOfBirth" validate:"required,isodate,pastdate"`
		Gender      string `json:"gender" validate:"required,oneof=male female other"`
		Phone       string `json:"phone" validate:"required,phone10"`
		Email       string `json:"email" validate:"omitempty,email"`
		Address     string `json:"address" validate:"required,max=500"`
		Nationality string `json:"nationality" validate:"omitempty,max=100"`
		BloodGroup  string `json:"bloodGroup" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	}

	GuardianDetails struct {
		Name         string `json:"name" validate:"required,max=200"`
		Relationship string `json:"relationship" validate:"required,max=50"`
		Phone        string `json:"phone" validate:"required,phone10"`
		Email        string `json:"email" validate:"omitempty,email"`
		Occupation   string `json:"occupation" validate:"omitempty,max=100"`
	}

	AcademicDetails struct {
		PreviousSchool   string  `json:"previousSchool" validate:"required,max=200"`
		PreviousClass    string  `json:"previousClass" validate:"omitempty,max=50"`
		ApplyingForClass string  `json:"applyingForClass" validate:"required,max=50"`
		Board            string  `json:"board" validate:"omitempty,max=100"`
		MarksObtained    float64 `json:"marksObtained" validate:"min=0"`
		TotalMarks       float64 `json:"totalMarks" validate:"min=0"`
		Percentage       float64 `json:"percentage" validate:"min=0,max=100"`
	}

	// Details is the application form filled in by the applicant at submission.
	Details struct {
		Personal PersonalDetails `json:"personalDetails"`
		Guardian GuardianDetails `json:"guardianDetails"`
		Academic AcademicDetails `json:"academicDetails"`
	}
)

// Clean trims every text field and lowers emails.
func (d *Details) Clean() {
	p := &d.Personal
	p.FirstName = core.CleanString(p.FirstName)
	p.LastName = core.CleanString(p.LastName)
	p.DateOfBirth = core.CleanString(p.DateOfBirth)
	p.Gender = core.CleanString(p.Gender, true /* lower */)
	p.Phone = core.CleanString(p.Phone)
	p.Email = core.CleanString(p.Email, true /* lower */)
	p.Address = core.CleanString(p.Address)
	p.Nationality = core.CleanString(p.Nationality)
	p.BloodGroup = strings.ToUpper(core.CleanString(p.BloodGroup))

	g := &d.Guardian
	g.Name = core.CleanString(g.Name)
	g.Relationship = core.CleanString(g.Relationship)
	g.Phone = core.CleanString(g.Phone)
	g.Email = core.CleanString(g.Email, true /* lower */)
	g.Occupation = core.CleanString(g.Occupation)

	a := &d.Academic
	a.PreviousSchool = core.CleanString(a.PreviousSchool)
	a.PreviousClass = core.CleanString(a.PreviousClass)
	a.ApplyingForClass = core.CleanString(a.ApplyingForClass)
	a.Board = core.CleanString(a.Board)
}

// Application is the admission record of an applicant account, one per account.
type Application struct {
	AccountID       string
	Name            string
	Email           string
	State           State
	Details         *Details // nil until submitted
	AdmissionNumber string   // set on approval only
	RejectionReason string   // set on rejection only
	AppliedAt       time.Time
	DecidedAt       time.Time
	DecidedBy       string // reviewer account ID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (app Application) IsSubmitted() bool { return app.State.IsSubmitted() }

// DashboardAccess reports whether the applicant may use the student dashboard.
func (app Application) DashboardAccess() bool { return app.State == StateApproved }

// Status is the admission status exposed to API clients; empty until submitted.
func (app Application) Status() string {
	if !app.IsSubmitted() {
		return ""
	}
	return string(app.State)
}

type applicationJSON struct {
	ID                   string           `json:"id"`
	Name                 string           `json:"name"`
	Email                string           `json:"email"`
	State                State            `json:"state"`
	ApplicationSubmitted bool             `json:"applicationSubmitted"`
	AdmissionStatus      *string          `json:"admissionStatus"`
	PersonalDetails      *PersonalDetails `json:"personalDetails"`
	GuardianDetails      *GuardianDetails `json:"guardianDetails"`
	AcademicDetails      *AcademicDetails `json:"academicDetails"`
	AdmissionNumber      *string          `json:"admissionNumber"`
	RejectionReason      *string          `json:"rejectionReason"`
	AppliedDate          *time.Time       `json:"appliedDate"`
	DecidedDate          *time.Time       `json:"decidedDate"`
	CreatedAt            time.Time        `json:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt"`
}

// MarshalJSON renders the single State as the applicationSubmitted/admissionStatus pair clients expect.
func (app Application) MarshalJSON() ([]byte, error) {
	strPtr := func(s string) *string {
		if s == "" {
			return nil
		}
		return &s
	}
	timePtr := func(t time.Time) *time.Time {
		if t.IsZero() {
			return nil
		}
		return &t
	}

	out := applicationJSON{
		ID:                   app.AccountID,
		Name:                 app.Name,
		Email:                app.Email,
		State:                app.State,
		ApplicationSubmitted: app.IsSubmitted(),
		AdmissionStatus:      strPtr(app.Status()),
		AdmissionNumber:      strPtr(app.AdmissionNumber),
		RejectionReason:      strPtr(app.RejectionReason),
		AppliedDate:          timePtr(app.AppliedAt),
		DecidedDate:          timePtr(app.DecidedAt),
		CreatedAt:            app.CreatedAt,
		UpdatedAt:            app.UpdatedAt,
	}
	if d := app.Details; d != nil {
		out.PersonalDetails = &d.Personal
		out.GuardianDetails = &d.Guardian
		out.AcademicDetails = &d.Academic
	}
	return json.Marshal(out)
}

// Change is the set of fields written by a state transition.
type Change struct {
	To              State
	Details         *Details
	AdmissionNumber string
	RejectionReason string
	AppliedAt       time.Time
	DecidedAt       time.Time
	DecidedBy       string
	UpdatedAt       time.Time
}

// Apply returns a copy of `app` with the Change applied; zero values are left untouched.
func (chg Change) Apply(app Application) Application {
	app.State = chg.To
	if chg.Details != nil {
		d := *chg.Details
		app.Details = &d
	}
	if chg.AdmissionNumber != "" {
		app.AdmissionNumber = chg.AdmissionNumber
	}
	if chg.RejectionReason != "" {
		app.RejectionReason = chg.RejectionReason
	}
	if !chg.AppliedAt.IsZero() {
		app.AppliedAt = chg.AppliedAt
	}
	if !chg.DecidedAt.IsZero() {
		app.DecidedAt = chg.DecidedAt
	}
	if chg.DecidedBy != "" {
		app.DecidedBy = chg.DecidedBy
	}
	if !chg.UpdatedAt.IsZero() {
		app.UpdatedAt = chg.UpdatedAt
	}
	return app
}

// GetFilter selects a single Application; the first non-empty field wins.
type GetFilter struct {
	AccountID       string
	AdmissionNumber string
}

// ListFilter is the filter accepted from API clients.
type ListFilter struct {
	Status string `query:"status"`
	Search string `query:"search"`
}

// QueryFilter applies AND operation on its fields.
// Search does a case-insensitive match on one of Name, Email or AdmissionNumber.
type QueryFilter struct {
	States []State
	Search string
}

type Stats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// orderingFields maps the orderable API fields to storage columns.
var orderingFields = map[string]string{
	"appliedDate":     "applied_at",
	"decidedDate":     "decided_at",
	"name":            "name",
	"email":           "email",
	"admissionNumber": "admission_number",
}

// DefaultOrdering lists the most recent applications first.
var DefaultOrdering = []core.DBOrdering{{Field: "applied_at"}}

// CleanOrdering maps API field names to storage columns and drops unknown fields.
func CleanOrdering(ordering []core.DBOrdering) []core.DBOrdering {
	cleaned := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if col, ok := orderingFields[ord.Field]; ok {
			cleaned = append(cleaned, core.DBOrdering{Field: col, Ascending: ord.Ascending})
		}
	}
	if len(cleaned) == 0 {
		return DefaultOrdering
	}
	return cleaned
}
