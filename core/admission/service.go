package admission

import (
	"context"
	"expvar"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/account"
)

const maxNumberAttempts = 3

var (
	// errors
	ErrNotFound          = errors.New("application not found")
	ErrInvalidTransition = errors.New("application is not awaiting a decision")
	ErrAlreadySubmitted  = errors.New("application has already been submitted")
	ErrUnauthorized      = errors.New("permission denied")

	// storage errors
	ErrStateConflict        = errors.New("application state changed concurrently")
	ErrAdmissionNumberTaken = errors.New("admission number already assigned")

	metrics = expvar.NewMap("admissions")
)

type (
	Repository interface {
		CreateApplication(ctx context.Context, app Application) (Application, error)
		GetApplication(ctx context.Context, filter GetFilter) (Application, error)
		QueryApplications(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Application, error)
		CountApplications(ctx context.Context) (map[State]int, error)
		// UpdateState applies `chg` only if the stored state still is `from`, atomically.
		// It fails with ErrStateConflict if it is not, ErrAdmissionNumberTaken on a duplicate number.
		UpdateState(ctx context.Context, accountID string, from State, chg Change) (Application, error)
		DeleteApplication(ctx context.Context, accountID string) error
	}

	// Allocator hands out admission number sequences; values are never handed out twice.
	Allocator interface {
		NextAdmissionSeq(ctx context.Context) (int64, error)
	}

	Service struct {
		repo         Repository
		alloc        Allocator
		mailSvc      core.EmailService
		logger       core.Logger
		validate     *core.Validator
		numberPrefix string
		numberWidth  int
		nowFunc      func() time.Time
	}
)

func NewService(
	repo Repository,
	alloc Allocator,
	mailSvc core.EmailService,
	logger core.Logger,
	validate *core.Validator,
	conf *core.Config,
) *Service {
	return &Service{
		repo:         repo,
		alloc:        alloc,
		mailSvc:      mailSvc,
		logger:       logger,
		validate:     validate,
		numberPrefix: conf.Admission.NumberPrefix,
		numberWidth:  conf.Admission.NumberWidth,
		nowFunc:      func() time.Time { return time.Now().UTC() },
	}
}

// FormatAdmissionNumber formats a sequence as <prefix><zero padded seq>, eg: ADM-00142
func FormatAdmissionNumber(prefix string, width int, seq int64) string {
	return fmt.Sprintf("%s%0*d", prefix, width, seq)
}

// Open creates the unsubmitted Application of a newly registered account.
func (svc *Service) Open(ctx context.Context, acc account.Account) (Application, error) {
	now := svc.nowFunc()
	app, err := svc.repo.CreateApplication(ctx, Application{
		AccountID: acc.ID,
		Name:      acc.Name,
		Email:     acc.Email,
		State:     StateUnsubmitted,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Application{}, errors.Wrap(err, "creating application")
	}
	return app, nil
}

// Delete removes an Application; only used to undo a failed registration.
func (svc *Service) Delete(ctx context.Context, accountID string) error {
	return svc.repo.DeleteApplication(ctx, accountID)
}

func (svc *Service) get(ctx context.Context, accountID string) (Application, error) {
	app, err := svc.repo.GetApplication(ctx, GetFilter{AccountID: accountID})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Application{}, ErrNotFound
		}
		return Application{}, errors.Wrap(err, "finding application")
	}
	return app, nil
}

// Get returns the Application of `accountID` to its owner or an admin.
func (svc *Service) Get(ctx context.Context, p account.Principal, accountID string) (Application, error) {
	if !(p.IsAdmin() || p.Owns(accountID)) {
		return Application{}, ErrUnauthorized
	}
	return svc.get(ctx, accountID)
}

// normalizeNumber spells `number` the way numbers are allocated: the configured prefix (matched
// case-insensitively) followed by the zero padded sequence, eg: "adm-142" -> "ADM-00142".
func (svc *Service) normalizeNumber(number string) string {
	number = core.CleanString(number)
	n := len(svc.numberPrefix)
	if len(number) <= n || !strings.EqualFold(number[:n], svc.numberPrefix) {
		return number
	}
	seq, err := strconv.ParseInt(number[n:], 10, 64)
	if err != nil || seq <= 0 {
		return svc.numberPrefix + number[n:]
	}
	return FormatAdmissionNumber(svc.numberPrefix, svc.numberWidth, seq)
}

// GetByAdmissionNumber finds the Application an admission number was allocated to.
func (svc *Service) GetByAdmissionNumber(ctx context.Context, number string) (Application, error) {
	number = svc.normalizeNumber(number)
	if number == "" {
		return Application{}, ErrNotFound
	}
	app, err := svc.repo.GetApplication(ctx, GetFilter{AdmissionNumber: number})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Application{}, ErrNotFound
		}
		return Application{}, errors.Wrap(err, "finding application by admission number")
	}
	return app, nil
}

// Submit moves the owner's Application from unsubmitted to pending with the provided details.
func (svc *Service) Submit(ctx context.Context, p account.Principal, accountID string, d Details) (Application, error) {
	if !p.Owns(accountID) {
		return Application{}, ErrUnauthorized
	}

	app, err := svc.get(ctx, accountID)
	if err != nil {
		return Application{}, err
	}
	if app.State != StateUnsubmitted {
		return Application{}, ErrAlreadySubmitted
	}

	d.Clean()
	if err = svc.validate.Check(d); err != nil {
		return Application{}, err
	}

	now := svc.nowFunc()
	app, err = svc.repo.UpdateState(ctx, accountID, StateUnsubmitted, Change{
		To:        StatePending,
		Details:   &d,
		AppliedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		switch errors.Cause(err) {
		case ErrStateConflict:
			return Application{}, ErrAlreadySubmitted
		case ErrNotFound:
			return Application{}, ErrNotFound
		}
		return Application{}, errors.Wrap(err, "submitting application")
	}

	metrics.Add("submitted", 1)
	svc.notify(&core.EmailMessage{
		To:           []mail.Address{{Name: app.Name, Address: app.Email}},
		Subject:      "Application received",
		TemplateName: "application_received",
		TemplateData: newNotificationData(app),
	})
	return app, nil
}

// decidable loads the Application and checks it awaits a decision.
func (svc *Service) decidable(ctx context.Context, p account.Principal, accountID string) (Application, error) {
	if !p.IsAdmin() {
		return Application{}, ErrUnauthorized
	}
	app, err := svc.get(ctx, accountID)
	if err != nil {
		return Application{}, err
	}
	if !app.State.CanTransition(StateApproved) {
		return Application{}, ErrInvalidTransition
	}
	return app, nil
}

// decisionErr maps storage errors of a decision to lifecycle errors.
func decisionErr(err error, msg string) error {
	switch errors.Cause(err) {
	case ErrStateConflict:
		return ErrInvalidTransition
	case ErrNotFound:
		return ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (svc *Service) allocateNumber(ctx context.Context) (string, error) {
	seq, err := svc.alloc.NextAdmissionSeq(ctx)
	if err != nil {
		return "", errors.Wrap(err, "allocating admission number")
	}
	return FormatAdmissionNumber(svc.numberPrefix, svc.numberWidth, seq), nil
}

// Approve moves a pending Application to approved and assigns it a unique admission number.
// Of concurrent decisions on the same Application only one succeeds; the others get ErrInvalidTransition.
func (svc *Service) Approve(ctx context.Context, p account.Principal, accountID string) (Application, error) {
	if _, err := svc.decidable(ctx, p, accountID); err != nil {
		return Application{}, err
	}

	var app Application
	for attempt := 1; ; attempt++ {
		number, err := svc.allocateNumber(ctx)
		if err != nil {
			return Application{}, err
		}

		now := svc.nowFunc()
		app, err = svc.repo.UpdateState(ctx, accountID, StatePending, Change{
			To:              StateApproved,
			AdmissionNumber: number,
			DecidedAt:       now,
			DecidedBy:       p.AccountID,
			UpdatedAt:       now,
		})
		if err == nil {
			break
		}
		if errors.Cause(err) == ErrAdmissionNumberTaken && attempt < maxNumberAttempts {
			svc.logger.Warn(fmt.Sprintf("admission number %s already taken, retrying", number))
			continue
		}
		return Application{}, decisionErr(err, "approving application")
	}

	metrics.Add("approved", 1)
	svc.notify(&core.EmailMessage{
		To:           []mail.Address{{Name: app.Name, Address: app.Email}},
		Subject:      "Application approved",
		TemplateName: "application_approved",
		TemplateData: newNotificationData(app),
	})
	return app, nil
}

// Reject moves a pending Application to rejected, storing `reason` verbatim.
func (svc *Service) Reject(ctx context.Context, p account.Principal, accountID, reason string) (Application, error) {
	if !p.IsAdmin() {
		return Application{}, ErrUnauthorized
	}
	if err := svc.validate.Check(Rejection{Reason: reason}); err != nil {
		return Application{}, err
	}

	if _, err := svc.decidable(ctx, p, accountID); err != nil {
		return Application{}, err
	}

	now := svc.nowFunc()
	app, err := svc.repo.UpdateState(ctx, accountID, StatePending, Change{
		To:              StateRejected,
		RejectionReason: reason,
		DecidedAt:       now,
		DecidedBy:       p.AccountID,
		UpdatedAt:       now,
	})
	if err != nil {
		return Application{}, decisionErr(err, "rejecting application")
	}

	metrics.Add("rejected", 1)
	svc.notify(&core.EmailMessage{
		To:           []mail.Address{{Name: app.Name, Address: app.Email}},
		Subject:      "Application not approved",
		TemplateName: "application_rejected",
		TemplateData: newNotificationData(app),
	})
	return app, nil
}

// List returns the submitted Applications matching `filter`, for admins.
func (svc *Service) List(ctx context.Context, p account.Principal, filter ListFilter, ordering []core.DBOrdering) ([]Application, error) {
	if !p.IsAdmin() {
		return nil, ErrUnauthorized
	}

	qf := QueryFilter{States: SubmittedStates, Search: core.CleanString(filter.Search)}
	if core.CleanString(filter.Status) != "" {
		state, err := ParseStatus(filter.Status)
		if err != nil {
			return nil, core.NewFieldError("status", "status must be one of [pending approved rejected]")
		}
		qf.States = []State{state}
	}

	apps, err := svc.repo.QueryApplications(ctx, qf, CleanOrdering(ordering))
	if err != nil {
		return nil, errors.Wrap(err, "querying applications")
	}
	return apps, nil
}

// Stats counts submitted Applications per status, for admins.
func (svc *Service) Stats(ctx context.Context, p account.Principal) (Stats, error) {
	if !p.IsAdmin() {
		return Stats{}, ErrUnauthorized
	}
	counts, err := svc.repo.CountApplications(ctx)
	if err != nil {
		return Stats{}, errors.Wrap(err, "counting applications")
	}
	stats := Stats{
		Pending:  counts[StatePending],
		Approved: counts[StateApproved],
		Rejected: counts[StateRejected],
	}
	stats.Total = stats.Pending + stats.Approved + stats.Rejected
	return stats, nil
}

// EffectiveRole returns the role `acc` signs in with: approved applicants become students.
// The admission number is returned for students.
func (svc *Service) EffectiveRole(ctx context.Context, acc account.Account) (string, string, error) {
	if acc.Role != account.RoleApplicant {
		return acc.Role, "", nil
	}
	app, err := svc.get(ctx, acc.ID)
	if err != nil {
		if err == ErrNotFound {
			return acc.Role, "", nil
		}
		return "", "", err
	}
	if app.DashboardAccess() {
		return account.RoleStudent, app.AdmissionNumber, nil
	}
	return acc.Role, "", nil
}
