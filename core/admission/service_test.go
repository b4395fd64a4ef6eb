package admission_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/account"
	"github.com/trezcool/admissions/core/admission"
	emailsvc "github.com/trezcool/admissions/services/email"
	dummydb "github.com/trezcool/admissions/storage/database/dummy"
	"github.com/trezcool/admissions/tests"
)

type fixture struct {
	db      *dummydb.DB
	accRepo account.Repository
	appRepo admission.Repository
	mailSvc *emailsvc.ConsoleServiceMock
	logger  *testutil.Logger
	svc     *admission.Service
	admin   account.Account
}

func setup(t *testing.T) *fixture {
	conf := core.NewTestConfig()
	db, err := dummydb.Open()
	require.NoError(t, err)

	logger := testutil.NewLogger()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	appRepo := dummydb.NewApplicationRepository(db)
	f := &fixture{
		db:      db,
		accRepo: dummydb.NewAccountRepository(db),
		appRepo: appRepo,
		mailSvc: mailSvc,
		logger:  logger,
		svc:     admission.NewService(appRepo, appRepo, mailSvc, logger, testutil.NewValidator(), conf),
	}
	f.admin = testutil.CreateAccount(t, f.accRepo, "Admin", "admin@test.cd", "", account.RoleAdmin, true)
	return f
}

func (f *fixture) applicant(t *testing.T, name string) account.Account {
	acc, _ := testutil.CreateApplicant(t, f.accRepo, f.svc, name, strings.ToLower(name)+"@test.cd", "")
	return acc
}

func sentTemplates(mailSvc *emailsvc.ConsoleServiceMock) []string {
	var names []string
	for _, msg := range mailSvc.SentMessages() {
		names = append(names, msg.TemplateName)
	}
	return names
}

func TestService_Lifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	acc := f.applicant(t, "Grace")
	app, err := f.svc.Get(ctx, acc.Principal(), acc.ID)
	require.NoError(t, err)
	assert.Equal(t, admission.StateUnsubmitted, app.State)
	assert.False(t, app.IsSubmitted())
	assert.Empty(t, app.Status())
	assert.Nil(t, app.Details)

	// submit
	app, err = f.svc.Submit(ctx, acc.Principal(), acc.ID, testutil.ValidDetails("Grace"))
	require.NoError(t, err)
	assert.Equal(t, admission.StatePending, app.State)
	assert.Equal(t, "pending", app.Status())
	assert.False(t, app.AppliedAt.IsZero())
	require.NotNil(t, app.Details)
	assert.Equal(t, "0812345678", app.Details.Personal.Phone)
	assert.False(t, app.DashboardAccess())

	// approve
	app, err = f.svc.Approve(ctx, f.admin.Principal(), acc.ID)
	require.NoError(t, err)
	assert.Equal(t, admission.StateApproved, app.State)
	assert.Equal(t, "ADM-00001", app.AdmissionNumber)
	assert.Equal(t, f.admin.ID, app.DecidedBy)
	assert.False(t, app.DecidedAt.IsZero())
	assert.True(t, app.DashboardAccess())

	// the admission number now identifies the applicant
	byNumber, err := f.svc.GetByAdmissionNumber(ctx, " ADM-00001 ")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, byNumber.AccountID)

	role, number, err := f.svc.EffectiveRole(ctx, acc)
	require.NoError(t, err)
	assert.Equal(t, account.RoleStudent, role)
	assert.Equal(t, "ADM-00001", number)

	assert.Equal(t, []string{"application_received", "application_approved"}, sentTemplates(f.mailSvc))
	approvedMsg := f.mailSvc.SentMessages()[1]
	assert.Equal(t, acc.Email, approvedMsg.To[0].Address)
	assert.Contains(t, approvedMsg.TextContent, "ADM-00001")
}

func TestService_Submit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	acc := f.applicant(t, "Amani")
	other := f.applicant(t, "Baraka")

	invalid := testutil.ValidDetails("Amani")
	invalid.Personal.Phone = "12345"
	invalid.Personal.DateOfBirth = "2008-02-30"
	invalid.Guardian.Email = "not-an-email"
	invalid.Academic.MarksObtained = 600
	invalid.Academic.ApplyingForClass = "   "

	tests := []struct {
		name       string
		p          account.Principal
		accountID  string
		details    admission.Details
		wantErr    error
		wantFields map[string]string
	}{
		{name: "not the owner", p: other.Principal(), accountID: acc.ID, details: testutil.ValidDetails("Amani"), wantErr: admission.ErrUnauthorized},
		{name: "admin cannot submit for applicant", p: f.admin.Principal(), accountID: acc.ID, details: testutil.ValidDetails("Amani"), wantErr: admission.ErrUnauthorized},
		{
			name: "not found", p: account.Principal{AccountID: "ghost", Role: account.RoleApplicant}, accountID: "ghost",
			details: testutil.ValidDetails("Ghost"), wantErr: admission.ErrNotFound,
		},
		{
			name: "invalid details", p: acc.Principal(), accountID: acc.ID, details: invalid,
			wantFields: map[string]string{
				"personalDetails.phone":            "must be a valid 10-digit phone number",
				"personalDetails.dateOfBirth":      "must be a valid date (YYYY-MM-DD)",
				"guardianDetails.email":            "email must be a valid email address",
				"academicDetails.marksObtained":    "marks obtained cannot exceed total marks",
				"academicDetails.applyingForClass": "this field is required",
			},
		},
		{name: "submit", p: acc.Principal(), accountID: acc.ID, details: testutil.ValidDetails("Amani")},
		{name: "double submit", p: acc.Principal(), accountID: acc.ID, details: testutil.ValidDetails("Amani"), wantErr: admission.ErrAlreadySubmitted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, err := f.svc.Submit(ctx, tt.p, tt.accountID, tt.details)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantFields != nil:
				var vErr *core.ValidationError
				require.ErrorAs(t, err, &vErr)
				assert.Equal(t, tt.wantFields, vErr.FieldMap())

				stored, err := f.svc.Get(ctx, f.admin.Principal(), tt.accountID)
				require.NoError(t, err)
				assert.Equal(t, admission.StateUnsubmitted, stored.State, "state unchanged")
			default:
				require.NoError(t, err)
				assert.Equal(t, admission.StatePending, app.State)
			}
		})
	}

	// only the successful submission was notified
	assert.Equal(t, []string{"application_received"}, sentTemplates(f.mailSvc))
}

func TestService_Decisions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	unsubmitted := f.applicant(t, "Unsubmitted")
	approved := f.applicant(t, "Approved")
	rejected := f.applicant(t, "Rejected")
	pending := f.applicant(t, "Pending")
	for _, acc := range []account.Account{approved, rejected, pending} {
		testutil.SubmitApplication(t, f.svc, acc)
	}
	teacher := testutil.CreateAccount(t, f.accRepo, "Teacher", "teacher@test.cd", "", account.RoleTeacher, true)
	superadmin := testutil.CreateAccount(t, f.accRepo, "Super", "super@test.cd", "", account.RoleSuperAdmin, true)

	reason := "  Incomplete documents.\nPlease re-apply next year. "

	type decision int
	const (
		approve decision = iota
		reject
	)
	tests := []struct {
		name      string
		decision  decision
		p         account.Principal
		accountID string
		reason    string
		wantErr   error
		wantField string
		wantState admission.State
	}{
		{name: "approve: applicant", decision: approve, p: pending.Principal(), accountID: pending.ID, wantErr: admission.ErrUnauthorized},
		{name: "approve: teacher", decision: approve, p: teacher.Principal(), accountID: pending.ID, wantErr: admission.ErrUnauthorized},
		{name: "approve: not found", decision: approve, p: f.admin.Principal(), accountID: "ghost", wantErr: admission.ErrNotFound},
		{name: "approve: unsubmitted", decision: approve, p: f.admin.Principal(), accountID: unsubmitted.ID, wantErr: admission.ErrInvalidTransition},
		{name: "approve", decision: approve, p: f.admin.Principal(), accountID: approved.ID, wantState: admission.StateApproved},
		{name: "approve: twice", decision: approve, p: f.admin.Principal(), accountID: approved.ID, wantErr: admission.ErrInvalidTransition},
		{name: "reject: approved", decision: reject, p: f.admin.Principal(), accountID: approved.ID, reason: "late", wantErr: admission.ErrInvalidTransition},

		{name: "reject: applicant", decision: reject, p: rejected.Principal(), accountID: rejected.ID, reason: "lol", wantErr: admission.ErrUnauthorized},
		{name: "reject: empty reason", decision: reject, p: f.admin.Principal(), accountID: rejected.ID, wantField: "this field is required"},
		{name: "reject: blank reason", decision: reject, p: f.admin.Principal(), accountID: rejected.ID, reason: " \t\n ", wantField: "this field cannot be blank"},
		{name: "reject: unsubmitted", decision: reject, p: f.admin.Principal(), accountID: unsubmitted.ID, reason: "late", wantErr: admission.ErrInvalidTransition},
		{name: "reject (superadmin)", decision: reject, p: superadmin.Principal(), accountID: rejected.ID, reason: reason, wantState: admission.StateRejected},
		{name: "reject: twice", decision: reject, p: f.admin.Principal(), accountID: rejected.ID, reason: "again", wantErr: admission.ErrInvalidTransition},
		{name: "approve: rejected", decision: approve, p: f.admin.Principal(), accountID: rejected.ID, wantErr: admission.ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				app admission.Application
				err error
			)
			if tt.decision == approve {
				app, err = f.svc.Approve(ctx, tt.p, tt.accountID)
			} else {
				app, err = f.svc.Reject(ctx, tt.p, tt.accountID, tt.reason)
			}

			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantField != "":
				var vErr *core.ValidationError
				require.ErrorAs(t, err, &vErr)
				assert.Equal(t, map[string]string{"rejectionReason": tt.wantField}, vErr.FieldMap())

				stored, err := f.svc.Get(ctx, f.admin.Principal(), tt.accountID)
				require.NoError(t, err)
				assert.Equal(t, admission.StatePending, stored.State, "still pending")
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantState, app.State)
			}
		})
	}

	stored, err := f.svc.Get(ctx, f.admin.Principal(), rejected.ID)
	require.NoError(t, err)
	assert.Equal(t, reason, stored.RejectionReason, "reason stored verbatim")
	assert.Empty(t, stored.AdmissionNumber)
	assert.False(t, stored.DashboardAccess())
	assert.Equal(t, superadmin.ID, stored.DecidedBy)

	role, number, err := f.svc.EffectiveRole(ctx, rejected)
	require.NoError(t, err)
	assert.Equal(t, account.RoleApplicant, role)
	assert.Empty(t, number)

	// untouched by the failed decisions
	stored, err = f.svc.Get(ctx, f.admin.Principal(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, admission.StatePending, stored.State)
}

func TestService_ConcurrentDecisions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	acc := f.applicant(t, "Contested")
	testutil.SubmitApplication(t, f.svc, acc)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes []admission.Application
		failures  []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var (
				app admission.Application
				err error
			)
			if i%2 == 0 {
				app, err = f.svc.Approve(ctx, f.admin.Principal(), acc.ID)
			} else {
				app, err = f.svc.Reject(ctx, f.admin.Principal(), acc.ID, fmt.Sprintf("reviewer %d", i))
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			successes = append(successes, app)
		}(i)
	}
	wg.Wait()

	require.Len(t, successes, 1, "exactly one decision wins")
	for _, err := range failures {
		assert.Equal(t, admission.ErrInvalidTransition, err)
	}

	stored, err := f.svc.Get(ctx, f.admin.Principal(), acc.ID)
	require.NoError(t, err)
	assert.Equal(t, successes[0].State, stored.State)
	if stored.State == admission.StateApproved {
		assert.NotEmpty(t, stored.AdmissionNumber)
		assert.Empty(t, stored.RejectionReason)
	} else {
		assert.Empty(t, stored.AdmissionNumber)
		assert.NotEmpty(t, stored.RejectionReason)
	}
}

func TestService_UniqueAdmissionNumbers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	const applicants = 25
	accs := make([]account.Account, 0, applicants)
	for i := 0; i < applicants; i++ {
		acc := f.applicant(t, fmt.Sprintf("Applicant%02d", i))
		testutil.SubmitApplication(t, f.svc, acc)
		accs = append(accs, acc)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = make(map[string]string, applicants)
	)
	for _, acc := range accs {
		wg.Add(1)
		go func(acc account.Account) {
			defer wg.Done()
			app, err := f.svc.Approve(ctx, f.admin.Principal(), acc.ID)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if prev, ok := numbers[app.AdmissionNumber]; ok {
				t.Errorf("admission number %s assigned to both %s and %s", app.AdmissionNumber, prev, acc.ID)
			}
			numbers[app.AdmissionNumber] = acc.ID
		}(acc)
	}
	wg.Wait()
	assert.Len(t, numbers, applicants)
}

// stuckAllocator hands out the same sequences before moving on, like a counter restored from a backup.
type stuckAllocator struct {
	mu   sync.Mutex
	seqs []int64
}

func (a *stuckAllocator) NextAdmissionSeq(context.Context) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	seq := a.seqs[0]
	if len(a.seqs) > 1 {
		a.seqs = a.seqs[1:]
	}
	return seq, nil
}

func TestService_Approve_NumberTaken(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	conf := core.NewTestConfig()

	first := f.applicant(t, "First")
	second := f.applicant(t, "Second")
	third := f.applicant(t, "Third")
	for _, acc := range []account.Account{first, second, third} {
		testutil.SubmitApplication(t, f.svc, acc)
	}
	app, err := f.svc.Approve(ctx, f.admin.Principal(), first.ID)
	require.NoError(t, err)
	require.Equal(t, "ADM-00001", app.AdmissionNumber)

	t.Run("retried", func(t *testing.T) {
		alloc := &stuckAllocator{seqs: []int64{1, 1, 2}}
		svc := admission.NewService(f.appRepo, alloc, f.mailSvc, f.logger, testutil.NewValidator(), conf)

		app, err := svc.Approve(ctx, f.admin.Principal(), second.ID)
		require.NoError(t, err)
		assert.Equal(t, "ADM-00002", app.AdmissionNumber)
		assert.Len(t, f.logger.Entries("WARN"), 2)
	})

	t.Run("gives up", func(t *testing.T) {
		alloc := &stuckAllocator{seqs: []int64{1}}
		svc := admission.NewService(f.appRepo, alloc, f.mailSvc, f.logger, testutil.NewValidator(), conf)

		_, err := svc.Approve(ctx, f.admin.Principal(), third.ID)
		require.Error(t, err)
		assert.Equal(t, admission.ErrAdmissionNumberTaken, errors.Cause(err))

		stored, err := svc.Get(ctx, f.admin.Principal(), third.ID)
		require.NoError(t, err)
		assert.Equal(t, admission.StatePending, stored.State)
	})
}

type panickingMailer struct{}

func (panickingMailer) SendMessages(...*core.EmailMessage) { panic("smtp on fire") }

func TestService_NotificationFailures(t *testing.T) {
	conf := core.NewTestConfig()
	db, err := dummydb.Open()
	require.NoError(t, err)
	accRepo := dummydb.NewAccountRepository(db)
	appRepo := dummydb.NewApplicationRepository(db)
	logger := testutil.NewLogger()
	svc := admission.NewService(appRepo, appRepo, panickingMailer{}, logger, testutil.NewValidator(), conf)
	ctx := context.Background()

	admin := testutil.CreateAccount(t, accRepo, "Admin", "admin@test.cd", "", account.RoleAdmin, true)
	acc, _ := testutil.CreateApplicant(t, accRepo, svc, "Unlucky", "unlucky@test.cd", "")

	app, err := svc.Submit(ctx, acc.Principal(), acc.ID, testutil.ValidDetails("Unlucky"))
	require.NoError(t, err)
	assert.Equal(t, admission.StatePending, app.State)

	app, err = svc.Approve(ctx, admin.Principal(), acc.ID)
	require.NoError(t, err)
	assert.Equal(t, admission.StateApproved, app.State)

	errs := logger.Entries("ERROR")
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Message, "application_received")
	assert.Contains(t, errs[1].Message, "application_approved")

	t.Run("no recipient", func(t *testing.T) {
		mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
		svc := admission.NewService(appRepo, appRepo, mailSvc, logger, testutil.NewValidator(), conf)

		noEmail := testutil.CreateAccount(t, accRepo, "No Email", "", "", account.RoleApplicant, true)
		_, err := svc.Open(ctx, noEmail)
		require.NoError(t, err)

		app, err := svc.Submit(ctx, noEmail.Principal(), noEmail.ID, testutil.ValidDetails("No Email"))
		require.NoError(t, err)
		assert.Equal(t, admission.StatePending, app.State)
		assert.Empty(t, mailSvc.SentMessages())
		assert.Len(t, logger.Entries("WARN"), 1)
	})
}

func TestService_ListAndStats(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	base := time.Now().UTC()
	at := func(d time.Duration) time.Time { return base.Add(d) }

	newApp := func(name string, state admission.State, appliedAt time.Time, number string) admission.Application {
		acc := testutil.CreateAccount(t, f.accRepo, name, strings.ToLower(name)+"@test.cd", "", account.RoleApplicant, true)
		details := testutil.ValidDetails(name)
		app := admission.Application{
			AccountID:       acc.ID,
			Name:            name,
			Email:           acc.Email,
			State:           state,
			AdmissionNumber: number,
			AppliedAt:       appliedAt,
			CreatedAt:       base,
			UpdatedAt:       base,
		}
		if state.IsSubmitted() {
			app.Details = &details
		}
		app, err := f.appRepo.CreateApplication(ctx, app)
		require.NoError(t, err)
		return app
	}

	newApp("Draft", admission.StateUnsubmitted, time.Time{}, "")
	pending1 := newApp("Pending One", admission.StatePending, at(1*time.Hour), "")
	pending2 := newApp("Pending Two", admission.StatePending, at(3*time.Hour), "")
	approved := newApp("Approved", admission.StateApproved, at(2*time.Hour), "ADM-00007")
	rejected := newApp("Rejected", admission.StateRejected, at(4*time.Hour), "")

	ids := func(apps []admission.Application) []string {
		out := make([]string, 0, len(apps))
		for _, app := range apps {
			out = append(out, app.AccountID)
		}
		return out
	}

	tests := []struct {
		name       string
		p          account.Principal
		filter     admission.ListFilter
		ordering   []core.DBOrdering
		wantErr    error
		wantFields map[string]string
		want       []admission.Application
	}{
		{name: "applicant", p: account.Principal{AccountID: pending1.AccountID, Role: account.RoleApplicant}, wantErr: admission.ErrUnauthorized},
		{name: "all submitted, newest first", p: f.admin.Principal(), want: []admission.Application{rejected, pending2, approved, pending1}},
		{name: "status=pending", p: f.admin.Principal(), filter: admission.ListFilter{Status: "pending"}, want: []admission.Application{pending2, pending1}},
		{name: "status=APPROVED", p: f.admin.Principal(), filter: admission.ListFilter{Status: " APPROVED "}, want: []admission.Application{approved}},
		{name: "status=unsubmitted", p: f.admin.Principal(), filter: admission.ListFilter{Status: "unsubmitted"}, wantFields: map[string]string{"status": "status must be one of [pending approved rejected]"}},
		{name: "status=lol", p: f.admin.Principal(), filter: admission.ListFilter{Status: "lol"}, wantFields: map[string]string{"status": "status must be one of [pending approved rejected]"}},
		{name: "search name", p: f.admin.Principal(), filter: admission.ListFilter{Search: "PENDING"}, want: []admission.Application{pending2, pending1}},
		{name: "search admission number", p: f.admin.Principal(), filter: admission.ListFilter{Search: "adm-00007"}, want: []admission.Application{approved}},
		{name: "search (unknown)", p: f.admin.Principal(), filter: admission.ListFilter{Search: "draft"}, want: []admission.Application{}},
		{
			name: "order by appliedDate", p: f.admin.Principal(), ordering: []core.DBOrdering{{Field: "appliedDate", Ascending: true}},
			want: []admission.Application{pending1, approved, pending2, rejected},
		},
		{
			name: "order by unknown field", p: f.admin.Principal(), ordering: []core.DBOrdering{{Field: "lol", Ascending: true}},
			want: []admission.Application{rejected, pending2, approved, pending1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apps, err := f.svc.List(ctx, tt.p, tt.filter, tt.ordering)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantFields != nil:
				var vErr *core.ValidationError
				require.ErrorAs(t, err, &vErr)
				assert.Equal(t, tt.wantFields, vErr.FieldMap())
			default:
				require.NoError(t, err)
				assert.Equal(t, ids(tt.want), ids(apps))
			}
		})
	}

	t.Run("stats", func(t *testing.T) {
		_, err := f.svc.Stats(ctx, account.Principal{AccountID: pending1.AccountID, Role: account.RoleApplicant})
		assert.Equal(t, admission.ErrUnauthorized, err)

		stats, err := f.svc.Stats(ctx, f.admin.Principal())
		require.NoError(t, err)
		assert.Equal(t, admission.Stats{Total: 4, Pending: 2, Approved: 1, Rejected: 1}, stats)
	})
}

func TestService_GetByAdmissionNumber(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	acc := f.applicant(t, "Amani")
	testutil.SubmitApplication(t, f.svc, acc)
	_, err := f.svc.Approve(ctx, f.admin.Principal(), acc.ID)
	require.NoError(t, err)

	// a mixed case prefix, as configured by a school that writes its numbers that way
	conf := core.NewTestConfig()
	conf.Admission = core.AdmissionConfig{NumberPrefix: "Stu/", NumberWidth: 4}
	stuSvc := admission.NewService(f.appRepo, f.appRepo.(admission.Allocator), f.mailSvc, f.logger, testutil.NewValidator(), conf)
	stu := f.applicant(t, "Baraka")
	testutil.SubmitApplication(t, stuSvc, stu)
	app, err := stuSvc.Approve(ctx, f.admin.Principal(), stu.ID)
	require.NoError(t, err)
	require.Equal(t, "Stu/0002", app.AdmissionNumber)

	tests := []struct {
		name      string
		svc       *admission.Service
		number    string
		wantOwner string
	}{
		{name: "exact", svc: f.svc, number: "ADM-00001", wantOwner: acc.ID},
		{name: "lower case and spaces", svc: f.svc, number: " adm-00001 ", wantOwner: acc.ID},
		{name: "unpadded", svc: f.svc, number: "Adm-1", wantOwner: acc.ID},
		{name: "over padded", svc: f.svc, number: "ADM-0000001", wantOwner: acc.ID},
		{name: "unknown", svc: f.svc, number: "ADM-00009"},
		{name: "no sequence", svc: f.svc, number: "ADM-"},
		{name: "sequence only", svc: f.svc, number: "00001"},
		{name: "blank", svc: f.svc, number: "  "},
		{name: "mixed case prefix: exact", svc: stuSvc, number: "Stu/0002", wantOwner: stu.ID},
		{name: "mixed case prefix: upper case", svc: stuSvc, number: "STU/2", wantOwner: stu.ID},
		{name: "mixed case prefix: lower case", svc: stuSvc, number: "stu/0002", wantOwner: stu.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, err := tt.svc.GetByAdmissionNumber(ctx, tt.number)
			if tt.wantOwner == "" {
				assert.Equal(t, admission.ErrNotFound, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOwner, app.AccountID)
		})
	}
}
