package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/account"
	"github.com/trezcool/admissions/core/admission"
)

// Repositories bundles the repositories of a storage engine, for the shared repository tests.
type Repositories struct {
	Accounts     account.Repository
	Applications admission.Repository
	Allocator    admission.Allocator
	Reset        func(t *testing.T) // empties the storage
}

// now is truncated to the millisecond, the coarsest precision of the engines.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// RunRepositoryTests checks the behaviour every storage engine must share.
func RunRepositoryTests(t *testing.T, repos Repositories) {
	t.Run("accounts", func(t *testing.T) {
		repos.Reset(t)
		testAccountRepository(t, repos.Accounts)
	})
	t.Run("applications", func(t *testing.T) {
		repos.Reset(t)
		testApplicationRepository(t, repos)
	})
	t.Run("state CAS", func(t *testing.T) {
		repos.Reset(t)
		testUpdateState(t, repos)
	})
	t.Run("admission sequence", func(t *testing.T) {
		repos.Reset(t)
		testAdmissionSeq(t, repos.Allocator)
	})
}

func testAccountRepository(t *testing.T, repo account.Repository) {
	ctx := context.Background()
	ts := now()

	acc := account.Account{
		ID:        uuid.New().String(),
		Name:      "Grace",
		Email:     "grace@test.cd",
		Role:      account.RoleApplicant,
		IsActive:  true,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	require.NoError(t, acc.SetPassword("Rhino-Kite-42"))
	_, err := repo.CreateAccount(ctx, acc)
	require.NoError(t, err)

	dup := acc
	dup.ID = uuid.New().String()
	_, err = repo.CreateAccount(ctx, dup)
	assert.Equal(t, account.ErrEmailExists, errors.Cause(err))

	got, err := repo.GetAccount(ctx, account.GetFilter{Email: "grace@test.cd"})
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)
	assert.Equal(t, acc.Name, got.Name)
	assert.True(t, got.LastLogin.IsZero())
	assert.NoError(t, got.CheckPassword("Rhino-Kite-42"))

	for _, filter := range []account.GetFilter{{ID: uuid.New().String()}, {ID: "not-a-uuid"}, {Email: "ghost@test.cd"}, {}} {
		_, err = repo.GetAccount(ctx, filter)
		assert.Equal(t, account.ErrNotFound, errors.Cause(err), "%+v", filter)
	}

	got.Role = account.RoleAdmin
	got.LastLogin = ts
	_, err = repo.UpdateAccount(ctx, got)
	require.NoError(t, err)
	got, err = repo.GetAccount(ctx, account.GetFilter{ID: acc.ID})
	require.NoError(t, err)
	assert.Equal(t, account.RoleAdmin, got.Role)
	assert.True(t, ts.Equal(got.LastLogin))

	ghost := acc
	ghost.ID = uuid.New().String()
	ghost.Email = "ghost@test.cd"
	_, err = repo.UpdateAccount(ctx, ghost)
	assert.Equal(t, account.ErrNotFound, errors.Cause(err))

	require.NoError(t, repo.DeleteAccount(ctx, acc.ID))
	_, err = repo.GetAccount(ctx, account.GetFilter{ID: acc.ID})
	assert.Equal(t, account.ErrNotFound, errors.Cause(err))
}

// newApplication stores an applicant account & its unsubmitted application.
func newApplication(t *testing.T, repos Repositories, name, email string) admission.Application {
	ctx := context.Background()
	ts := now()
	acc, err := repos.Accounts.CreateAccount(ctx, account.Account{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Role:      account.RoleApplicant,
		IsActive:  true,
		CreatedAt: ts,
		UpdatedAt: ts,
	})
	require.NoError(t, err)

	app, err := repos.Applications.CreateApplication(ctx, admission.Application{
		AccountID: acc.ID,
		Name:      acc.Name,
		Email:     acc.Email,
		State:     admission.StateUnsubmitted,
		CreatedAt: ts,
		UpdatedAt: ts,
	})
	require.NoError(t, err)
	return app
}

func submit(t *testing.T, repo admission.Repository, app admission.Application, appliedAt time.Time) admission.Application {
	d := ValidDetails(app.Name)
	app, err := repo.UpdateState(context.Background(), app.AccountID, admission.StateUnsubmitted, admission.Change{
		To:        admission.StatePending,
		Details:   &d,
		AppliedAt: appliedAt,
		UpdatedAt: appliedAt,
	})
	require.NoError(t, err)
	return app
}

func decide(t *testing.T, repo admission.Repository, app admission.Application, to admission.State, number, reason string) admission.Application {
	ts := now()
	app, err := repo.UpdateState(context.Background(), app.AccountID, admission.StatePending, admission.Change{
		To:              to,
		AdmissionNumber: number,
		RejectionReason: reason,
		DecidedAt:       ts,
		DecidedBy:       uuid.New().String(),
		UpdatedAt:       ts,
	})
	require.NoError(t, err)
	return app
}

func ids(apps []admission.Application) []string {
	out := make([]string, 0, len(apps))
	for _, app := range apps {
		out = append(out, app.AccountID)
	}
	return out
}

func testApplicationRepository(t *testing.T, repos Repositories) {
	ctx := context.Background()
	repo := repos.Applications
	base := now()

	draft := newApplication(t, repos, "Draft", "draft@test.cd")
	amani := submit(t, repo, newApplication(t, repos, "Amani", "amani@test.cd"), base.Add(1*time.Hour))
	baraka := submit(t, repo, newApplication(t, repos, "Baraka", "baraka@test.cd"), base.Add(2*time.Hour))
	chausiku := submit(t, repo, newApplication(t, repos, "Chausiku", "chausiku@test.cd"), base.Add(3*time.Hour))
	baraka = decide(t, repo, baraka, admission.StateApproved, "ADM-00042", "")
	chausiku = decide(t, repo, chausiku, admission.StateRejected, "", " late\n")

	t.Run("get", func(t *testing.T) {
		got, err := repo.GetApplication(ctx, admission.GetFilter{AccountID: draft.AccountID})
		require.NoError(t, err)
		assert.Equal(t, admission.StateUnsubmitted, got.State)
		assert.Nil(t, got.Details)
		assert.True(t, got.AppliedAt.IsZero())

		got, err = repo.GetApplication(ctx, admission.GetFilter{AccountID: amani.AccountID})
		require.NoError(t, err)
		assert.Equal(t, admission.StatePending, got.State)
		require.NotNil(t, got.Details)
		assert.Equal(t, ValidDetails("Amani"), *got.Details)
		assert.True(t, base.Add(time.Hour).Equal(got.AppliedAt))

		got, err = repo.GetApplication(ctx, admission.GetFilter{AdmissionNumber: "ADM-00042"})
		require.NoError(t, err)
		assert.Equal(t, baraka.AccountID, got.AccountID)
		assert.Equal(t, admission.StateApproved, got.State)
		assert.False(t, got.DecidedAt.IsZero())

		got, err = repo.GetApplication(ctx, admission.GetFilter{AccountID: chausiku.AccountID})
		require.NoError(t, err)
		assert.Equal(t, " late\n", got.RejectionReason)
		assert.Empty(t, got.AdmissionNumber)

		for _, filter := range []admission.GetFilter{
			{AccountID: uuid.New().String()}, {AccountID: "not-a-uuid"}, {AdmissionNumber: "ADM-99999"}, {},
		} {
			_, err = repo.GetApplication(ctx, filter)
			assert.Equal(t, admission.ErrNotFound, errors.Cause(err), "%+v", filter)
		}
	})

	t.Run("query", func(t *testing.T) {
		tests := []struct {
			name     string
			filter   admission.QueryFilter
			ordering []core.DBOrdering
			want     []admission.Application
		}{
			{name: "all, newest first", ordering: admission.DefaultOrdering, want: []admission.Application{chausiku, baraka, amani, draft}},
			{
				name: "submitted", filter: admission.QueryFilter{States: admission.SubmittedStates},
				ordering: []core.DBOrdering{{Field: "name", Ascending: true}}, want: []admission.Application{amani, baraka, chausiku},
			},
			{
				name: "pending & rejected", filter: admission.QueryFilter{States: []admission.State{admission.StatePending, admission.StateRejected}},
				ordering: []core.DBOrdering{{Field: "applied_at", Ascending: true}}, want: []admission.Application{amani, chausiku},
			},
			{name: "search name", filter: admission.QueryFilter{Search: "AMA"}, want: []admission.Application{amani}},
			{name: "search email", filter: admission.QueryFilter{Search: "chausiku@"}, want: []admission.Application{chausiku}},
			{name: "search admission number", filter: admission.QueryFilter{Search: "adm-0004"}, want: []admission.Application{baraka}},
			{name: "search special chars", filter: admission.QueryFilter{Search: ".*"}, want: []admission.Application{}},
			{
				name: "search & state", filter: admission.QueryFilter{States: []admission.State{admission.StateApproved}, Search: "a"},
				want: []admission.Application{baraka},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				apps, err := repo.QueryApplications(ctx, tt.filter, tt.ordering)
				require.NoError(t, err)
				assert.Equal(t, ids(tt.want), ids(apps))
			})
		}
	})

	t.Run("count", func(t *testing.T) {
		counts, err := repo.CountApplications(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, counts[admission.StateUnsubmitted])
		assert.Equal(t, 1, counts[admission.StatePending])
		assert.Equal(t, 1, counts[admission.StateApproved])
		assert.Equal(t, 1, counts[admission.StateRejected])
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteApplication(ctx, draft.AccountID))
		_, err := repo.GetApplication(ctx, admission.GetFilter{AccountID: draft.AccountID})
		assert.Equal(t, admission.ErrNotFound, errors.Cause(err))
		assert.NoError(t, repo.DeleteApplication(ctx, "not-a-uuid"))
	})
}

func testUpdateState(t *testing.T, repos Repositories) {
	ctx := context.Background()
	repo := repos.Applications

	first := submit(t, repo, newApplication(t, repos, "First", "first@test.cd"), now())
	second := submit(t, repo, newApplication(t, repos, "Second", "second@test.cd"), now())

	// stale `from`
	_, err := repo.UpdateState(ctx, first.AccountID, admission.StateUnsubmitted, admission.Change{To: admission.StatePending, UpdatedAt: now()})
	assert.Equal(t, admission.ErrStateConflict, errors.Cause(err))

	_, err = repo.UpdateState(ctx, uuid.New().String(), admission.StatePending, admission.Change{To: admission.StateApproved, UpdatedAt: now()})
	assert.Equal(t, admission.ErrNotFound, errors.Cause(err))

	first = decide(t, repo, first, admission.StateApproved, "ADM-00001", "")
	assert.Equal(t, admission.StateApproved, first.State)
	assert.Equal(t, "ADM-00001", first.AdmissionNumber)
	require.NotNil(t, first.Details, "details are kept")

	// decided applications cannot move on
	_, err = repo.UpdateState(ctx, first.AccountID, admission.StatePending, admission.Change{
		To: admission.StateRejected, RejectionReason: "late", DecidedAt: now(), UpdatedAt: now(),
	})
	assert.Equal(t, admission.ErrStateConflict, errors.Cause(err))

	// numbers are unique
	_, err = repo.UpdateState(ctx, second.AccountID, admission.StatePending, admission.Change{
		To: admission.StateApproved, AdmissionNumber: "ADM-00001", DecidedAt: now(), UpdatedAt: now(),
	})
	assert.Equal(t, admission.ErrAdmissionNumberTaken, errors.Cause(err))

	got, err := repo.GetApplication(ctx, admission.GetFilter{AccountID: second.AccountID})
	require.NoError(t, err)
	assert.Equal(t, admission.StatePending, got.State)
	assert.Empty(t, got.AdmissionNumber)
}

func testAdmissionSeq(t *testing.T, alloc admission.Allocator) {
	ctx := context.Background()
	prev, err := alloc.NextAdmissionSeq(ctx)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		seq, err := alloc.NextAdmissionSeq(ctx)
		require.NoError(t, err)
		assert.Greater(t, seq, prev)
		prev = seq
	}
}
