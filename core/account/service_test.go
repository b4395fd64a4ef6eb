package account_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/account"
	dummydb "github.com/trezcool/admissions/storage/database/dummy"
	"github.com/trezcool/admissions/tests"
)

const goodPwd = "Rhino-Kite-42"

func setup(t *testing.T) (account.Repository, *account.Service) {
	account.LoadCommonPasswords(nil)
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewAccountRepository(db)
	return repo, account.NewService(repo, testutil.NewValidator())
}

func newAccount(name, email, pwd string, confirm ...string) account.NewAccount {
	na := account.NewAccount{Name: name, Email: email, Password: pwd, PasswordConfirm: pwd}
	if len(confirm) > 0 {
		na.PasswordConfirm = confirm[0]
	}
	return na
}

func TestService_Register(t *testing.T) {
	repo, svc := setup(t)
	ctx := context.Background()
	testutil.CreateAccount(t, repo, "Taken", "taken@test.cd", "", account.RoleTeacher, true)

	tests := []struct {
		name       string
		na         account.NewAccount
		wantFields map[string]string
	}{
		{
			name: "empty",
			na:   account.NewAccount{},
			wantFields: map[string]string{
				"name":            "this field is required",
				"email":           "this field is required",
				"password":        "this field is required",
				"passwordConfirm": "this field is required",
			},
		},
		{
			name:       "invalid email",
			na:         newAccount("Grace", "grace@", goodPwd),
			wantFields: map[string]string{"email": "email must be a valid email address"},
		},
		{
			name:       "passwords mismatch",
			na:         newAccount("Grace", "grace@test.cd", goodPwd, "Rhino-Kite-43"),
			wantFields: map[string]string{"passwordConfirm": "passwordConfirm must be equal to Password"},
		},
		{
			name:       "email taken (case insensitive)",
			na:         newAccount("Grace", " TAKEN@test.cd ", goodPwd),
			wantFields: map[string]string{"email": "an account with this email already exists"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.na)
			var vErr *core.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantFields, vErr.FieldMap())
		})
	}

	t.Run("registered", func(t *testing.T) {
		acc, err := svc.Register(ctx, newAccount(" Grace Ilunga ", " Grace@Test.CD", goodPwd))
		require.NoError(t, err)
		assert.NotEmpty(t, acc.ID)
		assert.Equal(t, "Grace Ilunga", acc.Name)
		assert.Equal(t, "grace@test.cd", acc.Email)
		assert.Equal(t, account.RoleApplicant, acc.Role)
		assert.True(t, acc.IsActive)
		assert.NoError(t, acc.CheckPassword(goodPwd))

		stored, err := svc.GetByEmail(ctx, "GRACE@test.cd")
		require.NoError(t, err)
		assert.Equal(t, acc.ID, stored.ID)
	})
}

func TestService_PasswordPolicy(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		pwd     string
		wantErr string
	}{
		{name: "too short", pwd: "Ab1-", wantErr: "password must contain at least 8 characters"},
		{name: "whitespace", pwd: "Rhino Kite 42", wantErr: "password must not contain whitespace"},
		{name: "all numeric", pwd: "4815162342", wantErr: "password cannot be entirely numeric"},
		{name: "no special char", pwd: "RhinoKite42", wantErr: "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"},
		{name: "no uppercase", pwd: "rhino-kite-42", wantErr: "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"},
		{name: "similar to name", pwd: "Mwamba-Kasongo1", wantErr: "password cannot be similar to account attributes"},
		{name: "common", pwd: "P@ssw0rd", wantErr: "password is too common"},
		{name: "ok", pwd: goodPwd},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email := "user" + string(rune('a'+i)) + "@test.cd"
			_, err := svc.Register(ctx, newAccount("Mwamba Kasongo", email, tt.pwd))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *core.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, map[string]string{"password": tt.wantErr}, vErr.FieldMap())
		})
	}
}

func TestService_SetPasswordAndRole(t *testing.T) {
	repo, svc := setup(t)
	ctx := context.Background()
	acc := testutil.CreateAccount(t, repo, "Teacher", "teacher@test.cd", "Zebra-Moon-77", account.RoleTeacher, false)

	_, err := svc.SetPassword(ctx, acc, "short")
	assert.True(t, core.IsValidationError(err))

	acc, err = svc.SetPassword(ctx, acc, goodPwd)
	require.NoError(t, err)
	stored, err := svc.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.NoError(t, stored.CheckPassword(goodPwd))

	_, err = svc.SetRole(ctx, stored, "janitor")
	assert.Equal(t, account.ErrInvalidRole, err)

	stored, err = svc.SetRole(ctx, stored, account.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, account.RoleAdmin, stored.Role)
	assert.True(t, stored.IsActive)
	assert.True(t, stored.Principal().IsAdmin())

	_, err = svc.Create(ctx, newAccount("X", "x@test.cd", goodPwd), "janitor")
	assert.Equal(t, account.ErrInvalidRole, err)

	require.NoError(t, svc.Delete(ctx, stored.ID))
	_, err = svc.GetByID(ctx, stored.ID)
	assert.Equal(t, account.ErrNotFound, errors.Cause(err))
}

func TestPrincipal(t *testing.T) {
	tests := []struct {
		p         account.Principal
		owns      string
		wantAdmin bool
		wantOwns  bool
	}{
		{p: account.Principal{AccountID: "a", Role: account.RoleSuperAdmin}, owns: "b", wantAdmin: true},
		{p: account.Principal{AccountID: "a", Role: account.RoleAdmin}, owns: "a", wantAdmin: true, wantOwns: true},
		{p: account.Principal{AccountID: "a", Role: account.RoleTeacher}, owns: "a", wantOwns: true},
		{p: account.Principal{AccountID: "a", Role: account.RoleApplicant}, owns: "b"},
		{p: account.Principal{Role: account.RoleApplicant}, owns: ""},
	}
	for _, tt := range tests {
		t.Run(tt.p.Role+"/"+tt.owns, func(t *testing.T) {
			assert.Equal(t, tt.wantAdmin, tt.p.IsAdmin())
			assert.Equal(t, tt.wantOwns, tt.p.Owns(tt.owns))
		})
	}
}
