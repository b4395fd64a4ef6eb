package pgrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/admission"
)

const applicationColumns = "account_id, name, email, state, personal, guardian, academic, admission_number, " +
	"rejection_reason, applied_at, decided_at, decided_by, created_at, updated_at"

// orderable columns; anything else is ignored
var applicationOrderings = map[string]bool{
	"applied_at":       true,
	"decided_at":       true,
	"name":             true,
	"email":            true,
	"admission_number": true,
}

type applicationRow struct {
	AccountID       string      `db:"account_id"`
	Name            string      `db:"name"`
	Email           string      `db:"email"`
	State           string      `db:"state"`
	Personal        null.JSON   `db:"personal"`
	Guardian        null.JSON   `db:"guardian"`
	Academic        null.JSON   `db:"academic"`
	AdmissionNumber null.String `db:"admission_number"`
	RejectionReason null.String `db:"rejection_reason"`
	AppliedAt       null.Time   `db:"applied_at"`
	DecidedAt       null.Time   `db:"decided_at"`
	DecidedBy       null.String `db:"decided_by"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

func marshalDetails(d *admission.Details) (personal, guardian, academic null.JSON, err error) {
	if d == nil {
		return
	}
	if personal.JSON, err = json.Marshal(d.Personal); err != nil {
		return
	}
	if guardian.JSON, err = json.Marshal(d.Guardian); err != nil {
		return
	}
	if academic.JSON, err = json.Marshal(d.Academic); err != nil {
		return
	}
	personal.Valid, guardian.Valid, academic.Valid = true, true, true
	return
}

func toApplicationRow(app admission.Application) (applicationRow, error) {
	personal, guardian, academic, err := marshalDetails(app.Details)
	if err != nil {
		return applicationRow{}, errors.Wrap(err, "marshalling details")
	}
	return applicationRow{
		AccountID:       app.AccountID,
		Name:            app.Name,
		Email:           app.Email,
		State:           string(app.State),
		Personal:        personal,
		Guardian:        guardian,
		Academic:        academic,
		AdmissionNumber: null.NewString(app.AdmissionNumber, app.AdmissionNumber != ""),
		RejectionReason: null.NewString(app.RejectionReason, app.RejectionReason != ""),
		AppliedAt:       null.NewTime(app.AppliedAt.UTC(), !app.AppliedAt.IsZero()),
		DecidedAt:       null.NewTime(app.DecidedAt.UTC(), !app.DecidedAt.IsZero()),
		DecidedBy:       null.NewString(app.DecidedBy, app.DecidedBy != ""),
		CreatedAt:       app.CreatedAt.UTC(),
		UpdatedAt:       app.UpdatedAt.UTC(),
	}, nil
}

func (row applicationRow) toApplication() (admission.Application, error) {
	app := admission.Application{
		AccountID:       row.AccountID,
		Name:            row.Name,
		Email:           row.Email,
		State:           admission.State(row.State),
		AdmissionNumber: row.AdmissionNumber.String,
		RejectionReason: row.RejectionReason.String,
		AppliedAt:       row.AppliedAt.Time.UTC(),
		DecidedAt:       row.DecidedAt.Time.UTC(),
		DecidedBy:       row.DecidedBy.String,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
	if !row.AppliedAt.Valid {
		app.AppliedAt = time.Time{}
	}
	if !row.DecidedAt.Valid {
		app.DecidedAt = time.Time{}
	}
	if row.Personal.Valid {
		d := new(admission.Details)
		if err := row.Personal.Unmarshal(&d.Personal); err != nil {
			return admission.Application{}, errors.Wrap(err, "unmarshalling personal details")
		}
		if err := row.Guardian.Unmarshal(&d.Guardian); err != nil {
			return admission.Application{}, errors.Wrap(err, "unmarshalling guardian details")
		}
		if err := row.Academic.Unmarshal(&d.Academic); err != nil {
			return admission.Application{}, errors.Wrap(err, "unmarshalling academic details")
		}
		app.Details = d
	}
	return app, nil
}

type applicationRepository struct {
	db *sqlx.DB
}

var (
	_ admission.Repository = (*applicationRepository)(nil) // interface compliance check
	_ admission.Allocator  = (*applicationRepository)(nil)
)

func NewApplicationRepository(db *sqlx.DB) *applicationRepository {
	return &applicationRepository{db: db}
}

func (repo applicationRepository) CreateApplication(ctx context.Context, app admission.Application) (admission.Application, error) {
	row, err := toApplicationRow(app)
	if err != nil {
		return admission.Application{}, err
	}
	q := "INSERT INTO application (" + applicationColumns + ") VALUES (" +
		":account_id, :name, :email, :state, :personal, :guardian, :academic, :admission_number, " +
		":rejection_reason, :applied_at, :decided_at, :decided_by, :created_at, :updated_at)"
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		return admission.Application{}, errors.Wrap(err, "inserting application")
	}
	return app, nil
}

func (repo applicationRepository) GetApplication(ctx context.Context, filter admission.GetFilter) (admission.Application, error) {
	var (
		row  applicationRow
		cond string
		arg  interface{}
	)
	switch {
	case filter.AccountID != "":
		if _, err := uuid.Parse(filter.AccountID); err != nil {
			return admission.Application{}, admission.ErrNotFound
		}
		cond, arg = "account_id = $1", filter.AccountID
	case filter.AdmissionNumber != "":
		cond, arg = "admission_number = $1", filter.AdmissionNumber
	default:
		return admission.Application{}, admission.ErrNotFound
	}

	q := "SELECT " + applicationColumns + " FROM application WHERE " + cond
	if err := repo.db.GetContext(ctx, &row, q, arg); err != nil {
		if err == sql.ErrNoRows {
			return admission.Application{}, admission.ErrNotFound
		}
		return admission.Application{}, errors.Wrap(err, "finding application")
	}
	return row.toApplication()
}

func (repo applicationRepository) QueryApplications(
	ctx context.Context,
	filter admission.QueryFilter,
	ordering []core.DBOrdering,
) ([]admission.Application, error) {
	var (
		conds []string
		args  []interface{}
	)
	if len(filter.States) > 0 {
		states := make([]string, 0, len(filter.States))
		for _, s := range filter.States {
			states = append(states, string(s))
		}
		args = append(args, pq.Array(states))
		conds = append(conds, fmt.Sprintf("state = ANY($%d)", len(args)))
	}
	// applications with Name, Email or AdmissionNumber matching the search keyword
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d OR admission_number ILIKE $%d)", n, n, n))
	}

	q := "SELECT " + applicationColumns + " FROM application"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	orderList := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if applicationOrderings[ord.Field] {
			orderList = append(orderList, ord.String()+" NULLS LAST")
		}
	}
	orderList = append(orderList, "account_id ASC")
	q += " ORDER BY " + strings.Join(orderList, ", ")

	var rows []applicationRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying applications")
	}
	apps := make([]admission.Application, 0, len(rows))
	for _, row := range rows {
		app, err := row.toApplication()
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, nil
}

func (repo applicationRepository) CountApplications(ctx context.Context) (map[admission.State]int, error) {
	var rows []struct {
		State string `db:"state"`
		Count int    `db:"count"`
	}
	if err := repo.db.SelectContext(ctx, &rows, "SELECT state, COUNT(*) AS count FROM application GROUP BY state"); err != nil {
		return nil, errors.Wrap(err, "counting applications")
	}
	counts := make(map[admission.State]int, len(rows))
	for _, r := range rows {
		counts[admission.State(r.State)] = r.Count
	}
	return counts, nil
}

// UpdateState is a compare-and-swap on the state column: the WHERE clause only matches while the
// application is still in `from`, so concurrent transitions cannot both succeed.
func (repo applicationRepository) UpdateState(
	ctx context.Context,
	accountID string,
	from admission.State,
	chg admission.Change,
) (admission.Application, error) {
	if _, err := uuid.Parse(accountID); err != nil {
		return admission.Application{}, admission.ErrNotFound
	}
	personal, guardian, academic, err := marshalDetails(chg.Details)
	if err != nil {
		return admission.Application{}, errors.Wrap(err, "marshalling details")
	}

	q := "UPDATE application SET " +
		"state = $3, " +
		"personal = COALESCE($4, personal), " +
		"guardian = COALESCE($5, guardian), " +
		"academic = COALESCE($6, academic), " +
		"admission_number = COALESCE($7, admission_number), " +
		"rejection_reason = COALESCE($8, rejection_reason), " +
		"applied_at = COALESCE($9, applied_at), " +
		"decided_at = COALESCE($10, decided_at), " +
		"decided_by = COALESCE($11, decided_by), " +
		"updated_at = $12 " +
		"WHERE account_id = $1 AND state = $2 " +
		"RETURNING " + applicationColumns

	var row applicationRow
	err = repo.db.QueryRowxContext(ctx, q,
		accountID,
		string(from),
		string(chg.To),
		personal,
		guardian,
		academic,
		null.NewString(chg.AdmissionNumber, chg.AdmissionNumber != ""),
		null.NewString(chg.RejectionReason, chg.RejectionReason != ""),
		null.NewTime(chg.AppliedAt.UTC(), !chg.AppliedAt.IsZero()),
		null.NewTime(chg.DecidedAt.UTC(), !chg.DecidedAt.IsZero()),
		null.NewString(chg.DecidedBy, chg.DecidedBy != ""),
		chg.UpdatedAt.UTC(),
	).StructScan(&row)
	if err != nil {
		if err == sql.ErrNoRows {
			return admission.Application{}, repo.missErr(ctx, accountID)
		}
		if uniqueViolationOn(err, "application_admission_number_key") {
			return admission.Application{}, admission.ErrAdmissionNumberTaken
		}
		return admission.Application{}, errors.Wrap(err, "updating application state")
	}
	return row.toApplication()
}

// missErr tells a missing application from one whose state moved on.
func (repo applicationRepository) missErr(ctx context.Context, accountID string) error {
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM application WHERE account_id = $1)", accountID); err != nil {
		return errors.Wrap(err, "checking application")
	}
	if !exists {
		return admission.ErrNotFound
	}
	return admission.ErrStateConflict
}

func (repo applicationRepository) DeleteApplication(ctx context.Context, accountID string) error {
	if _, err := uuid.Parse(accountID); err != nil {
		return nil
	}
	if _, err := repo.db.ExecContext(ctx, "DELETE FROM application WHERE account_id = $1", accountID); err != nil {
		return errors.Wrap(err, "deleting application")
	}
	return nil
}

func (repo applicationRepository) NextAdmissionSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := repo.db.GetContext(ctx, &seq, "SELECT nextval('admission_number_seq')"); err != nil {
		return 0, errors.Wrap(err, "allocating admission sequence")
	}
	return seq, nil
}
