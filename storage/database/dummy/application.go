package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/admission"
)

type applicationRepository struct {
	db *applicationTable
}

var (
	_ admission.Repository = (*applicationRepository)(nil) // interface compliance check
	_ admission.Allocator  = (*applicationRepository)(nil)
)

func NewApplicationRepository(db *DB) *applicationRepository {
	return &applicationRepository{db: db.application}
}

// clone copies `app` so that callers never share the stored Details.
func clone(app *admission.Application) admission.Application {
	cp := *app
	if app.Details != nil {
		d := *app.Details
		cp.Details = &d
	}
	return cp
}

func (repo *applicationRepository) CreateApplication(_ context.Context, app admission.Application) (admission.Application, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored := clone(&app)
	repo.db.table[app.AccountID] = &stored
	return clone(&stored), nil
}

func (repo *applicationRepository) GetApplication(_ context.Context, filter admission.GetFilter) (admission.Application, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	switch {
	case filter.AccountID != "":
		if app, ok := repo.db.table[filter.AccountID]; ok {
			return clone(app), nil
		}
	case filter.AdmissionNumber != "":
		for _, app := range repo.db.table {
			if app.AdmissionNumber == filter.AdmissionNumber {
				return clone(app), nil
			}
		}
	}
	return admission.Application{}, admission.ErrNotFound
}

func (repo *applicationRepository) QueryApplications(
	_ context.Context,
	filter admission.QueryFilter,
	ordering []core.DBOrdering,
) ([]admission.Application, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	search := strings.ToLower(filter.Search)
	apps := make([]admission.Application, 0, len(repo.db.table))
	for _, app := range repo.db.table {
		if len(filter.States) > 0 && !hasState(filter.States, app.State) {
			continue
		}
		// applications with search keyword matching any Name, Email or AdmissionNumber ?
		if search != "" &&
			!strings.Contains(strings.ToLower(app.Name), search) &&
			!strings.Contains(strings.ToLower(app.Email), search) &&
			!strings.Contains(strings.ToLower(app.AdmissionNumber), search) {
			continue
		}
		apps = append(apps, clone(app))
	}

	sortApplications(apps, ordering)
	return apps, nil
}

func (repo *applicationRepository) CountApplications(_ context.Context) (map[admission.State]int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	counts := make(map[admission.State]int, 4)
	for _, app := range repo.db.table {
		counts[app.State]++
	}
	return counts, nil
}

func (repo *applicationRepository) UpdateState(
	_ context.Context,
	accountID string,
	from admission.State,
	chg admission.Change,
) (admission.Application, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	app, ok := repo.db.table[accountID]
	if !ok {
		return admission.Application{}, admission.ErrNotFound
	}
	if app.State != from {
		return admission.Application{}, admission.ErrStateConflict
	}
	if chg.AdmissionNumber != "" {
		for id, other := range repo.db.table {
			if id != accountID && other.AdmissionNumber == chg.AdmissionNumber {
				return admission.Application{}, admission.ErrAdmissionNumberTaken
			}
		}
	}

	updated := chg.Apply(clone(app))
	repo.db.table[accountID] = &updated
	return clone(&updated), nil
}

func (repo *applicationRepository) DeleteApplication(_ context.Context, accountID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.table, accountID)
	return nil
}

func (repo *applicationRepository) NextAdmissionSeq(_ context.Context) (int64, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.seq++
	return repo.db.seq, nil
}

func hasState(states []admission.State, s admission.State) bool {
	for _, state := range states {
		if state == s {
			return true
		}
	}
	return false
}

// sortApplications sorts `apps` by the given storage columns; ties keep a stable order on account ID.
func sortApplications(apps []admission.Application, ordering []core.DBOrdering) {
	cmpTime := func(a, b time.Time) int {
		switch {
		case a.Before(b):
			return -1
		case a.After(b):
			return 1
		}
		return 0
	}

	sort.SliceStable(apps, func(i, j int) bool {
		a, b := apps[i], apps[j]
		for _, ord := range ordering {
			var c int
			switch ord.Field {
			case "applied_at":
				c = cmpTime(a.AppliedAt, b.AppliedAt)
			case "decided_at":
				c = cmpTime(a.DecidedAt, b.DecidedAt)
			case "name":
				c = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
			case "email":
				c = strings.Compare(a.Email, b.Email)
			case "admission_number":
				c = strings.Compare(a.AdmissionNumber, b.AdmissionNumber)
			}
			if c != 0 {
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
		}
		return a.AccountID < b.AccountID
	})
}
