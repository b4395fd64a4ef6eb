package mongodb

import (
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/admission"
)

const admissionCounterID = "admission_number"

type applicationDoc struct {
	AccountID       string             `bson:"_id"`
	Name            string             `bson:"name"`
	Email           string             `bson:"email"`
	State           string             `bson:"state"`
	Details         *admission.Details `bson:"details,omitempty"`
	AdmissionNumber *string            `bson:"admission_number,omitempty"`
	RejectionReason *string            `bson:"rejection_reason,omitempty"`
	AppliedAt       *time.Time         `bson:"applied_at,omitempty"`
	DecidedAt       *time.Time         `bson:"decided_at,omitempty"`
	DecidedBy       *string            `bson:"decided_by,omitempty"`
	CreatedAt       time.Time          `bson:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at"`
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}

func toApplicationDoc(app admission.Application) applicationDoc {
	return applicationDoc{
		AccountID:       app.AccountID,
		Name:            app.Name,
		Email:           app.Email,
		State:           string(app.State),
		Details:         app.Details,
		AdmissionNumber: strPtr(app.AdmissionNumber),
		RejectionReason: strPtr(app.RejectionReason),
		AppliedAt:       timePtr(app.AppliedAt),
		DecidedAt:       timePtr(app.DecidedAt),
		DecidedBy:       strPtr(app.DecidedBy),
		CreatedAt:       app.CreatedAt.UTC(),
		UpdatedAt:       app.UpdatedAt.UTC(),
	}
}

func (doc applicationDoc) toApplication() admission.Application {
	app := admission.Application{
		AccountID: doc.AccountID,
		Name:      doc.Name,
		Email:     doc.Email,
		State:     admission.State(doc.State),
		Details:   doc.Details,
		CreatedAt: doc.CreatedAt.UTC(),
		UpdatedAt: doc.UpdatedAt.UTC(),
	}
	if doc.AdmissionNumber != nil {
		app.AdmissionNumber = *doc.AdmissionNumber
	}
	if doc.RejectionReason != nil {
		app.RejectionReason = *doc.RejectionReason
	}
	if doc.AppliedAt != nil {
		app.AppliedAt = doc.AppliedAt.UTC()
	}
	if doc.DecidedAt != nil {
		app.DecidedAt = doc.DecidedAt.UTC()
	}
	if doc.DecidedBy != nil {
		app.DecidedBy = *doc.DecidedBy
	}
	return app
}

type applicationRepository struct {
	coll     *mongo.Collection
	counters *mongo.Collection
}

var (
	_ admission.Repository = (*applicationRepository)(nil) // interface compliance check
	_ admission.Allocator  = (*applicationRepository)(nil)
)

func NewApplicationRepository(db *mongo.Database) *applicationRepository {
	return &applicationRepository{
		coll:     db.Collection(applicationCollection),
		counters: db.Collection(counterCollection),
	}
}

func (repo applicationRepository) CreateApplication(ctx context.Context, app admission.Application) (admission.Application, error) {
	if _, err := repo.coll.InsertOne(ctx, toApplicationDoc(app)); err != nil {
		return admission.Application{}, errors.Wrap(err, "inserting application")
	}
	return app, nil
}

func (repo applicationRepository) GetApplication(ctx context.Context, filter admission.GetFilter) (admission.Application, error) {
	var query bson.M
	switch {
	case filter.AccountID != "":
		query = bson.M{"_id": filter.AccountID}
	case filter.AdmissionNumber != "":
		query = bson.M{"admission_number": filter.AdmissionNumber}
	default:
		return admission.Application{}, admission.ErrNotFound
	}

	var doc applicationDoc
	if err := repo.coll.FindOne(ctx, query).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return admission.Application{}, admission.ErrNotFound
		}
		return admission.Application{}, errors.Wrap(err, "finding application")
	}
	return doc.toApplication(), nil
}

func (repo applicationRepository) QueryApplications(
	ctx context.Context,
	filter admission.QueryFilter,
	ordering []core.DBOrdering,
) ([]admission.Application, error) {
	query := bson.M{}
	if len(filter.States) > 0 {
		states := make([]string, 0, len(filter.States))
		for _, s := range filter.States {
			states = append(states, string(s))
		}
		query["state"] = bson.M{"$in": states}
	}
	// applications with Name, Email or AdmissionNumber matching the search keyword
	if filter.Search != "" {
		rx := bson.M{"$regex": regexp.QuoteMeta(filter.Search), "$options": "i"}
		query["$or"] = bson.A{
			bson.M{"name": rx},
			bson.M{"email": rx},
			bson.M{"admission_number": rx},
		}
	}

	sort := bson.D{}
	for _, ord := range ordering {
		dir := -1
		if ord.Ascending {
			dir = 1
		}
		sort = append(sort, bson.E{Key: ord.Field, Value: dir})
	}
	sort = append(sort, bson.E{Key: "_id", Value: 1})

	cur, err := repo.coll.Find(ctx, query, options.Find().SetSort(sort))
	if err != nil {
		return nil, errors.Wrap(err, "querying applications")
	}
	var docs []applicationDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding applications")
	}

	apps := make([]admission.Application, 0, len(docs))
	for _, doc := range docs {
		apps = append(apps, doc.toApplication())
	}
	return apps, nil
}

func (repo applicationRepository) CountApplications(ctx context.Context) (map[admission.State]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$state"}, {Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
	}
	cur, err := repo.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "counting applications")
	}
	var rows []struct {
		State string `bson:"_id"`
		Count int    `bson:"count"`
	}
	if err = cur.All(ctx, &rows); err != nil {
		return nil, errors.Wrap(err, "decoding application counts")
	}

	counts := make(map[admission.State]int, len(rows))
	for _, r := range rows {
		counts[admission.State(r.State)] = r.Count
	}
	return counts, nil
}

// UpdateState matches on both the ID and `from`, so FindOneAndUpdate only applies while the state is unchanged.
func (repo applicationRepository) UpdateState(
	ctx context.Context,
	accountID string,
	from admission.State,
	chg admission.Change,
) (admission.Application, error) {
	set := bson.M{"state": string(chg.To), "updated_at": chg.UpdatedAt.UTC()}
	if chg.Details != nil {
		set["details"] = chg.Details
	}
	if chg.AdmissionNumber != "" {
		set["admission_number"] = chg.AdmissionNumber
	}
	if chg.RejectionReason != "" {
		set["rejection_reason"] = chg.RejectionReason
	}
	if !chg.AppliedAt.IsZero() {
		set["applied_at"] = chg.AppliedAt.UTC()
	}
	if !chg.DecidedAt.IsZero() {
		set["decided_at"] = chg.DecidedAt.UTC()
	}
	if chg.DecidedBy != "" {
		set["decided_by"] = chg.DecidedBy
	}

	var doc applicationDoc
	err := repo.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": accountID, "state": string(from)},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			n, cErr := repo.coll.CountDocuments(ctx, bson.M{"_id": accountID})
			if cErr != nil {
				return admission.Application{}, errors.Wrap(cErr, "checking application")
			}
			if n == 0 {
				return admission.Application{}, admission.ErrNotFound
			}
			return admission.Application{}, admission.ErrStateConflict
		}
		if mongo.IsDuplicateKeyError(err) {
			return admission.Application{}, admission.ErrAdmissionNumberTaken
		}
		return admission.Application{}, errors.Wrap(err, "updating application state")
	}
	return doc.toApplication(), nil
}

func (repo applicationRepository) DeleteApplication(ctx context.Context, accountID string) error {
	if _, err := repo.coll.DeleteOne(ctx, bson.M{"_id": accountID}); err != nil {
		return errors.Wrap(err, "deleting application")
	}
	return nil
}

// NextAdmissionSeq increments the admission counter document, creating it on first use.
func (repo applicationRepository) NextAdmissionSeq(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := repo.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": admissionCounterID},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, errors.Wrap(err, "allocating admission sequence")
	}
	return counter.Seq, nil
}
