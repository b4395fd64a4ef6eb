// Package mongodb stores accounts & applications in a MongoDB database.
package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/trezcool/admissions/core"
)

const (
	accountCollection     = "accounts"
	applicationCollection = "applications"
	counterCollection     = "counters"

	connectTimeout = 10 * time.Second
)

// Connect opens a client on conf.Mongo.URI, pings the primary and ensures the indexes exist.
func Connect(ctx context.Context, conf *core.Config) (*mongo.Database, error) {
	opts := options.Client().
		ApplyURI(conf.Mongo.URI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongo")
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "pinging mongo")
	}

	db := client.Database(conf.Mongo.Database)
	if err = EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return db, nil
}

func Disconnect(ctx context.Context, db *mongo.Database) error {
	return db.Client().Disconnect(ctx)
}

// EnsureIndexes creates the unique indexes backing email & admission number uniqueness.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(accountCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName("account_email_key").SetUnique(true),
	})
	if err != nil {
		return errors.Wrap(err, "creating account indexes")
	}

	_, err = db.Collection(applicationCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "admission_number", Value: 1}},
			Options: options.Index().
				SetName("application_admission_number_key").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"admission_number": bson.M{"$type": "string"}}),
		},
		{
			Keys:    bson.D{{Key: "state", Value: 1}, {Key: "applied_at", Value: -1}},
			Options: options.Index().SetName("application_state_idx"),
		},
	})
	if err != nil {
		return errors.Wrap(err, "creating application indexes")
	}
	return nil
}
