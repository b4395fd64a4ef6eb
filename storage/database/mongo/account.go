package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/admissions/core/account"
)

type accountDoc struct {
	ID           string     `bson:"_id"`
	Name         string     `bson:"name"`
	Email        string     `bson:"email"`
	Role         string     `bson:"role"`
	IsActive     bool       `bson:"is_active"`
	PasswordHash []byte     `bson:"password_hash"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
	LastLogin    *time.Time `bson:"last_login,omitempty"`
}

func toAccountDoc(acc account.Account) accountDoc {
	doc := accountDoc{
		ID:           acc.ID,
		Name:         acc.Name,
		Email:        acc.Email,
		Role:         acc.Role,
		IsActive:     acc.IsActive,
		PasswordHash: acc.PasswordHash,
		CreatedAt:    acc.CreatedAt.UTC(),
		UpdatedAt:    acc.UpdatedAt.UTC(),
	}
	if !acc.LastLogin.IsZero() {
		t := acc.LastLogin.UTC()
		doc.LastLogin = &t
	}
	return doc
}

func (doc accountDoc) toAccount() account.Account {
	acc := account.Account{
		ID:           doc.ID,
		Name:         doc.Name,
		Email:        doc.Email,
		Role:         doc.Role,
		IsActive:     doc.IsActive,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt.UTC(),
		UpdatedAt:    doc.UpdatedAt.UTC(),
	}
	if doc.LastLogin != nil {
		acc.LastLogin = doc.LastLogin.UTC()
	}
	return acc
}

type accountRepository struct {
	coll *mongo.Collection
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *mongo.Database) *accountRepository {
	return &accountRepository{coll: db.Collection(accountCollection)}
}

func (repo accountRepository) CreateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	if _, err := repo.coll.InsertOne(ctx, toAccountDoc(acc)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, errors.Wrap(err, "inserting account")
	}
	return acc, nil
}

func (repo accountRepository) GetAccount(ctx context.Context, filter account.GetFilter) (account.Account, error) {
	var query bson.M
	switch {
	case filter.ID != "":
		query = bson.M{"_id": filter.ID}
	case filter.Email != "":
		query = bson.M{"email": filter.Email}
	default:
		return account.Account{}, account.ErrNotFound
	}

	var doc accountDoc
	if err := repo.coll.FindOne(ctx, query).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, errors.Wrap(err, "finding account")
	}
	return doc.toAccount(), nil
}

func (repo accountRepository) UpdateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	res, err := repo.coll.ReplaceOne(ctx, bson.M{"_id": acc.ID}, toAccountDoc(acc))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, errors.Wrap(err, "updating account")
	}
	if res.MatchedCount == 0 {
		return account.Account{}, account.ErrNotFound
	}
	return acc, nil
}

func (repo accountRepository) DeleteAccount(ctx context.Context, id string) error {
	if _, err := repo.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return errors.Wrap(err, "deleting account")
	}
	return nil
}
