// Package dummydb is an in-memory storage engine, for tests & local development.
package dummydb

import (
	"sync"

	"github.com/trezcool/admissions/core/account"
	"github.com/trezcool/admissions/core/admission"
)

type (
	DB struct {
		account     *accountTable
		application *applicationTable
	}

	accountTable struct {
		sync.RWMutex
		table map[string]*account.Account
	}

	applicationTable struct {
		sync.RWMutex
		table map[string]*admission.Application // {accountID: application}
		seq   int64
	}
)

func Open() (*DB, error) {
	db := &DB{
		account:     &accountTable{table: make(map[string]*account.Account)},
		application: &applicationTable{table: make(map[string]*admission.Application)},
	}
	return db, nil
}

// Reset drops all the data, sequences included.
func (db *DB) Reset() {
	db.account.Lock()
	db.account.table = make(map[string]*account.Account)
	db.account.Unlock()

	db.application.Lock()
	db.application.table = make(map[string]*admission.Application)
	db.application.seq = 0
	db.application.Unlock()
}
