package inmemdb

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/account"
	"github.com/trezcool/academia/core/classroom"
)

type (
	// DB keeps every table in memory. It is meant for tests and local runs.
	DB struct {
		mutex sync.RWMutex // guards the tables
		txMu  sync.Mutex   // one transaction at a time

		accounts  map[string]account.Account
		students  map[string]account.Student
		classes   map[string]classroom.Class
		members   map[string]map[string]time.Time // {classID: {studentID: addedAt}}
		schedules map[string]classroom.Schedule
	}

	tables struct {
		accounts  map[string]account.Account
		students  map[string]account.Student
		classes   map[string]classroom.Class
		members   map[string]map[string]time.Time
		schedules map[string]classroom.Schedule
	}
)

var _ core.Transactor = (*DB)(nil) // interface compliance check

func Open() *DB {
	return &DB{
		accounts:  make(map[string]account.Account),
		students:  make(map[string]account.Student),
		classes:   make(map[string]classroom.Class),
		members:   make(map[string]map[string]time.Time),
		schedules: make(map[string]classroom.Schedule),
	}
}

func newID() string {
	return uuid.New().String()
}

func (db *DB) snapshot() tables {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	t := tables{
		accounts:  make(map[string]account.Account, len(db.accounts)),
		students:  make(map[string]account.Student, len(db.students)),
		classes:   make(map[string]classroom.Class, len(db.classes)),
		members:   make(map[string]map[string]time.Time, len(db.members)),
		schedules: make(map[string]classroom.Schedule, len(db.schedules)),
	}
	for k, v := range db.accounts {
		t.accounts[k] = v
	}
	for k, v := range db.students {
		t.students[k] = v
	}
	for k, v := range db.classes {
		t.classes[k] = v
	}
	for k, roster := range db.members {
		cp := make(map[string]time.Time, len(roster))
		for sid, at := range roster {
			cp[sid] = at
		}
		t.members[k] = cp
	}
	for k, v := range db.schedules {
		t.schedules[k] = v
	}
	return t
}

func (db *DB) restore(t tables) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.accounts = t.accounts
	db.students = t.students
	db.classes = t.classes
	db.members = t.members
	db.schedules = t.schedules
}

// InTx runs fn with transactions serialized; the tables are restored when fn fails.
// Writes made outside of a transaction while fn runs are lost on rollback.
func (db *DB) InTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	saved := db.snapshot()
	if err := fn(nil); err != nil {
		db.restore(saved)
		return err
	}
	return nil
}
