// Package inmemdb is a map-backed stand-in for the real database, used in
// tests. Transactions snapshot the whole store on Begin and restore it on
// Rollback so cascade atomicity behaves the same as on PostgreSQL.
package inmemdb

import (
	"context"
	"database/sql"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/account"
	"github.com/trezcool/ujuzi/core/course"
	"github.com/trezcool/ujuzi/core/progress"
)

var errNoSQL = errors.New("inmemdb: raw SQL not supported")

type (
	DB struct {
		noSQL
		mutex sync.RWMutex

		pkCount     int
		students    map[int]*account.Student
		admins      map[int]*account.Admin
		courses     map[int]*course.Course
		materials   map[int]*course.Material
		enrollments map[int]*progress.Enrollment
		progress    map[int]*progress.Progress
	}

	// Tx holds the pre-transaction state; Rollback swaps it back in.
	Tx struct {
		noSQL
		db   *DB
		prev *DB
		done bool
	}
)

var (
	_ core.DB           = (*DB)(nil) // interface compliance checks
	_ core.DBTransactor = (*Tx)(nil)
)

func Open() (*DB, error) {
	return &DB{
		students:    make(map[int]*account.Student),
		admins:      make(map[int]*account.Admin),
		courses:     make(map[int]*course.Course),
		materials:   make(map[int]*course.Material),
		enrollments: make(map[int]*progress.Enrollment),
		progress:    make(map[int]*progress.Progress),
	}, nil
}

func (db *DB) nextPK() int {
	db.pkCount++
	return db.pkCount
}

func (db *DB) Begin() (core.DBTransactor, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	return &Tx{db: db, prev: db.snapshot()}, nil
}

func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (core.DBTransactor, error) {
	return db.Begin()
}

// snapshot deep-copies the tables. Callers must hold the lock.
func (db *DB) snapshot() *DB {
	snap := &DB{
		pkCount:     db.pkCount,
		students:    make(map[int]*account.Student, len(db.students)),
		admins:      make(map[int]*account.Admin, len(db.admins)),
		courses:     make(map[int]*course.Course, len(db.courses)),
		materials:   make(map[int]*course.Material, len(db.materials)),
		enrollments: make(map[int]*progress.Enrollment, len(db.enrollments)),
		progress:    make(map[int]*progress.Progress, len(db.progress)),
	}
	for id, st := range db.students {
		v := *st
		snap.students[id] = &v
	}
	for id, adm := range db.admins {
		v := *adm
		snap.admins[id] = &v
	}
	for id, c := range db.courses {
		v := *c
		snap.courses[id] = &v
	}
	for id, m := range db.materials {
		v := *m
		snap.materials[id] = &v
	}
	for id, e := range db.enrollments {
		v := *e
		snap.enrollments[id] = &v
	}
	for id, p := range db.progress {
		v := *p
		snap.progress[id] = &v
	}
	return snap
}

func (tx *Tx) Commit() error {
	if tx.done {
		return sql.ErrTxDone
	}
	tx.done = true
	tx.prev = nil
	return nil
}

func (tx *Tx) Rollback() error {
	if tx.done {
		return sql.ErrTxDone
	}
	tx.done = true

	tx.db.mutex.Lock()
	defer tx.db.mutex.Unlock()
	tx.db.pkCount = tx.prev.pkCount
	tx.db.students = tx.prev.students
	tx.db.admins = tx.prev.admins
	tx.db.courses = tx.prev.courses
	tx.db.materials = tx.prev.materials
	tx.db.enrollments = tx.prev.enrollments
	tx.db.progress = tx.prev.progress
	tx.prev = nil
	return nil
}

// noSQL satisfies core.DBExecutor for types that have no SQL engine behind
// them; repositories here never issue raw queries.
type noSQL struct{}

func (noSQL) Exec(string, ...interface{}) (sql.Result, error) { return nil, errNoSQL }
func (noSQL) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errNoSQL
}
func (noSQL) Query(string, ...interface{}) (*sql.Rows, error) { return nil, errNoSQL }
func (noSQL) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, errNoSQL
}
func (noSQL) QueryRow(string, ...interface{}) *sql.Row                         { return nil }
func (noSQL) QueryRowContext(context.Context, string, ...interface{}) *sql.Row { return nil }
