package dummydb

import (
	"sync"

	"github.com/trezcool/campusboard/core/assignment"
	"github.com/trezcool/campusboard/core/auth"
	"github.com/trezcool/campusboard/core/notice"
	"github.com/trezcool/campusboard/core/user"
)

type (
	DB struct {
		user       *userTable
		notice     *noticeTable
		assignment *assignmentTable
		session    *sessionTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]user.User
	}

	noticeTable struct {
		sync.RWMutex
		table map[string]notice.Notice
	}

	assignmentTable struct {
		sync.RWMutex
		table map[string]assignment.Assignment
	}

	sessionTable struct {
		sync.RWMutex
		table map[string]auth.Session
	}
)

// Open returns an empty in-memory database. Data lives as long as the process.
func Open() *DB {
	db := &DB{
		user:       &userTable{},
		notice:     &noticeTable{},
		assignment: &assignmentTable{},
		session:    &sessionTable{},
	}
	db.Reset()
	return db
}

// Reset drops every row.
func (db *DB) Reset() {
	db.user.Lock()
	db.user.table = make(map[string]user.User)
	db.user.Unlock()

	db.notice.Lock()
	db.notice.table = make(map[string]notice.Notice)
	db.notice.Unlock()

	db.assignment.Lock()
	db.assignment.table = make(map[string]assignment.Assignment)
	db.assignment.Unlock()

	db.session.Lock()
	db.session.table = make(map[string]auth.Session)
	db.session.Unlock()
}
