// Package repository holds the MySQL access code.  Sentinel errors below
// are shared by every repository so services and handlers can branch with
// errors.Is without knowing driver details.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrUserNotFound is returned when the referenced user row does not exist,
// either on lookup or as a foreign key violation on insert.
var ErrUserNotFound = errors.New("user not found")

// ErrDuplicate wraps a unique key violation (MySQL 1062).
var ErrDuplicate = errors.New("duplicate key")

// ErrEmailExists is the users.email flavour of ErrDuplicate.
var ErrEmailExists = errors.New("email already exists")

const (
	mysqlDuplicateEntry  = 1062
	mysqlNoReferencedRow = 1452
)

func isMySQLError(err error, number uint16) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == number
}

// IsDuplicate reports whether err is a unique key violation.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate) || isMySQLError(err, mysqlDuplicateEntry)
}

// IsMissingReference reports whether err is a foreign key violation.
func IsMissingReference(err error) bool { return isMySQLError(err, mysqlNoReferencedRow) }
