package db

import (
	"strings"

	"github.com/teranos/attrgen/errors"
)

// ErrDatabaseClosed marks operations attempted after Close.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed reports whether err came from a closed database, either
// marked by this package or raised directly by database/sql.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}
