package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/elee1766/parley/src/model"
)

// ErrSchemaMissing indicates the conversations table does not exist yet.
var ErrSchemaMissing = errors.New("record store schema missing")

const (
	pgUndefinedTable  = "42P01"
	mysqlNoSuchTable  = 1146
	sqliteNoSuchTable = "no such table"
)

// Probe checks that the conversations table is queryable. A missing table
// reports ErrSchemaMissing; any other failure is wrapped in
// model.ErrRemoteStoreUnavailable.
func (d *DB) Probe(ctx context.Context) error {
	rows, err := d.db.QueryContext(ctx, "SELECT id FROM conversations WHERE 1 = 0")
	if err != nil {
		if isUndefinedTable(err) {
			return ErrSchemaMissing
		}
		return fmt.Errorf("%w: %v", model.ErrRemoteStoreUnavailable, err)
	}
	defer rows.Close()
	return rows.Err()
}

func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUndefinedTable
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlNoSuchTable
	}
	return strings.Contains(err.Error(), sqliteNoSuchTable)
}
