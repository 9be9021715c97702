package storage

import (
	"fmt"
	"strconv"
	"strings"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Dialect captures the SQL differences between the supported drivers.
type Dialect struct {
	Name string
}

// DialectFor returns the dialect for a driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case DriverSQLite, DriverPostgres, DriverMySQL:
		return Dialect{Name: driver}, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported record store driver %q", driver)
	}
}

// placeholder returns the bind marker for the n-th (1-based) argument.
func (d Dialect) placeholder(n int) string {
	if d.Name == DriverPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Rebind rewrites ? markers into the dialect's placeholder style.
func (d Dialect) Rebind(query string) string {
	if d.Name != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// upsertConversationSQL inserts a conversation row or overwrites the mutable
// columns of an existing one.
func (d Dialect) upsertConversationSQL() string {
	insert := `INSERT INTO conversations (id, title, user_id, agent_ids, messages, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	if d.Name == DriverMySQL {
		return insert + ` ON DUPLICATE KEY UPDATE title = VALUES(title), user_id = VALUES(user_id), agent_ids = VALUES(agent_ids), messages = VALUES(messages), updated_at = VALUES(updated_at)`
	}
	return d.Rebind(insert + ` ON CONFLICT (id) DO UPDATE SET title = excluded.title, user_id = excluded.user_id, agent_ids = excluded.agent_ids, messages = excluded.messages, updated_at = excluded.updated_at`)
}
