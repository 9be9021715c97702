package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ConversationRecord is the row shape of the conversations table. Messages is
// the JSON-encoded message list; the timestamps are ISO8601 strings in UTC.
type ConversationRecord struct {
	ID        string          `json:"id" db:"id"`
	Title     string          `json:"title" db:"title"`
	UserID    string          `json:"user_id" db:"user_id"`
	AgentIDs  JSONStringArray `json:"agent_ids" db:"agent_ids"`
	Messages  string          `json:"messages" db:"messages"`
	CreatedAt string          `json:"created_at" db:"created_at"`
	UpdatedAt string          `json:"updated_at" db:"updated_at"`
}

// JSONStringArray is a custom type for handling JSON arrays stored as strings in the database
type JSONStringArray []string

// Scan implements the sql.Scanner interface for JSONStringArray
func (j *JSONStringArray) Scan(value interface{}) error {
	if value == nil {
		*j = []string{}
		return nil
	}

	switch v := value.(type) {
	case string:
		if v == "" || v == "[]" {
			*j = []string{}
			return nil
		}
		return json.Unmarshal([]byte(v), j)
	case []byte:
		if len(v) == 0 || string(v) == "[]" {
			*j = []string{}
			return nil
		}
		return json.Unmarshal(v, j)
	default:
		return fmt.Errorf("cannot scan type %T into JSONStringArray", value)
	}
}

// Value implements the driver.Valuer interface for JSONStringArray
func (j JSONStringArray) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
