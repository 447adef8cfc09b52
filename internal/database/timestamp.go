package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// Timestamp scans a time column into Time. SQLite only converts values it can
// tie to a declared DATETIME column, so expression results such as RETURNING
// columns may arrive as text in one of sqlite3.SQLiteTimestampFormats.
type Timestamp struct {
	Time *time.Time
}

// Scan implements sql.Scanner
func (ts Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*ts.Time = v.UTC()
		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	case nil:
		*ts.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

func (ts Timestamp) parse(s string) error {
	s = strings.TrimSuffix(s, "Z")
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			*ts.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}
