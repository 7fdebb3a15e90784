package record

import (
	"fmt"
	"strings"

	"github.com/tuannm99/coldb/internal/dberr"
)

type ColumnType uint8

const (
	ColInteger ColumnType = iota + 1 // int64
	ColDouble                        // float64
	ColString                        // UTF-8 string
	ColBoolean                       // bool
	ColDate                          // time.Time, UTC midnight
	ColObject                        // opaque bytes
)

func (t ColumnType) String() string {
	switch t {
	case ColInteger:
		return "INTEGER"
	case ColDouble:
		return "DOUBLE"
	case ColString:
		return "STRING"
	case ColBoolean:
		return "BOOLEAN"
	case ColDate:
		return "DATE"
	case ColObject:
		return "OBJECT"
	default:
		return fmt.Sprintf("ColumnType(%d)", uint8(t))
	}
}

func (t ColumnType) Valid() bool { return t >= ColInteger && t <= ColObject }

// ParseColumnType maps a type name (case-insensitive) to a ColumnType.
// A few common aliases are accepted.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INTEGER", "INT", "BIGINT":
		return ColInteger, nil
	case "DOUBLE", "FLOAT", "REAL":
		return ColDouble, nil
	case "STRING", "TEXT", "VARCHAR":
		return ColString, nil
	case "BOOLEAN", "BOOL":
		return ColBoolean, nil
	case "DATE":
		return ColDate, nil
	case "OBJECT", "BLOB", "BYTES":
		return ColObject, nil
	}
	return 0, fmt.Errorf("column type %q: %w", s, dberr.ErrInvalidValue)
}

// Column describes one column when creating a table.
type Column struct {
	Name string
	Type ColumnType
}

type Schema struct {
	Cols []Column
}

func (s Schema) NumCols() int { return len(s.Cols) }

type (
	TableID  uint32
	ColumnID uint32
	RowID    uint64
)
