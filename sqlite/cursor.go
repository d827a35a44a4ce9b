package sqlite

import (
	"database/sql"
	"strconv"

	"github.com/pkg/errors"
)

// Cursor iterates over the rows of a query. Column values of the current row
// are read through typed accessors, which coerce between SQLite storage
// classes as SQLite itself does: NULL reads as zero, and TEXT holding a
// number reads as that number.
type Cursor struct {
	rows    *sql.Rows
	values  []interface{}
	ptrs    []interface{}
	stmt    *Stmt // Owning Stmt, or nil.
	hasRow  bool
	stopped bool
}

func newCursor(rows *sql.Rows, stmt *Stmt) (*Cursor, error) {
	var cols, err = rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, err
	}
	var c = &Cursor{
		rows:   rows,
		values: make([]interface{}, len(cols)),
		ptrs:   make([]interface{}, len(cols)),
		stmt:   stmt,
	}
	for i := range c.values {
		c.ptrs[i] = &c.values[i]
	}
	return c, nil
}

// Next advances to the next row, returning false when rows are exhausted.
func (c *Cursor) Next() (bool, error) {
	if c.stopped {
		return false, nil
	}
	if c.hasRow = c.rows.Next(); !c.hasRow {
		c.stopped = true
		return false, c.rows.Err()
	}
	if err := c.rows.Scan(c.ptrs...); err != nil {
		c.hasRow = false
		return false, errors.WithMessage(err, "scanning row")
	}
	return true, nil
}

// ColumnCount returns the number of columns of the Cursor.
func (c *Cursor) ColumnCount() int { return len(c.values) }

func (c *Cursor) value(column int) (interface{}, error) {
	if !c.hasRow {
		return nil, errors.New("cursor is not positioned on a row")
	} else if column < 0 || column >= len(c.values) {
		return nil, errors.Errorf("column %d out of range [0, %d)", column, len(c.values))
	}
	return c.values[column], nil
}

// IsNull returns true if |column| of the current row is NULL.
func (c *Cursor) IsNull(column int) (bool, error) {
	var v, err = c.value(column)
	return v == nil, err
}

// LongValue returns |column| of the current row as an int64.
func (c *Cursor) LongValue(column int) (int64, error) {
	var v, err = c.value(column)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return t, nil
	case float64:
		return int64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		return parseLong(t)
	case []byte:
		return parseLong(string(t))
	default:
		return 0, errors.Errorf("column %d: unexpected type %T", column, v)
	}
}

// IntValue returns |column| of the current row as an int32.
func (c *Cursor) IntValue(column int) (int32, error) {
	var v, err = c.LongValue(column)
	return int32(v), err
}

// DoubleValue returns |column| of the current row as a float64.
func (c *Cursor) DoubleValue(column int) (float64, error) {
	var v, err = c.value(column)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return float64(t), nil
	case float64:
		return t, nil
	case string:
		return strconv.ParseFloat(t, 64)
	case []byte:
		return strconv.ParseFloat(string(t), 64)
	default:
		return 0, errors.Errorf("column %d: unexpected type %T", column, v)
	}
}

// StringValue returns |column| of the current row as a string.
func (c *Cursor) StringValue(column int) (string, error) {
	var v, err = c.value(column)
	if err != nil {
		return "", err
	}
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	default:
		return "", errors.Errorf("column %d: unexpected type %T", column, v)
	}
}

// BytesValue returns |column| of the current row as a []byte.
func (c *Cursor) BytesValue(column int) ([]byte, error) {
	var v, err = c.value(column)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	default:
		return nil, errors.Errorf("column %d: unexpected type %T", column, v)
	}
}

// Dispose releases the Cursor. It must be called once the caller is done
// with the Cursor, whether or not its rows were exhausted.
func (c *Cursor) Dispose() error {
	if c.stmt != nil && c.stmt.cursor == c {
		c.stmt.cursor = nil
	}
	c.stopped, c.hasRow = true, false
	return c.rows.Close()
}

func parseLong(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	var f, err = strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.WithMessagef(err, "parsing %q as integer", s)
	}
	return int64(f), nil
}
