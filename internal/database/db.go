package database

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Queryable is the union of the sqlx methods common to both a live
// database handle and an open transaction. Store methods accept this
// interface so callers can compose them inside transactions (see WrapTx).
type Queryable interface {
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	Exec(query string, args ...interface{}) (sql.Result, error)
	NamedExec(query string, arg interface{}) (sql.Result, error)
	Rebind(query string) string
}

// JsonColumn is a generic container for scanning JSON/JSONB columns
// (typically produced by JSONB_AGG in a joined query) into a typed
// Go value.
type JsonColumn[T any] struct {
	val *T
}

func (j *JsonColumn[T]) Scan(src any) error {
	if src == nil {
		j.val = nil
		return nil
	}

	srcBytes, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into JsonColumn", src)
	}

	var val T
	if err := json.Unmarshal(srcBytes, &val); err != nil {
		return err
	}

	j.val = &val
	return nil
}

func (j JsonColumn[T]) Value() (driver.Value, error) {
	if j.val == nil {
		return nil, nil
	}

	return json.Marshal(*j.val)
}

func (j *JsonColumn[T]) Get() *T {
	return j.val
}
