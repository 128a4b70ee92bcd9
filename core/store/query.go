package store

import (
	"regexp"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

type Operator string

const (
	OpEqual         Operator = "=="
	OpArrayContains Operator = "array-contains"
)

type Direction bool

const (
	Asc  Direction = true
	Desc Direction = false
)

var fieldPathRegex = regexp.MustCompile(`^[A-Za-z0-9_]+(\.[A-Za-z0-9_]+)*$`)

type (
	Condition struct {
		Field    string
		Operator Operator
		Value    interface{}
	}

	// Query is a validated, backend-agnostic description of a filtered read.
	// Values are already in their stored representation.
	Query struct {
		Conditions []Condition
		Orders     []core.DBOrdering
		Limit      int           // 0: no limit
		Cursor     []interface{} // start after these values of Orders
	}

	// Filter is a single query predicate; filters apply in the order given.
	Filter func(q *Query) error
)

// Where keeps records whose field equals value.
func Where(field string, value interface{}) Filter {
	return condition(field, OpEqual, value)
}

// ArrayContains keeps records whose array field holds value.
func ArrayContains(field string, value interface{}) Filter {
	return condition(field, OpArrayContains, value)
}

func condition(field string, op Operator, value interface{}) Filter {
	return func(q *Query) error {
		if err := checkField(field); err != nil {
			return err
		}
		v, err := EncodeValue(value)
		if err != nil {
			return errors.Wrap(ErrInvalidQuery, err.Error())
		}
		q.Conditions = append(q.Conditions, Condition{Field: field, Operator: op, Value: v})
		return nil
	}
}

// OrderBy sorts the results on field. Records missing the field are left out.
func OrderBy(field string, dir Direction) Filter {
	return func(q *Query) error {
		if err := checkField(field); err != nil {
			return err
		}
		q.Orders = append(q.Orders, core.DBOrdering{Field: field, Ascending: bool(dir)})
		return nil
	}
}

// OrderByString parses orderings such as "-createdAt,name".
func OrderByString(s string) Filter {
	return func(q *Query) error {
		for _, ord := range core.ParseOrderings(s) {
			if err := OrderBy(ord.Field, Direction(ord.Ascending))(q); err != nil {
				return err
			}
		}
		return nil
	}
}

func Limit(n int) Filter {
	return func(q *Query) error {
		if n < 0 {
			return errors.Wrapf(ErrInvalidQuery, "negative limit %d", n)
		}
		q.Limit = n
		return nil
	}
}

// StartAfter resumes a query after the record whose order-by values are values.
func StartAfter(values ...interface{}) Filter {
	return func(q *Query) error {
		cursor := make([]interface{}, 0, len(values))
		for _, value := range values {
			v, err := EncodeValue(value)
			if err != nil {
				return errors.Wrap(ErrInvalidQuery, err.Error())
			}
			cursor = append(cursor, v)
		}
		q.Cursor = cursor
		return nil
	}
}

// NewQuery applies filters and validates the result.
func NewQuery(filters ...Filter) (Query, error) {
	var q Query
	for _, f := range filters {
		if err := f(&q); err != nil {
			return Query{}, err
		}
	}
	if len(q.Cursor) > 0 && len(q.Orders) == 0 {
		return Query{}, errors.Wrap(ErrInvalidQuery, "cursor without ordering")
	}
	if len(q.Cursor) > len(q.Orders) {
		return Query{}, errors.Wrap(ErrInvalidQuery, "cursor has more values than orderings")
	}
	return q, nil
}

func checkField(field string) error {
	if !fieldPathRegex.MatchString(field) {
		return errors.Wrapf(ErrInvalidQuery, "invalid field path %q", field)
	}
	return nil
}
