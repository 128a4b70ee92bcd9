package pgstore

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/store"
)

// builder accumulates positional arguments.
type builder struct {
	args []interface{}
}

func (b *builder) arg(v interface{}) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// path is the jsonb accessor of a dotted field path.
func (b *builder) path(field string) string {
	return "data #> " + b.arg("{"+strings.ReplaceAll(field, ".", ",")+"}") + "::text[]"
}

func (b *builder) jsonValue(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "encoding query value")
	}
	return b.arg(string(raw)) + "::jsonb", nil
}

// buildQuery translates q to SQL. Postgres orders jsonb values of different types
// differently from the in-memory store; orderings over mixed types are not portable.
func buildQuery(collection string, q store.Query) (string, []interface{}, error) {
	var b builder
	where := []string{"collection = " + b.arg(collection)}

	for _, c := range q.Conditions {
		var op string
		value := c.Value
		switch c.Operator {
		case store.OpEqual:
			op = " = "
		case store.OpArrayContains:
			op = " @> "
			value = []interface{}{c.Value}
		default:
			return "", nil, errors.Wrapf(store.ErrInvalidQuery, "unsupported operator %q", c.Operator)
		}
		path := b.path(c.Field)
		v, err := b.jsonValue(value)
		if err != nil {
			return "", nil, err
		}
		where = append(where, path+op+v)
	}

	var orderBy []string
	for _, ord := range q.Orders {
		where = append(where, b.path(ord.Field)+" IS NOT NULL")
		dir := "DESC"
		if ord.Ascending {
			dir = "ASC"
		}
		orderBy = append(orderBy, b.path(ord.Field)+" "+dir)
	}

	if len(q.Cursor) > 0 {
		// (f1 > c1) OR (f1 = c1 AND f2 > c2) OR ...
		var alternatives []string
		for i := range q.Cursor {
			var terms []string
			for j := 0; j <= i; j++ {
				ord := q.Orders[j]
				path := b.path(ord.Field)
				v, err := b.jsonValue(q.Cursor[j])
				if err != nil {
					return "", nil, err
				}
				op := "="
				if j == i {
					op = "<"
					if ord.Ascending {
						op = ">"
					}
				}
				terms = append(terms, path+" "+op+" "+v)
			}
			alternatives = append(alternatives, "("+strings.Join(terms, " AND ")+")")
		}
		where = append(where, "("+strings.Join(alternatives, " OR ")+")")
	}

	var sb strings.Builder
	sb.WriteString("SELECT id, data FROM records WHERE ")
	sb.WriteString(strings.Join(where, " AND "))
	if len(orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(orderBy, ", "))
	}
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(b.arg(q.Limit))
	}
	return sb.String(), b.args, nil
}
