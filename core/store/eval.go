package store

import "sort"

// Evaluate runs q over records in process. It backs the in-memory store and is the
// reference behaviour the database backends translate.
func Evaluate(records []Record, q Query) []Record {
	matched := make([]Record, 0, len(records))
	for _, rec := range records {
		if Matches(rec.Data, q) {
			matched = append(matched, rec)
		}
	}

	if len(q.Orders) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			return compareOrders(matched[i].Data, matched[j].Data, q) < 0
		})
	}

	if len(q.Cursor) > 0 {
		start := len(matched)
		for i, rec := range matched {
			if afterCursor(rec.Data, q) {
				start = i
				break
			}
		}
		matched = matched[start:]
	}

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched
}

// Matches reports whether doc satisfies every condition of q and holds every order-by field.
func Matches(doc Document, q Query) bool {
	for _, c := range q.Conditions {
		v, ok := Lookup(doc, c.Field)
		if !ok {
			return false
		}
		switch c.Operator {
		case OpEqual:
			if rank(v) != rank(c.Value) || !Equal(v, c.Value) {
				return false
			}
		case OpArrayContains:
			if !Contains(v, c.Value) {
				return false
			}
		default:
			return false
		}
	}
	for _, ord := range q.Orders {
		if _, ok := Lookup(doc, ord.Field); !ok {
			return false
		}
	}
	return true
}

func compareOrders(a, b Document, q Query) int {
	for _, ord := range q.Orders {
		va, _ := Lookup(a, ord.Field)
		vb, _ := Lookup(b, ord.Field)
		c := Compare(va, vb)
		if !ord.Ascending {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func afterCursor(doc Document, q Query) bool {
	for i, cv := range q.Cursor {
		ord := q.Orders[i]
		v, _ := Lookup(doc, ord.Field)
		c := Compare(v, cv)
		if !ord.Ascending {
			c = -c
		}
		if c != 0 {
			return c > 0
		}
	}
	return false
}
