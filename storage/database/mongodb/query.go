package mongostore

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/academia/core/store"
)

// BuildFilter translates the conditions, ordering requirements and cursor of q.
func BuildFilter(q store.Query) bson.D {
	var clauses bson.A
	for _, c := range q.Conditions {
		switch c.Operator {
		case store.OpArrayContains:
			clauses = append(clauses, bson.D{{Key: c.Field, Value: bson.D{
				{Key: "$elemMatch", Value: bson.D{{Key: "$eq", Value: c.Value}}},
			}}})
		default:
			clauses = append(clauses, bson.D{{Key: c.Field, Value: bson.D{{Key: "$eq", Value: c.Value}}}})
		}
	}

	// records missing an order field are left out
	for _, ord := range q.Orders {
		clauses = append(clauses, bson.D{{Key: ord.Field, Value: bson.D{{Key: "$exists", Value: true}}}})
	}

	if len(q.Cursor) > 0 {
		var alternatives bson.A
		for i := range q.Cursor {
			var alt bson.D
			for j := 0; j < i; j++ {
				alt = append(alt, bson.E{Key: q.Orders[j].Field, Value: bson.D{{Key: "$eq", Value: q.Cursor[j]}}})
			}
			op := "$lt"
			if q.Orders[i].Ascending {
				op = "$gt"
			}
			alt = append(alt, bson.E{Key: q.Orders[i].Field, Value: bson.D{{Key: op, Value: q.Cursor[i]}}})
			alternatives = append(alternatives, alt)
		}
		clauses = append(clauses, bson.D{{Key: "$or", Value: alternatives}})
	}

	if len(clauses) == 0 {
		return bson.D{}
	}
	return bson.D{{Key: "$and", Value: clauses}}
}

func FindOptions(q store.Query) *options.FindOptions {
	opts := options.Find()
	if len(q.Orders) > 0 {
		sort := make(bson.D, 0, len(q.Orders))
		for _, ord := range q.Orders {
			dir := -1
			if ord.Ascending {
				dir = 1
			}
			sort = append(sort, bson.E{Key: ord.Field, Value: dir})
		}
		opts.SetSort(sort)
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	return opts
}
