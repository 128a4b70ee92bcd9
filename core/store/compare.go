package store

import (
	"encoding/json"
	"strings"
)

// type ranks, lowest first
const (
	rankNull = iota
	rankBool
	rankNumber
	rankString
	rankArray
	rankMap
	rankOther
)

func rank(v interface{}) int {
	switch v.(type) {
	case nil:
		return rankNull
	case bool:
		return rankBool
	case float64, float32, int, int32, int64, uint, uint32, uint64, json.Number:
		return rankNumber
	case string:
		return rankString
	case []interface{}:
		return rankArray
	case map[string]interface{}, Document:
		return rankMap
	default:
		return rankOther
	}
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}

// Compare orders two stored values: null < bool < number < string < array < map.
// Values of the same kind compare naturally; arrays compare element-wise.
func Compare(a, b interface{}) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case rankNull:
		return 0
	case rankBool:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		default:
			return 1
		}
	case rankNumber:
		fa, fb := toFloat(a), toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	case rankString:
		return strings.Compare(a.(string), b.(string))
	case rankArray:
		aa, ab := a.([]interface{}), b.([]interface{})
		for i := 0; i < len(aa) && i < len(ab); i++ {
			if c := Compare(aa[i], ab[i]); c != 0 {
				return c
			}
		}
		switch {
		case len(aa) < len(ab):
			return -1
		case len(aa) > len(ab):
			return 1
		default:
			return 0
		}
	default:
		ja, _ := json.Marshal(a)
		jb, _ := json.Marshal(b)
		return strings.Compare(string(ja), string(jb))
	}
}

// Equal reports whether two stored values are equal.
func Equal(a, b interface{}) bool {
	return Compare(a, b) == 0
}

// Contains reports whether arr is an array holding v.
func Contains(arr, v interface{}) bool {
	items, ok := arr.([]interface{})
	if !ok {
		return false
	}
	for _, item := range items {
		if Equal(item, v) {
			return true
		}
	}
	return false
}
