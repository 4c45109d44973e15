package store

import "fmt"

// MatchScalarFilter evaluates one scalar filter in-process. Numbers compare
// numerically when both sides are numeric; everything else compares as
// strings.
func MatchScalarFilter(value interface{}, f Filter) bool {
	if lv, lok := asFloat(value); lok {
		if rv, rok := asFloat(f.Value); rok {
			return compareFloats(lv, rv, f.Op)
		}
	}
	ls := fmt.Sprintf("%v", value)
	rs := fmt.Sprintf("%v", f.Value)
	switch f.Op {
	case "==":
		return ls == rs
	case "!=":
		return ls != rs
	case "<":
		return ls < rs
	case "<=":
		return ls <= rs
	case ">":
		return ls > rs
	case ">=":
		return ls >= rs
	}
	return false
}

func compareFloats(l, r float64, op string) bool {
	switch op {
	case "==":
		return l == r
	case "!=":
		return l != r
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	case ">=":
		return l >= r
	}
	return false
}

func asFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}
