package alerts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aicommandcenter/aicc/server/internal/store"
)

// evalCondition evaluates a rule condition string against a store entry.
//
// Supported expressions (field operator value):
//
//	healthy == false
//	healthy != true
//	latency_ms > 2000
//	uptime_pct < 95
//
// latency_ms never fires for an entry without a recorded latency; an
// unreachable service is covered by the healthy rule.
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed or the field is unknown.
func evalCondition(cond string, e store.Entry) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	switch field {
	case "healthy":
		want, err := strconv.ParseBool(rhs)
		if err != nil {
			return false, 0
		}
		v := boolValue(e.Status.Healthy)
		switch op {
		case "==":
			return e.Status.Healthy == want, v
		case "!=":
			return e.Status.Healthy != want, v
		}
		return false, 0

	case "latency_ms":
		ms, ok := e.Status.Latency()
		if !ok {
			return false, 0
		}
		threshold, err := strconv.ParseFloat(rhs, 64)
		if err != nil {
			return false, 0
		}
		v := float64(ms)
		return compareFloat(v, op, threshold), v

	case "uptime_pct":
		threshold, err := strconv.ParseFloat(rhs, 64)
		if err != nil {
			return false, 0
		}
		return compareFloat(e.UptimePct, op, threshold), e.UptimePct

	default:
		return false, 0
	}
}

// ValidCondition reports whether cond is an expression evalCondition
// understands.
func ValidCondition(cond string) error {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return fmt.Errorf("condition %q: want \"field op value\"", cond)
	}
	field, op, rhs := parts[0], parts[1], parts[2]
	switch field {
	case "healthy":
		if op != "==" && op != "!=" {
			return fmt.Errorf("condition %q: healthy supports == and !=", cond)
		}
		if _, err := strconv.ParseBool(rhs); err != nil {
			return fmt.Errorf("condition %q: want true or false", cond)
		}
	case "latency_ms", "uptime_pct":
		switch op {
		case ">", ">=", "<", "<=", "==":
		default:
			return fmt.Errorf("condition %q: unknown operator %q", cond, op)
		}
		if _, err := strconv.ParseFloat(rhs, 64); err != nil {
			return fmt.Errorf("condition %q: threshold is not a number", cond)
		}
	default:
		return fmt.Errorf("condition %q: unknown field %q", cond, field)
	}
	return nil
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}
