package leasemanagement

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const DefaultSessionMinutes = 180

// maxMinutes is the longest session time.Duration can represent.
var maxMinutes = float64(math.MaxInt64) / float64(time.Minute)

// ValidationError describes a session length that could not be used.
type ValidationError struct {
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid session minutes %#v: %v", e.Value, e.Reason)
}

// ParseSessionMinutes turns a caller-supplied session length into minutes.
// Numbers and numeric strings are accepted and clamped to zero from below;
// everything else is a ValidationError.
func ParseSessionMinutes(value any) (float64, error) {
	var minutes float64

	switch v := value.(type) {
	case nil:
		return 0, &ValidationError{Value: value, Reason: "missing"}
	case float64:
		minutes = v
	case float32:
		minutes = float64(v)
	case int:
		minutes = float64(v)
	case int8:
		minutes = float64(v)
	case int16:
		minutes = float64(v)
	case int32:
		minutes = float64(v)
	case int64:
		minutes = float64(v)
	case uint:
		minutes = float64(v)
	case uint8:
		minutes = float64(v)
	case uint16:
		minutes = float64(v)
	case uint32:
		minutes = float64(v)
	case uint64:
		minutes = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, &ValidationError{Value: value, Reason: "not a number"}
		}
		minutes = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, &ValidationError{Value: value, Reason: "not a number"}
		}
		minutes = parsed
	default:
		return 0, &ValidationError{Value: value, Reason: fmt.Sprintf("unsupported type %T", value)}
	}

	if math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return 0, &ValidationError{Value: value, Reason: "not finite"}
	}

	return math.Max(minutes, 0), nil
}

func coerceSessionMinutes(value any) float64 {
	minutes, err := ParseSessionMinutes(value)
	if err != nil {
		log.Debugf("Using default session of %v minutes: %v", DefaultSessionMinutes, err)
		return DefaultSessionMinutes
	}
	return minutes
}

func minutesToDuration(minutes float64) time.Duration {
	if minutes >= maxMinutes {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(minutes * float64(time.Minute))
}
