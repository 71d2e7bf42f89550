package extract

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// UnixTime converts seconds since the epoch, integral or fractional, to a UTC
// timestamp.
func UnixTime(raw any) (any, error) {
	seconds, err := toFloat(raw)
	if err != nil {
		return nil, fmt.Errorf("unix time: %w", err)
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return nil, fmt.Errorf("unix time: invalid value %v", seconds)
	}

	// float64(math.MaxInt64) rounds up to 2^63, so the upper bound is exclusive.
	if seconds < math.MinInt64 || seconds >= math.MaxInt64 {
		return nil, fmt.Errorf("unix time: %v out of range", seconds)
	}

	sec, frac := math.Modf(seconds)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", raw)
	}
}
