// pkg/dataset/values.go
package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var errMalformed = errors.New("malformed number")

// isNull determines if a cell should be treated as missing
func isNull(value interface{}) bool {
	if value == nil {
		return true
	}

	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return false
	}

	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "na", "n/a", "nan", "null", "nil", "none", "-":
		return true
	}
	return false
}

// toText converts a cell to a trimmed string
func toText(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case []byte:
		return strings.TrimSpace(string(v))
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// toFloat converts a cell to a number. Missing cells return nil without an
// error; cells that are present but unparseable return errMalformed.
func toFloat(value interface{}) (*float64, error) {
	if isNull(value) {
		return nil, nil
	}

	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case string, []byte:
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(toText(v), ",", ""), 64)
		if err != nil {
			return nil, errMalformed
		}
		f = parsed
	default:
		return nil, errMalformed
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, nil
	}
	return &f, nil
}

// toInt converts a cell to a non-negative whole count
func toInt(value interface{}) (*int, error) {
	f, err := toFloat(value)
	if err != nil || f == nil {
		return nil, err
	}
	if *f < 0 || *f != math.Trunc(*f) || *f > math.MaxInt32 {
		return nil, errMalformed
	}
	i := int(*f)
	return &i, nil
}
