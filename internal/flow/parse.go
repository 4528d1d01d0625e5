package flow

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseValue parses flow figures such as "1.2K", "3M", "1,500" or "$2.5M"
// ⭐ SSOT: 거래량/프리미엄 숫자 파싱은 여기서만
func ParseValue(s string) (float64, error) {
	v := strings.TrimSpace(s)
	v = strings.ReplaceAll(v, ",", "")
	v = strings.TrimPrefix(v, "$")
	if v == "" {
		return 0, fmt.Errorf("empty value")
	}

	mult := 1.0
	switch v[len(v)-1] {
	case 'K', 'k':
		mult = 1e3
	case 'M', 'm':
		mult = 1e6
	case 'B', 'b':
		mult = 1e9
	}
	if mult != 1 {
		v = strings.TrimSpace(v[:len(v)-1])
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	f *= mult
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("parse %q: not a finite number", s)
	}
	return f, nil
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006 15:04",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
}

// ParseTime parses a flow timestamp. Zone-less values are read as UTC.
func ParseTime(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
