package configbinder

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseDuration parses an ISO-8601 duration of the form produced by pandas
// Timedelta.isoformat ("P0DT1H0M0S", "PT30M", "P1W", "-PT15M"). Calendar
// units (years, months) are rejected because their length is undefined.
// Strings that do not start with 'P' are handed to time.ParseDuration.
func ParseDuration(s string) (time.Duration, error) {
	raw := strings.TrimSpace(s)
	neg := false
	body := raw
	if strings.HasPrefix(body, "-") {
		neg = true
		body = body[1:]
	} else if strings.HasPrefix(body, "+") {
		body = body[1:]
	}
	if body == "" {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if body[0] != 'P' && body[0] != 'p' {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		return d, nil
	}
	body = strings.ToUpper(body[1:])
	if body == "" {
		return 0, fmt.Errorf("invalid duration %q: empty period", s)
	}

	datePart, timePart, hasTime := strings.Cut(body, "T")
	if hasTime && timePart == "" {
		return 0, fmt.Errorf("invalid duration %q: empty time part", s)
	}

	var total float64
	add := func(part string, units map[byte]time.Duration) error {
		for part != "" {
			i := strings.IndexFunc(part, func(r rune) bool {
				return (r < '0' || r > '9') && r != '.' && r != ','
			})
			if i <= 0 {
				return fmt.Errorf("invalid duration %q", s)
			}
			num, err := strconv.ParseFloat(strings.Replace(part[:i], ",", ".", 1), 64)
			if err != nil {
				return fmt.Errorf("invalid duration %q: %w", s, err)
			}
			unit, ok := units[part[i]]
			if !ok {
				return fmt.Errorf("invalid duration %q: unsupported unit %q", s, part[i])
			}
			total += num * float64(unit)
			part = part[i+1:]
		}
		return nil
	}

	if err := add(datePart, map[byte]time.Duration{'W': 7 * 24 * time.Hour, 'D': 24 * time.Hour}); err != nil {
		return 0, err
	}
	if err := add(timePart, map[byte]time.Duration{'H': time.Hour, 'M': time.Minute, 'S': time.Second}); err != nil {
		return 0, err
	}
	if total > math.MaxInt64 {
		return 0, fmt.Errorf("invalid duration %q: overflow", s)
	}

	d := time.Duration(math.Round(total))
	if neg {
		d = -d
	}
	return d, nil
}
