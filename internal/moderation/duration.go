// Package moderation holds mute duration handling and the mute-expiry sweep.
package moderation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/parsascontentcorner/clanwarden/internal/models"
)

// MaxMuteDuration is the longest timeout the platform accepts
const MaxMuteDuration = 28 * 24 * time.Hour

var durationToken = regexp.MustCompile(`(\d+)([smhd])`)

var unitLength = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
}

// ParseDuration sums every "<n><unit>" token in s, e.g. "1d 12h" or "90m".
// Units are s, m, h and d, matched case-insensitively. Text between tokens is
// ignored; ok is false when s holds no token at all. A sum beyond the
// range of time.Duration saturates at math.MaxInt64.
func ParseDuration(s string) (d time.Duration, ok bool) {
	matches := durationToken.FindAllStringSubmatch(strings.ToLower(s), -1)
	if len(matches) == 0 {
		return 0, false
	}

	for _, m := range matches {
		unit := unitLength[m[2]]
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || n > int64(math.MaxInt64/unit) {
			return math.MaxInt64, true
		}
		part := time.Duration(n) * unit
		if d > math.MaxInt64-part {
			return math.MaxInt64, true
		}
		d += part
	}
	return d, true
}

// FormatDuration renders d as "1d 2h 3m 4s", skipping zero parts. Sub-second
// precision is dropped and a zero duration renders as "0s".
func FormatDuration(d time.Duration) string {
	total := int64(d / time.Second)
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}

	if len(parts) == 0 {
		return "0s"
	}
	return strings.Join(parts, " ")
}

// ParseMuteDuration parses a mute length and rejects anything the platform
// would refuse.
func ParseMuteDuration(s string) (time.Duration, error) {
	d, ok := ParseDuration(s)
	if !ok {
		return 0, &models.ValidationError{Field: "duration", Reason: "use a format like 10m, 1h or 1d"}
	}
	if d <= 0 {
		return 0, &models.ValidationError{Field: "duration", Reason: "must be longer than 0s"}
	}
	if d > MaxMuteDuration {
		return 0, &models.ValidationError{Field: "duration", Reason: "cannot exceed 28 days"}
	}
	return d, nil
}
