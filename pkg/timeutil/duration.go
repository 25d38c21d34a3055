// Package timeutil parses the human time inputs of the CLI and computes daily
// trigger instants.
package timeutil

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

// offsetUnit is one token of an offset; label is its canonical spelling.
type offsetUnit struct {
	label   string
	size    time.Duration
	aliases []string
}

// Largest first, FormatOffset relies on it.
var offsetUnits = []offsetUnit{
	{"d", day, []string{"day", "days"}},
	{"h", time.Hour, []string{"hr", "hrs", "hour", "hours"}},
	{"m", time.Minute, []string{"min", "mins", "minute", "minutes"}},
	{"s", time.Second, []string{"sec", "secs", "second", "seconds"}},
}

var (
	segmentPattern = regexp.MustCompile(`^\s*(\d+)\s*([a-z]+)`)
	unitsByName    = func() map[string]time.Duration {
		m := make(map[string]time.Duration)
		for _, u := range offsetUnits {
			m[u.label] = u.size
			for _, a := range u.aliases {
				m[a] = u.size
			}
		}
		return m
	}()
)

var errEmptyOffset = errors.New("empty offset")

// ParseOffset parses a relative offset such as "90m", "2h" or "1d6h30m" and
// returns the duration with its canonical compact form.
func ParseOffset(input string) (time.Duration, string, error) {
	rest := strings.ToLower(strings.TrimSpace(input))
	if rest == "" {
		return 0, "", errEmptyOffset
	}

	var total time.Duration
	for rest != "" {
		seg := segmentPattern.FindStringSubmatch(rest)
		if seg == nil {
			return 0, "", fmt.Errorf("invalid offset segment %q", strings.TrimSpace(rest))
		}
		n, err := strconv.ParseInt(seg[1], 10, 64)
		if err != nil {
			return 0, "", fmt.Errorf("invalid offset value %q: %w", seg[1], err)
		}
		size, ok := unitsByName[seg[2]]
		if !ok {
			return 0, "", fmt.Errorf("unsupported offset unit %q", seg[2])
		}
		total += time.Duration(n) * size
		rest = rest[len(seg[0]):]
	}

	if total <= 0 {
		return 0, "", errors.New("offset must be greater than zero")
	}
	return total, FormatOffset(total), nil
}

// FormatOffset renders d with the canonical unit labels, dropping zero units
// and anything below a second.
func FormatOffset(d time.Duration) string {
	var b strings.Builder
	for _, u := range offsetUnits {
		if d < u.size {
			continue
		}
		n := d / u.size
		d -= n * u.size
		fmt.Fprintf(&b, "%d%s", n, u.label)
	}
	if b.Len() == 0 {
		return "0s"
	}
	return b.String()
}
