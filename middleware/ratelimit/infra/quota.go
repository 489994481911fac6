package infra

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Quota é "no máximo Count requests a cada Per", no formato usado em
// rate_limiter.json ("5/minute", "100 per hour", "10/5 minutes").
type Quota struct {
	Count int
	Per   time.Duration
}

var quotaRe = regexp.MustCompile(`^(\d+)\s*(?:/|per)\s*(\d+)?\s*([a-z]+)$`)

var quotaUnits = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
}

func ParseQuota(s string) (Quota, error) {
	m := quotaRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return Quota{}, fmt.Errorf("invalid quota %q: expected N/unit", s)
	}

	count, err := strconv.Atoi(m[1])
	if err != nil || count <= 0 {
		return Quota{}, fmt.Errorf("invalid quota %q: count must be > 0", s)
	}

	mult := 1
	if m[2] != "" {
		mult, err = strconv.Atoi(m[2])
		if err != nil || mult <= 0 {
			return Quota{}, fmt.Errorf("invalid quota %q: period multiplier must be > 0", s)
		}
	}

	unit, ok := quotaUnits[strings.TrimSuffix(m[3], "s")]
	if !ok {
		return Quota{}, fmt.Errorf("invalid quota %q: unknown unit %q", s, m[3])
	}

	return Quota{Count: count, Per: time.Duration(mult) * unit}, nil
}

// Limit é a taxa de reposição do token bucket (tokens por segundo).
func (q Quota) Limit() rate.Limit {
	if q.Per <= 0 || q.Count <= 0 {
		return rate.Inf
	}
	return rate.Every(q.Per / time.Duration(q.Count))
}

// Burst deixa passar a cota inteira de uma vez, como numa janela fixa.
func (q Quota) Burst() int { return q.Count }

func (q Quota) String() string {
	return fmt.Sprintf("%d/%s", q.Count, q.Per)
}
