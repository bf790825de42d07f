// Package naming derives identifiers from titles, formats dates, and maps
// workspace entities to their on-disk locations.
//
// It is the only package that knows how an initiative's state is encoded as
// a directory.
package naming

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/starford/tracker/internal/apperr"
)

// DateLayout is the fixed YYYY-MM-DD representation used for every date.
const DateLayout = "2006-01-02"

var (
	nonSlug     = regexp.MustCompile(`[^a-z0-9]+`)
	leadingDate = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})`)
)

// Slugify lowercases title, collapses every run of characters outside
// [a-z0-9] into one hyphen and trims hyphens from both ends.
func Slugify(title string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(s, "-")
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Today returns the current UTC date as YYYY-MM-DD.
func Today(c Clock) string {
	return c.Now().UTC().Format(DateLayout)
}

// ParseDate interprets arbitrary date text. Inputs without a zone are read
// as UTC.
func ParseDate(input string) (time.Time, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// NormalizeDate converts input to YYYY-MM-DD, falling back to today.
func NormalizeDate(input string, c Clock) string {
	t, ok := ParseDate(input)
	if !ok {
		return Today(c)
	}
	return t.Format(DateLayout)
}

// LeadingDate extracts the YYYY-MM-DD prefix of a session filename.
func LeadingDate(filename string) (string, bool) {
	m := leadingDate.FindStringSubmatch(filename)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ValidateName rejects names that cannot be a single path element.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: invalid name %q", apperr.ErrInvalidInput, name)
	}
	return nil
}
