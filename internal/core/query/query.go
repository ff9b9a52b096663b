// Package query parses the filter language shared by the list command, the
// TUI search box and the MCP list tool.
package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/neilberkman/threadkeep/internal/core/db"
	"github.com/neilberkman/threadkeep/internal/core/models"
)

// Filter is a parsed search query
type Filter struct {
	db.ListFilter
	Status *models.ConversationStatus
}

// Parse extracts filters from a search query string.
// Supports:
//   - status:unprocessed|partial|processed
//   - since:<date>, after:<date> - updated on or after the date
//
// Dates may be natural language ("yesterday", "last week") or ISO dates.
// Everything else is full-text search terms.
func Parse(q string, now time.Time) (Filter, error) {
	var (
		f     Filter
		terms []string
	)

	for _, token := range strings.Fields(q) {
		key, value, found := strings.Cut(token, ":")
		if !found || value == "" {
			terms = append(terms, token)
			continue
		}

		switch strings.ToLower(key) {
		case "status":
			s, err := models.ParseConversationStatus(strings.ToLower(value))
			if err != nil {
				return Filter{}, err
			}
			f.Status = &s
		case "since", "after":
			t, err := ParseDate(value, now)
			if err != nil {
				// since:last-week
				if t, err = ParseDate(strings.ReplaceAll(value, "-", " "), now); err != nil {
					return Filter{}, err
				}
			}
			f.Since = t
		default:
			terms = append(terms, token)
		}
	}

	f.Query = strings.Join(terms, " ")
	return f, nil
}

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
}

// ParseDate parses an ISO date or a natural-language date relative to now
func ParseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, format := range dateFormats {
		if t, err := time.ParseInLocation(format, s, now.Location()); err == nil {
			return t, nil
		}
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return r.Time, nil
}
