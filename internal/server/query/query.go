// Package query holds the pagination and ordering rules shared by every
// metadata backend: parameter clamping, date filtering, the canonical sort
// and page slicing.
package query

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/diarykeeper/internal/common"
	"github.com/dmitrijs2005/diarykeeper/internal/server/models"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	// MaxPage keeps MaxPage*MaxPageSize within int.
	MaxPage = math.MaxInt / MaxPageSize
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// IsDate reports whether s has the yyyy-mm-dd shape.
func IsDate(s string) bool {
	return datePattern.MatchString(s)
}

// ParsePage turns a raw page parameter into a zero-based index.
// Missing, non-numeric and negative values become 0; values past MaxPage
// (including ones too large for int) become MaxPage.
func ParsePage(raw string) int {
	raw = strings.TrimSpace(raw)
	n, err := strconv.Atoi(raw)
	if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(raw, "-") {
		return MaxPage
	}
	if err != nil || n < 0 {
		return 0
	}
	if n > MaxPage {
		return MaxPage
	}
	return n
}

// ParseSize turns a raw size parameter into a page size in [1, MaxPageSize].
// Missing, non-numeric and non-positive values become DefaultPageSize.
func ParseSize(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return DefaultPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// DateRange is an inclusive [After, Before] filter on entry dates.
// Empty bounds are open.
type DateRange struct {
	After  string
	Before string
}

// NewDateRange validates both bounds and swaps them when reversed.
func NewDateRange(after, before string) (DateRange, error) {
	after, before = strings.TrimSpace(after), strings.TrimSpace(before)
	for _, v := range []string{after, before} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(common.DateLayout, v); err != nil || !IsDate(v) {
			return DateRange{}, fmt.Errorf("%w: bad date bound %q", common.ErrValidation, v)
		}
	}
	if after != "" && before != "" && after > before {
		after, before = before, after
	}
	return DateRange{After: after, Before: before}, nil
}

// Contains reports whether date falls inside the range.
func (r DateRange) Contains(date string) bool {
	if r.After != "" && date < r.After {
		return false
	}
	if r.Before != "" && date > r.Before {
		return false
	}
	return true
}

// Request is a single page request for one owner's entries.
type Request struct {
	OwnerID string
	Page    int
	Size    int
	Range   DateRange
}

// Offset is the index of the first entry on the requested page. It never
// overflows: a page beyond math.MaxInt entries saturates at math.MaxInt, and
// a negative page or size yields 0.
func (r Request) Offset() int {
	if r.Page <= 0 || r.Size <= 0 {
		return 0
	}
	if r.Page > math.MaxInt/r.Size {
		return math.MaxInt
	}
	return r.Page * r.Size
}

// Page is one slice of an owner's entries plus the total they were cut from.
type Page struct {
	Entries []*models.Entry `json:"entries"`
	Page    int             `json:"page"`
	Size    int             `json:"size"`
	Total   int             `json:"total"`
}

// Sort orders entries by date descending and breaks ties by entry id
// ascending so that pages are stable.
func Sort(entries []*models.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date > entries[j].Date
		}
		return entries[i].EntryID < entries[j].EntryID
	})
}

// Slice cuts the requested page out of an already filtered, sorted set.
func Slice(sorted []*models.Entry, req Request) *Page {
	p := &Page{Entries: []*models.Entry{}, Page: req.Page, Size: req.Size, Total: len(sorted)}

	start := req.Offset()
	if req.Size <= 0 || start >= len(sorted) {
		return p
	}
	end := len(sorted)
	if req.Size < end-start {
		end = start + req.Size
	}
	p.Entries = append(p.Entries, sorted[start:end]...)
	return p
}

// Apply filters all by owner, non-empty date and range, sorts and slices.
// The input slice is not modified.
func Apply(all []*models.Entry, req Request) *Page {
	matched := make([]*models.Entry, 0, len(all))
	for _, e := range all {
		if e == nil || e.UserID != req.OwnerID || e.Date == "" {
			continue
		}
		if !req.Range.Contains(e.Date) {
			continue
		}
		matched = append(matched, e)
	}
	Sort(matched)
	return Slice(matched, req)
}
