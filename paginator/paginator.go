// Package paginator splits ordered sequences into fixed-size pages.
//
// Page numbers are 1-based. A missing or non-numeric page number yields the
// first page; a number outside the valid range yields the last page.
package paginator

import (
	"errors"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// Page is one slice of a paginated sequence.
type Page[T any] struct {
	Items    []T
	Number   int
	NumPages int
	Count    int
	PerPage  int
}

func (p *Page[T]) HasNext() bool     { return p.Number < p.NumPages }
func (p *Page[T]) HasPrevious() bool { return p.Number > 1 }
func (p *Page[T]) HasOtherPages() bool {
	return p.HasNext() || p.HasPrevious()
}
func (p *Page[T]) NextPageNumber() int     { return p.Number + 1 }
func (p *Page[T]) PreviousPageNumber() int { return p.Number - 1 }

// StartIndex is the 1-based position of the first item on the page, 0 for an empty page.
func (p *Page[T]) StartIndex() int {
	if p.Count == 0 {
		return 0
	}
	return (p.Number-1)*p.PerPage + 1
}

// PageRange lists every page number, for rendering page links.
func (p *Page[T]) PageRange() []int {
	pages := make([]int, p.NumPages)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}

// NumPages is ceil(count/perPage). An empty sequence still has one (empty) page.
func NumPages(count, perPage int) int {
	if count <= 0 || perPage <= 0 {
		return 1
	}
	return (count + perPage - 1) / perPage
}

// Number resolves a raw page parameter against numPages.
func Number(raw string, numPages int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if errors.Is(err, strconv.ErrRange) {
		return numPages
	}
	if err != nil {
		return 1
	}
	if n < 1 || n > numPages {
		return numPages
	}
	return n
}

// bounds returns the resolved page number and the item offset for it.
func bounds(count, perPage int, raw string) (number, numPages, offset int) {
	numPages = NumPages(count, perPage)
	number = Number(raw, numPages)
	return number, numPages, (number - 1) * perPage
}

// Slice paginates an in-memory sequence.
func Slice[T any](items []T, perPage int, raw string) *Page[T] {
	count := len(items)
	number, numPages, offset := bounds(count, perPage, raw)

	end := offset + perPage
	if end > count {
		end = count
	}
	var pageItems []T
	if offset < count {
		pageItems = items[offset:end]
	}

	return &Page[T]{
		Items:    pageItems,
		Number:   number,
		NumPages: numPages,
		Count:    count,
		PerPage:  perPage,
	}
}

// Query paginates a GORM query with COUNT followed by LIMIT/OFFSET.
// The query must carry its own ordering. Associations named in preloads are
// loaded for the page items only.
func Query[T any](query *gorm.DB, perPage int, raw string, preloads ...string) (*Page[T], error) {
	var count int64
	if err := query.Session(&gorm.Session{}).Model(new(T)).Count(&count).Error; err != nil {
		return nil, err
	}

	number, numPages, offset := bounds(int(count), perPage, raw)

	find := query.Session(&gorm.Session{})
	for _, name := range preloads {
		find = find.Preload(name)
	}

	var items []T
	if err := find.Offset(offset).Limit(perPage).Find(&items).Error; err != nil {
		return nil, err
	}

	return &Page[T]{
		Items:    items,
		Number:   number,
		NumPages: numPages,
		Count:    int(count),
		PerPage:  perPage,
	}, nil
}
