package models

import "strconv"

// DefaultPageSize is used when no page size is configured.
const DefaultPageSize = 100

// LastPage is the page query value that selects the final page.
const LastPage = "last"

// MsgInvalidPage is reported for a page that does not exist.
const MsgInvalidPage = "Invalid page."

// PageRequest selects one page of a listing. Number is 1-based.
type PageRequest struct {
	Number int
	Size   int
}

// Offset is the number of records skipped before this page.
func (p PageRequest) Offset() int {
	return (p.Number - 1) * p.Size
}

// Page is one slice of an owner's listing plus the total match count.
type Page struct {
	Count   int
	Number  int
	Size    int
	Results []*Bond
}

// HasNext reports whether a later page exists.
func (p *Page) HasNext() bool {
	return p.Number*p.Size < p.Count
}

// HasPrevious reports whether an earlier page exists.
func (p *Page) HasPrevious() bool {
	return p.Number > 1
}

// PageCount is the number of pages, at least one so an empty listing still
// has a first page.
func PageCount(count, size int) int {
	if count <= 0 || size <= 0 {
		return 1
	}
	return (count + size - 1) / size
}

// ParsePageNumber reads the page query value. Empty means the first page and
// LastPage means the final one, which is resolved once the count is known
// and reported here as zero. ok is false for anything else that is not a
// positive integer.
func ParsePageNumber(value string) (number int, ok bool) {
	switch value {
	case "":
		return 1, true
	case LastPage:
		return 0, true
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// PageResponse is the paginated listing representation. Next and Previous
// are absolute URLs, or null at either end.
type PageResponse struct {
	Count    int            `json:"count"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
	Results  []BondResponse `json:"results"`
}
