package api

import (
	"net/url"
	"strconv"
)

// Page is the normalized pagination request. The backend's endpoint families
// disagree on wire encoding (limit/offset vs page/page_size); callers work in
// limit+offset and each operation encodes for its family, preserving wire
// compatibility.
type Page struct {
	Limit  int
	Offset int
}

// DefaultPageLimit applies when a Page leaves Limit at zero.
const DefaultPageLimit = 50

func (p Page) normalized() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// encodeLimitOffset writes the limit/offset wire form.
func (p Page) encodeLimitOffset(v url.Values) {
	p = p.normalized()
	v.Set("limit", strconv.Itoa(p.Limit))
	v.Set("offset", strconv.Itoa(p.Offset))
}

// encodePageSize writes the page/page_size wire form. Pages are 1-based;
// offsets that do not fall on a page boundary round down to the page
// containing them.
func (p Page) encodePageSize(v url.Values) {
	p = p.normalized()
	v.Set("page", strconv.Itoa(p.Offset/p.Limit+1))
	v.Set("page_size", strconv.Itoa(p.Limit))
}
