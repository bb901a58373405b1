package dashboard

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/trezcool/tutorhub/core"
	"github.com/trezcool/tutorhub/core/backend"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Query narrows a list screen: substring search then local pagination.
type Query struct {
	Search   string `query:"search"`
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
}

func (q Query) normalized() Query {
	q.Search = core.CleanString(q.Search)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	} else if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

// Page is one slice of a filtered list.
type Page struct {
	Items    []backend.Record `json:"items"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Pages    int              `json:"pages"`
}

// Filter keeps the records where any of fields contains search, ignoring case.
// An empty search keeps everything.
func Filter(records []backend.Record, search string, fields []string) []backend.Record {
	search = strings.TrimSpace(search)
	if search == "" {
		return records
	}
	out := make([]backend.Record, 0, len(records))
	for _, rec := range records {
		for _, fld := range fields {
			if core.ContainsFold(fieldString(rec, fld), search) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

// Paginate slices records; a page past the end is empty.
func Paginate(records []backend.Record, page, size int) Page {
	q := Query{Page: page, PageSize: size}.normalized()
	p := Page{
		Items:    []backend.Record{},
		Total:    len(records),
		Page:     q.Page,
		PageSize: q.PageSize,
		Pages:    (len(records) + q.PageSize - 1) / q.PageSize,
	}
	start := (q.Page - 1) * q.PageSize
	if start >= len(records) {
		return p
	}
	end := start + q.PageSize
	if end > len(records) {
		end = len(records)
	}
	p.Items = records[start:end]
	return p
}

// fieldString resolves a dotted path ("tutor.name") and renders the value as text.
func fieldString(rec backend.Record, path string) string {
	var cur interface{} = map[string]interface{}(rec)
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return ""
		}
		cur = m[key]
	}
	switch v := cur.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
