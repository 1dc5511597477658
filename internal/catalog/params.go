package catalog

import (
	"sort"
	"strconv"
)

// DefaultPageSize is the record count requested when size is not given.
const DefaultPageSize = 100000

// Query holds the inputs for one report request. Empty filters are dropped.
type Query struct {
	From string
	// To defaults to From.
	To      string
	Size    int
	Filters map[string]string
}

// BuildParams renders q for ep as {dateKey}From/{dateKey}To plus filters.
// Filters the endpoint does not accept are removed and returned as skipped,
// sorted by name.
func (c *Catalog) BuildParams(ep Endpoint, q Query) (params map[string]string, skipped []string) {
	params = map[string]string{
		ep.DateKey + "From": q.From,
	}
	to := q.To
	if to == "" {
		to = q.From
	}
	params[ep.DateKey+"To"] = to
	size := q.Size
	if size <= 0 {
		size = DefaultPageSize
	}
	params["size"] = strconv.Itoa(size)
	for k, v := range q.Filters {
		if v != "" {
			params[k] = v
		}
	}

	valid := make(map[string]bool, len(ep.ValidParameters))
	for _, p := range ep.ValidParameters {
		valid[p] = true
	}
	for k := range params {
		if !valid[k] && !c.alwaysValid[k] {
			skipped = append(skipped, k)
			delete(params, k)
		}
	}
	sort.Strings(skipped)
	return params, skipped
}
