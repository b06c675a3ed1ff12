package search

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Request parameters that are not criteria.
const (
	ParamSource      = "source"
	ParamSourceType  = "source_type"
	ParamBBox        = "bbox"
	ParamBBoxOverlap = "bbox_overlap"
	ParamQuery       = "q"
	ParamSearch      = "search"
	ParamPage        = "page"
	ParamSize        = "size"
	ParamPageSize    = "page_size"
	ParamDepth       = "depth"
	ParamOrdering    = "ordering"
)

var reservedParams = []string{
	ParamSource, ParamSourceType,
	ParamBBox, ParamBBoxOverlap,
	ParamQuery, ParamSearch,
	ParamPage, ParamSize, ParamPageSize,
	ParamDepth, ParamOrdering,
}

// Request is an unvalidated search request.
type Request struct {
	// Criteria maps criterion names to raw values. "__in" values are comma separated.
	Criteria map[string]string

	Source      string // evidence kind: image, text, document or empty
	BBox        string // minLon,minLat,maxLon,maxLat
	BBoxOverlap string // empty or a boolean, default true
	Text        string // free text matched against name texts

	Page     int  // 1-based, 0 means first page
	Size     int  // 0 means the configured default
	Depth    *int // nil means the configured default
	Ordering string

	Mode MatchMode
}

// RequestFromValues splits query parameters into a Request. Every parameter
// that is not reserved is treated as a criterion and validated later.
func RequestFromValues(values url.Values, mode MatchMode) (Request, error) {
	req := Request{Criteria: make(map[string]string), Mode: mode}

	var err error
	if req.Source, err = aliased(values, ParamSource, ParamSourceType); err != nil {
		return Request{}, err
	}
	if req.Text, err = aliased(values, ParamQuery, ParamSearch); err != nil {
		return Request{}, err
	}
	req.BBox = values.Get(ParamBBox)
	req.BBoxOverlap = values.Get(ParamBBoxOverlap)
	req.Ordering = values.Get(ParamOrdering)

	if v := values.Get(ParamPage); v != "" {
		if req.Page, err = positiveInt(ParamPage, v); err != nil {
			return Request{}, err
		}
	}
	size, err := aliased(values, ParamSize, ParamPageSize)
	if err != nil {
		return Request{}, err
	}
	if size != "" {
		if req.Size, err = positiveInt(ParamSize, size); err != nil {
			return Request{}, err
		}
	}
	if v := values.Get(ParamDepth); v != "" {
		d, convErr := strconv.Atoi(strings.TrimSpace(v))
		if convErr != nil {
			return Request{}, invalidValue(ParamDepth, v, "expected an integer")
		}
		req.Depth = &d
	}

	for key, vals := range values {
		if slices.Contains(reservedParams, key) || len(vals) == 0 {
			continue
		}
		if strings.HasSuffix(key, inSuffix) {
			req.Criteria[key] = strings.Join(vals, ",")
		} else {
			req.Criteria[key] = vals[0]
		}
	}

	return req, nil
}

// aliased returns the value of a parameter that has two accepted names.
func aliased(values url.Values, name, alias string) (string, error) {
	a, b := strings.TrimSpace(values.Get(name)), strings.TrimSpace(values.Get(alias))
	switch {
	case a != "" && b != "" && a != b:
		return "", invalidValue(alias, b, "conflicts with "+name)
	case a != "":
		return a, nil
	}
	return b, nil
}

func positiveInt(key, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0, invalidValue(key, raw, "expected a positive integer")
	}
	return n, nil
}

// orderColumns are the columns a result may be ordered by.
var orderColumns = []string{"id", "created_at", "updated_at"}

// parseOrdering validates an ordering such as "-created_at" and returns the
// ORDER BY clause. Ties are always broken by id.
func parseOrdering(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return placeIDColumn + " ASC", nil
	}

	dir := "ASC"
	column := raw
	if rest, ok := strings.CutPrefix(raw, "-"); ok {
		dir, column = "DESC", rest
	}
	if !slices.Contains(orderColumns, column) {
		return "", invalidValue(ParamOrdering, raw, "expected one of "+strings.Join(orderColumns, ", "))
	}
	if column == "id" {
		return placeIDColumn + " " + dir, nil
	}
	return "places." + column + " " + dir + ", " + placeIDColumn + " ASC", nil
}
