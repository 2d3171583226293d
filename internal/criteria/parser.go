// Package criteria turns list query parameters into a domain.DeviceCriteria.
package criteria

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/CaioWing/checkpoint/internal/domain"
)

const (
	filterPrefix = "filter["
	filterSuffix = "]"
)

// Parse never fails. Unknown keys are ignored, and when several filter[...]
// keys are present the first in key order is kept. Numeric parameters that
// do not parse are recorded in Malformed; call Validate before use.
func Parse(params url.Values) domain.DeviceCriteria {
	var c domain.DeviceCriteria

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := first(params[key])

		switch {
		case strings.HasPrefix(key, filterPrefix) && strings.HasSuffix(key, filterSuffix):
			field := strings.TrimSuffix(strings.TrimPrefix(key, filterPrefix), filterSuffix)
			if field == "" || c.FilterBy != nil {
				continue
			}
			c.FilterBy = &domain.FilterQuery{Field: field, Value: value}

		case key == "sort":
			if value == "" {
				continue
			}
			c.SortBy = &domain.SortQuery{Field: value, IsAscending: true}
			if strings.HasPrefix(value, "-") {
				c.SortBy.Field = strings.TrimPrefix(value, "-")
				c.SortBy.IsAscending = false
			}

		case key == "limit":
			c.Limit = parseInt(&c, key, value)

		case key == "offset":
			c.Offset = parseInt(&c, key, value)

		case key == "search":
			s := value
			c.Search = &s
		}
	}

	return c
}

// Validate is Parse followed by DeviceCriteria.Validate.
func Validate(params url.Values) (domain.DeviceCriteria, error) {
	c := Parse(params)
	if err := c.Validate(); err != nil {
		return domain.DeviceCriteria{}, err
	}
	return c, nil
}

func parseInt(c *domain.DeviceCriteria, key, value string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		c.Malformed = append(c.Malformed, key)
		return nil
	}
	return &n
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
