package handling

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"storefront_server/database"
)

const maxPageSize = 100

var sortPattern = regexp.MustCompile(`^-?[a-z_]+$`)

// ParseFindOptions parses limit, page, depth and sort query parameters into FindOptions.
func ParseFindOptions(r *http.Request) (database.FindOptions, error) {
	query := r.URL.Query()
	opts := database.FindOptions{}

	// Early return if no query params
	if len(query) == 0 {
		return opts, nil
	}

	var err error
	if opts.Limit, err = parseBoundedInt(query.Get("limit"), "limit", 0, maxPageSize); err != nil {
		return opts, err
	}
	if opts.Page, err = parseBoundedInt(query.Get("page"), "page", 1, 0); err != nil {
		return opts, err
	}
	if opts.Depth, err = parseBoundedInt(query.Get("depth"), "depth", 0, 2); err != nil {
		return opts, err
	}

	if sort := strings.TrimSpace(query.Get("sort")); sort != "" {
		if !sortPattern.MatchString(sort) {
			return opts, fmt.Errorf("invalid sort %q", sort)
		}
		opts.Sort = sort
	}

	return opts, nil
}

// parseBoundedInt parses an optional integer. A zero upper bound means unbounded.
func parseBoundedInt(raw, name string, lower, upper int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	if val < lower {
		return 0, fmt.Errorf("%s must be at least %d", name, lower)
	}
	if upper > 0 && val > upper {
		return 0, fmt.Errorf("%s must be at most %d", name, upper)
	}
	return val, nil
}
