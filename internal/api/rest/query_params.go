package rest

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// parseID parses a positive numeric path parameter
func parseID(c *gin.Context, name string) (uint64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return id, nil
}

// parseVersion parses a version from the path or query
func parseVersion(raw, name string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return v, nil
}

// DiffQuery holds the query parameters of the diff endpoint
type DiffQuery struct {
	From int64
	To   int64
}

// ParseDiffQuery parses ?from=&to=
func ParseDiffQuery(c *gin.Context) (DiffQuery, error) {
	from, err := parseVersion(c.Query("from"), "from")
	if err != nil {
		return DiffQuery{}, err
	}
	to, err := parseVersion(c.Query("to"), "to")
	if err != nil {
		return DiffQuery{}, err
	}
	return DiffQuery{From: from, To: to}, nil
}

// Validate validates the query
func (q DiffQuery) Validate() error {
	if q.From >= q.To {
		return fmt.Errorf("from must be lower than to")
	}
	return nil
}
