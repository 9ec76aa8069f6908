package ginserver

import (
	"fmt"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"vendibook/internal/domain/shared/daterange"
)

// dateQuery parses an optional YYYY-MM-DD query parameter.
func dateQuery(c *gin.Context, name string) (daterange.Date, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return daterange.Date{}, nil
	}
	d, err := daterange.ParseDate(raw)
	if err != nil {
		return daterange.Date{}, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}

// intQuery parses an optional integer query parameter.
func intQuery(c *gin.Context, name string) (int, error) {
	n, _, err := optionalIntQuery(c, name)
	return n, err
}

func optionalIntQuery(c *gin.Context, name string) (int, bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer", name)
	}
	return n, true, nil
}

func pathParam(c *gin.Context, name string) string {
	return strings.TrimSpace(c.Param(name))
}
