package handler // handler defines http handlers

import (
	"context" // detached contexts for post-response work
	"errors"  // sentinel values used in getUserID
	"strconv" // string-to-number conversions
	"time"    // notification publish timeout

	"github.com/labstack/echo/v4" // echo defines request context types
)

// getUserID extracts the user_id injected by the JWT middleware and
// converts it to uint64.  JWT numeric claims decode as float64, so a few
// representations must be accepted.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// notifyContext returns a short detached context for fire-and-forget
// notification publishing.  The request context cannot be used because
// it is cancelled as soon as the response is written.
func notifyContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
