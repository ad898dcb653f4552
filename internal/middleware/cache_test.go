package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/config"
)

func cacheTestConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:     true,
		Methods:     map[string]bool{"GET": true},
		TTL:         time.Minute,
		KeyStrategy: "route_query",
		Prefix:      "cache",
	}
}

func newCacheContext(method string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, "/v1/events", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/events")
	return c, rec
}

// A cached entry short-circuits the handler entirely and replays the
// stored status, headers and body.
func TestRedisCache_Hit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer mock.ClearExpect()

	c, rec := newCacheContext(http.MethodGet)
	key := cacheKeyFrom(cacheTestConfig(), c)

	hdr := http.Header{}
	hdr.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	payload, err := encodePayload(http.StatusOK, hdr, []byte(`[{"id":1}]`))
	require.NoError(t, err)
	mock.ExpectGet(key).SetVal(string(payload))

	called := false
	h := NewRedisCache(cacheTestConfig(), rdb)(func(c echo.Context) error {
		called = true
		return c.String(http.StatusInternalServerError, "should not run")
	})
	require.NoError(t, h(c))

	assert.False(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `[{"id":1}]`, rec.Body.String())
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A miss runs the handler and stores the captured response for the
// configured TTL.
func TestRedisCache_MissStoresResponse(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer mock.ClearExpect()

	c, rec := newCacheContext(http.MethodGet)
	key := cacheKeyFrom(cacheTestConfig(), c)

	mock.ExpectGet(key).RedisNil()
	mock.Regexp().ExpectSetEx(key, `.*`, time.Minute).SetVal("OK")

	h := NewRedisCache(cacheTestConfig(), rdb)(func(c echo.Context) error {
		return c.String(http.StatusOK, "fresh")
	})
	require.NoError(t, h(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fresh", rec.Body.String())
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Non-cacheable methods bypass Redis altogether.
func TestRedisCache_SkipsPost(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer mock.ClearExpect()

	c, rec := newCacheContext(http.MethodPost)
	h := NewRedisCache(cacheTestConfig(), rdb)(func(c echo.Context) error {
		return c.String(http.StatusCreated, "created")
	})
	require.NoError(t, h(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
