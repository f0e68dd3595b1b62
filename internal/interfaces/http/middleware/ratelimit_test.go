package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()
	current := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return current }

	ok, remaining := rl.Allow("a")
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)
	ok, remaining = rl.Allow("a")
	assert.True(t, ok)
	assert.Equal(t, 0, remaining)
	ok, _ = rl.Allow("a")
	assert.False(t, ok)

	ok, _ = rl.Allow("b")
	assert.True(t, ok, "keys are independent")

	current = current.Add(time.Minute)
	ok, _ = rl.Allow("a")
	assert.True(t, ok, "window resets")
}

func TestRateLimit_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()

	first := shared.NewActor(uuid.New(), shared.RoleMarketer)
	second := shared.NewActor(uuid.New(), shared.RoleMarketer)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if c.GetHeader("X-Actor") == "second" {
			c.Set(ActorKey, second)
		} else {
			c.Set(ActorKey, first)
		}
		c.Next()
	}, RateLimit(rl, nil))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(actor string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Actor", actor)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := send("first")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = send("first")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "RATE_LIMIT_EXCEEDED")

	assert.Equal(t, http.StatusOK, send("second").Code)
}

func TestActorOrIPKey(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "10.0.0.7:1234"
	assert.Equal(t, "ip:10.0.0.7", ActorOrIPKey(c))

	id := uuid.New()
	c.Set(ActorKey, shared.NewActor(id, shared.RoleAdmin))
	assert.Equal(t, "actor:"+id.String(), ActorOrIPKey(c))
}
