package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestKeyByJSONFieldAndIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":" Ops.Lead "}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.RemoteAddr = "1.2.3.4:5678"

	key := KeyByJSONFieldAndIP("username")(c)
	if key != "ops.lead|1.2.3.4" {
		t.Fatalf("key want ops.lead|1.2.3.4 got %s", key)
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		t.Fatalf("read body after key extraction failed: %v", err)
	}
	if !strings.Contains(string(body), "Ops.Lead") {
		t.Fatalf("request body should be restored after reading field")
	}
}

func TestKeyByParamAndIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	var key string
	r.POST("/hooks/:supplier", func(c *gin.Context) {
		key = KeyByParamAndIP("supplier")(c)
	})
	req := httptest.NewRequest(http.MethodPost, "/hooks/BigBuy", nil)
	req.RemoteAddr = "5.6.7.8:1000"
	r.ServeHTTP(httptest.NewRecorder(), req)

	if key != "bigbuy|5.6.7.8" {
		t.Fatalf("key want bigbuy|5.6.7.8 got %s", key)
	}
}

func TestRateLimitMiddlewareWithoutClient(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimitMiddleware(nil, RateLimitRule{Name: "ping", WindowSeconds: 60, MaxRequests: 1}, nil))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("expected handler response body, got %s", w.Body.String())
	}
}

func TestRateLimitRuleMessage(t *testing.T) {
	rule := RateLimitRule{Message: "too many login attempts, retry in %d seconds"}
	if got := rule.message(30); got != "too many login attempts, retry in 30 seconds" {
		t.Fatalf("unexpected message: %s", got)
	}
	if got := (RateLimitRule{}).message(5); got != "too many requests, retry in 5 seconds" {
		t.Fatalf("unexpected default message: %s", got)
	}
	if got := (RateLimitRule{Message: "slow down"}).message(5); got != "slow down" {
		t.Fatalf("message without placeholder should be kept, got %s", got)
	}
}

func TestCeilSeconds(t *testing.T) {
	if got := ceilSeconds(1500 * time.Millisecond); got != 2 {
		t.Fatalf("want 2 got %d", got)
	}
	if got := ceilSeconds(0); got != 1 {
		t.Fatalf("want 1 got %d", got)
	}
}
