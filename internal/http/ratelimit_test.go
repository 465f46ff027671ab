package http

import (
	"bytes"
	"net/http"
	"testing"

	"housefund/internal/core"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	for i := 0; i < 60; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d denied, want first 60 allowed", i+1)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Error("request 61 allowed, want denied")
	}

	// Limits are per client.
	if !rl.allow("10.0.0.2") {
		t.Error("different client denied")
	}

	// stop is safe to call twice.
	rl.stop()
}

func TestRateLimitedSubmissions(t *testing.T) {
	ts := newTestServer(t, core.Money{Cents: 1000000})
	body := []byte(`{"name":"ana","amount":"0.01","room":"kitchen","email":"a@x.com"}`)

	post := func() *http.Response {
		t.Helper()
		req, _ := http.NewRequest(http.MethodPost, ts.URL+"/pledges", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("POST /pledges: %v", err)
		}
		resp.Body.Close()
		return resp
	}

	for i := 0; i < 60; i++ {
		if resp := post(); resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, resp.StatusCode)
		}
	}

	resp := post()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("request 61 status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", resp.Header.Get("Retry-After"))
	}

	// Reads are not rate limited.
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/pledges", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	getResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /pledges: %v", err)
	}
	getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Errorf("GET status after limit = %d, want 200", getResp.StatusCode)
	}
}
