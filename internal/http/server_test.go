package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"housefund/internal/core"
	"housefund/internal/kv/memory"
	applog "housefund/internal/log"
	"housefund/internal/store"
)

func newTestServer(t *testing.T, target core.Money) *httptest.Server {
	t.Helper()
	logger := applog.New(applog.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	pledges := store.New(memory.New(), store.Options{
		Target:        target,
		StartDateMode: store.StartNow,
		Logger:        logger.Logger,
	})
	srv := NewServer(":0", pledges, target, 14*24*time.Hour, logger)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func postPledge(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/pledges", "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("POST /pledges: %v", err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestSubmitThenFetchPledges(t *testing.T) {
	ts := newTestServer(t, core.Money{Cents: 12000})

	resp := postPledge(t, ts, `{"name":"sunny","amount":20,"room":"kitchen","email":"s@x.com"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST status = %d, want 200", resp.StatusCode)
	}
	set := decodeBody[core.PledgeSet](t, resp)
	if len(set.Pledges) != 1 || set.Pledges[0].Name != "Sunny" || set.Pledges[0].Amount.Cents != 2000 {
		t.Fatalf("pledge set = %+v", set.Pledges)
	}

	resp, err := http.Get(ts.URL + "/pledges")
	if err != nil {
		t.Fatalf("GET /pledges: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", resp.StatusCode)
	}
	set = decodeBody[core.PledgeSet](t, resp)
	if len(set.Pledges) != 1 || set.Pledges[0].Room != core.Kitchen {
		t.Fatalf("fetched set = %+v", set.Pledges)
	}
	if set.StartDate.IsZero() {
		t.Error("startDate missing from response")
	}
}

func TestSubmitAmountAsString(t *testing.T) {
	ts := newTestServer(t, core.Money{Cents: 12000})

	resp := postPledge(t, ts, `{"name":"ana","amount":"12,50","room":"lounge","email":"a@x.com"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	set := decodeBody[core.PledgeSet](t, resp)
	if set.Pledges[0].Amount.Cents != 1250 {
		t.Errorf("amount = %d cents, want 1250", set.Pledges[0].Amount.Cents)
	}
}

func TestSubmitValidationErrors(t *testing.T) {
	ts := newTestServer(t, core.Money{Cents: 12000})

	cases := []struct {
		name string
		body string
		code string
	}{
		{"not json", `{"name":`, "invalid_body"},
		{"missing name", `{"amount":10,"room":"kitchen","email":"a@x.com"}`, "missing_field"},
		{"missing amount", `{"name":"ana","room":"kitchen","email":"a@x.com"}`, "missing_field"},
		{"null amount", `{"name":"ana","amount":null,"room":"kitchen","email":"a@x.com"}`, "missing_field"},
		{"empty string amount", `{"name":"ana","amount":"","room":"kitchen","email":"a@x.com"}`, "missing_field"},
		{"negative amount", `{"name":"ana","amount":-3,"room":"kitchen","email":"a@x.com"}`, "invalid_amount"},
		{"malformed amount", `{"name":"ana","amount":"abc","room":"kitchen","email":"a@x.com"}`, "invalid_amount"},
		{"unknown room", `{"name":"ana","amount":10,"room":"garage","email":"a@x.com"}`, "invalid_room"},
		{"bad email", `{"name":"ana","amount":10,"room":"kitchen","email":"nope"}`, "invalid_email"},
		// Presence wins over a malformed amount.
		{"missing name with bad amount", `{"amount":"abc","room":"kitchen","email":"a@x.com"}`, "missing_field"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			resp := postPledge(t, ts, c.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			got := decodeBody[errorResponse](t, resp)
			if got.Code != c.code {
				t.Errorf("code = %q, want %q", got.Code, c.code)
			}
		})
	}
}

func TestSubmitOverCapReportsRemaining(t *testing.T) {
	ts := newTestServer(t, core.Money{Cents: 10000})

	resp := postPledge(t, ts, `{"name":"ana","amount":95,"room":"bathroom","email":"a@x.com"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("seed pledge status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postPledge(t, ts, `{"name":"bob","amount":10,"room":"kitchen","email":"b@x.com"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	got := decodeBody[errorResponse](t, resp)
	if got.Code != "exceeds_remaining" {
		t.Errorf("code = %q, want exceeds_remaining", got.Code)
	}
	if got.Remaining == nil || got.Remaining.Cents != 500 {
		t.Errorf("remaining = %+v, want 5.00", got.Remaining)
	}
}

func TestResetPledges(t *testing.T) {
	ts := newTestServer(t, core.Money{Cents: 12000})

	resp := postPledge(t, ts, `{"name":"ana","amount":10,"room":"kitchen","email":"a@x.com"}`)
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/pledges", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE /pledges: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("DELETE status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp, _ = http.Get(ts.URL + "/pledges")
	set := decodeBody[core.PledgeSet](t, resp)
	if len(set.Pledges) != 0 {
		t.Errorf("pledges after reset = %d, want 0", len(set.Pledges))
	}
}

func TestSummary(t *testing.T) {
	ts := newTestServer(t, core.Money{Cents: 12000})

	for _, body := range []string{
		`{"name":"ana","amount":30,"room":"kitchen","email":"a@x.com"}`,
		`{"name":"bob","amount":20,"room":"lounge","email":"b@x.com"}`,
		`{"name":"ana","amount":10,"room":"lounge","email":"a@x.com"}`,
	} {
		resp := postPledge(t, ts, body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("seed pledge status = %d", resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp, err := http.Get(ts.URL + "/pledges/summary")
	if err != nil {
		t.Fatalf("GET /pledges/summary: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	sum := decodeBody[core.FundSummary](t, resp)

	if sum.Total.Cents != 6000 {
		t.Errorf("total = %d, want 6000", sum.Total.Cents)
	}
	if sum.Remaining.Cents != 6000 {
		t.Errorf("remaining = %d, want 6000", sum.Remaining.Cents)
	}
	if sum.Progress != 50 {
		t.Errorf("progress = %v, want 50", sum.Progress)
	}
	if got := sum.ByRoom[core.Kitchen].Cents; got != 3000 {
		t.Errorf("kitchen total = %d, want 3000", got)
	}
	if got := sum.ByRoom[core.Bathroom].Cents; got != 0 {
		t.Errorf("bathroom total = %d, want 0", got)
	}
	if len(sum.ByPerson) != 2 || sum.ByPerson[0].Name != "Ana" || sum.ByPerson[0].Total.Cents != 4000 {
		t.Errorf("person totals = %+v", sum.ByPerson)
	}
	if !sum.Deadline.Equal(sum.StartDate.Add(14 * 24 * time.Hour)) {
		t.Errorf("deadline = %v, want startDate + window", sum.Deadline)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, core.Money{Cents: 12000})

	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/pledges", strings.NewReader("{}"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT /pledges: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
	if allow := resp.Header.Get("Allow"); allow != "GET, POST, DELETE" {
		t.Errorf("Allow = %q", allow)
	}
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, core.Money{Cents: 12000})

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	ts := newTestServer(t, core.Money{Cents: 12000})

	resp, err := http.Get(ts.URL + "/pledges")
	if err != nil {
		t.Fatalf("GET /pledges: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := resp.Header.Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}
