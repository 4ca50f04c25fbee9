package labeler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/David-Botos/qguide-analysis/pkg/runerrors"
)

func newTestClient(t *testing.T, url string, retries int) (*GenderizeClient, *[]time.Duration) {
	t.Helper()
	c, err := NewGenderizeClient(GenderizeOptions{
		BaseURL:    url,
		APIKey:     "secret",
		Timeout:    time.Second,
		Delay:      500 * time.Millisecond,
		MaxRetries: retries,
	}, nil)
	if err != nil {
		t.Fatalf("NewGenderizeClient: %v", err)
	}
	var slept []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, &slept
}

func TestGenderizeClientParsesAnswers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apikey") != "secret" {
			t.Errorf("api key not forwarded")
		}
		switch r.URL.Query().Get("name") {
		case "jane":
			fmt.Fprint(w, `{"name":"jane","gender":"female","probability":0.98,"count":1200}`)
		case "john":
			fmt.Fprint(w, `{"name":"john","gender":"male","probability":0.75,"count":5000}`)
		default:
			fmt.Fprint(w, `{"name":"zzz","gender":null,"probability":0.0,"count":0}`)
		}
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, 3)

	jane, err := c.Infer(context.Background(), "jane")
	if err != nil {
		t.Fatalf("Infer jane: %v", err)
	}
	if !jane.Found || jane.ProbabilityFemale != 0.98 || jane.Count != 1200 {
		t.Errorf("jane = %+v", jane)
	}

	john, err := c.Infer(context.Background(), "john")
	if err != nil {
		t.Fatalf("Infer john: %v", err)
	}
	if math.Abs(john.ProbabilityFemale-0.25) > 1e-9 {
		t.Errorf("john female probability = %v, want 0.25", john.ProbabilityFemale)
	}

	zzz, err := c.Infer(context.Background(), "zzz")
	if err != nil {
		t.Fatalf("Infer zzz: %v", err)
	}
	if zzz.Found {
		t.Errorf("null gender should not be found")
	}
}

func TestGenderizeClientRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"name":"jane","gender":"female","probability":0.9,"count":10}`)
	}))
	defer srv.Close()

	c, slept := newTestClient(t, srv.URL, 3)
	inf, err := c.Infer(context.Background(), "jane")
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if !inf.Found || calls != 3 {
		t.Errorf("inf = %+v after %d calls", inf, calls)
	}

	// two backoffs then the inter-request delay
	want := []time.Duration{500 * time.Millisecond, time.Second, 500 * time.Millisecond}
	if len(*slept) != len(want) {
		t.Fatalf("slept = %v, want %v", *slept, want)
	}
	for i := range want {
		if (*slept)[i] != want[i] {
			t.Errorf("slept[%d] = %v, want %v", i, (*slept)[i], want[i])
		}
	}
}

func TestGenderizeClientGivesUp(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, 3)
	_, err := c.Infer(context.Background(), "jane")

	var unavailable *runerrors.LookupUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("error = %v, want LookupUnavailableError", err)
	}
	if unavailable.Attempts != 3 || calls != 3 {
		t.Errorf("attempts = %d, calls = %d, want 3", unavailable.Attempts, calls)
	}
}

func TestGenderizeClientDoesNotRetryAuthFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c, slept := newTestClient(t, srv.URL, 3)
	_, err := c.Infer(context.Background(), "jane")

	var unavailable *runerrors.LookupUnavailableError
	if !errors.As(err, &unavailable) || unavailable.Attempts != 1 {
		t.Fatalf("error = %v, want LookupUnavailableError after 1 attempt", err)
	}
	if calls != 1 || len(*slept) != 0 {
		t.Errorf("calls = %d, slept = %v", calls, *slept)
	}
}

func TestGenderizeClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, _ := newTestClient(t, url, 2)
	_, err := c.Infer(context.Background(), "jane")

	var unavailable *runerrors.LookupUnavailableError
	if !errors.As(err, &unavailable) || unavailable.Attempts != 2 {
		t.Fatalf("error = %v, want LookupUnavailableError after 2 attempts", err)
	}
}

func TestBackoffIsCapped(t *testing.T) {
	c := &GenderizeClient{delay: time.Second}
	tests := map[int]time.Duration{1: time.Second, 2: 2 * time.Second, 4: 8 * time.Second, 5: 10 * time.Second, 40: 10 * time.Second}
	for attempt, want := range tests {
		if got := c.backoff(attempt); got != want {
			t.Errorf("backoff(%d) = %v, want %v", attempt, got, want)
		}
	}
}
