package genai

import (
	"context"
	"errors"
	"testing"
	"time"
)

// scriptedGenerator returns its results in order, then repeats the last.
type scriptedGenerator struct {
	results []scriptedResult
	calls   int
}

type scriptedResult struct {
	resp *GenerateResponse
	err  error
}

func (s *scriptedGenerator) Generate(_ context.Context, _ *GenerateRequest) (*GenerateResponse, error) {
	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++
	r := s.results[i]
	return r.resp, r.err
}

func noSleep(r Generator) (*retrier, *[]time.Duration) {
	rt := r.(*retrier)
	var slept []time.Duration
	rt.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return rt, &slept
}

func testRequest() *GenerateRequest {
	return &GenerateRequest{SystemPrompt: "be a sommelier", Query: "what wine pairs with steak"}
}

func TestRetrySucceedsAfterTransientFailure(t *testing.T) {
	gen := &scriptedGenerator{results: []scriptedResult{
		{err: &APIError{Kind: KindServer, Status: 503, Message: "unavailable"}},
		{resp: &GenerateResponse{Text: "try a malbec"}},
	}}
	rt, slept := noSleep(WithRetry(gen, RetryPolicy{MaxAttempts: 3, BaseDelay: 2 * time.Second}))

	resp, err := rt.Generate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if resp.Text != "try a malbec" {
		t.Fatalf("unexpected response %q", resp.Text)
	}
	if gen.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", gen.calls)
	}
	if len(*slept) != 1 || (*slept)[0] != 2*time.Second {
		t.Fatalf("expected one 2s backoff, got %v", *slept)
	}
}

func TestRetryDelaysDouble(t *testing.T) {
	gen := &scriptedGenerator{results: []scriptedResult{
		{err: &APIError{Kind: KindServer, Status: 500, Message: "boom"}},
	}}
	rt, slept := noSleep(WithRetry(gen, RetryPolicy{MaxAttempts: 3, BaseDelay: 2 * time.Second}))

	_, err := rt.Generate(context.Background(), testRequest())
	if err == nil {
		t.Fatalf("expected exhaustion error")
	}
	if gen.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", gen.calls)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("expected %d waits, got %v", len(want), *slept)
	}
	for i, d := range want {
		if (*slept)[i] != d {
			t.Fatalf("wait %d: expected %v, got %v", i, d, (*slept)[i])
		}
	}
}

func TestRetryExhaustionReturnsLastError(t *testing.T) {
	rateLimited := &APIError{Kind: KindRateLimited, Status: 429, Message: "slow down"}
	gen := &scriptedGenerator{results: []scriptedResult{{err: rateLimited}}}
	rt, _ := noSleep(WithRetry(gen, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}))

	_, err := rt.Generate(context.Background(), testRequest())
	if err == nil {
		t.Fatalf("expected error after exhaustion")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindRateLimited {
		t.Fatalf("expected the rate-limit error to surface, got %v", err)
	}
	if gen.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", gen.calls)
	}
}

func TestRetryHonorsRetryAfterHint(t *testing.T) {
	gen := &scriptedGenerator{results: []scriptedResult{
		{err: &APIError{Kind: KindRateLimited, Status: 429, RetryAfter: 7 * time.Second}},
		{resp: &GenerateResponse{Text: "ok"}},
	}}
	rt, slept := noSleep(WithRetry(gen, RetryPolicy{MaxAttempts: 3, BaseDelay: 2 * time.Second}))

	if _, err := rt.Generate(context.Background(), testRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*slept) != 1 || (*slept)[0] != 7*time.Second {
		t.Fatalf("expected the 7s hint to win over the computed delay, got %v", *slept)
	}
}

func TestRetryClientErrorFailsImmediately(t *testing.T) {
	gen := &scriptedGenerator{results: []scriptedResult{
		{err: &APIError{Kind: KindClient, Status: 400, Message: "bad request"}},
	}}
	rt, slept := noSleep(WithRetry(gen, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}))

	_, err := rt.Generate(context.Background(), testRequest())
	if err == nil {
		t.Fatalf("expected client error")
	}
	if gen.calls != 1 {
		t.Fatalf("client errors must not be retried, got %d attempts", gen.calls)
	}
	if len(*slept) != 0 {
		t.Fatalf("no backoff expected, got %v", *slept)
	}
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	gen := &scriptedGenerator{results: []scriptedResult{
		{err: &APIError{Kind: KindServer, Status: 503, Message: "unavailable"}},
	}}
	rt := WithRetry(gen, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}).(*retrier)
	rt.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rt.Generate(ctx, testRequest())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if gen.calls != 0 {
		t.Fatalf("no attempt should run against a cancelled context, got %d", gen.calls)
	}
}

func TestErrorKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{&APIError{Kind: KindRateLimited}, KindRateLimited},
		{&APIError{Kind: KindClient}, KindClient},
		{context.DeadlineExceeded, KindTimeout},
		{errors.New("mystery"), KindServer},
	}
	for _, tc := range cases {
		if got := ErrorKindOf(tc.err); got != tc.want {
			t.Fatalf("ErrorKindOf(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
