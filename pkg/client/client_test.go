package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/buscador-adesoes/internal/testutil"
	"github.com/Sternrassler/buscador-adesoes/pkg/ata"
	"github.com/rs/zerolog"
)

func testQuery() ata.Query {
	return ata.Query{
		Kind:     ata.KindMaterial,
		Code:     "4248",
		Start:    time.Date(2024, 10, 24, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2025, 10, 19, 0, 0, 0, 0, time.UTC),
		PageSize: 500,
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	cfg := DefaultConfig("buscador-adesoes-test/1.0")
	cfg.BaseURL = baseURL
	cfg.Timeout = 2 * time.Second

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid config",
			config: DefaultConfig("TestApp/1.0.0"),
		},
		{
			name: "empty base url",
			config: Config{
				UserAgent: "TestApp/1.0.0",
				Timeout:   time.Second,
			},
			expectError: true,
			errorMsg:    "base url is required",
		},
		{
			name: "empty user agent",
			config: Config{
				BaseURL: DefaultBaseURL,
				Timeout: time.Second,
			},
			expectError: true,
			errorMsg:    "user-agent is required",
		},
		{
			name: "zero timeout",
			config: Config{
				BaseURL:   DefaultBaseURL,
				UserAgent: "TestApp/1.0.0",
			},
			expectError: true,
			errorMsg:    "timeout must be > 0 (got 0s)",
		},
		{
			name: "negative rate limit",
			config: Config{
				BaseURL:   DefaultBaseURL,
				UserAgent: "TestApp/1.0.0",
				Timeout:   time.Second,
				RateLimit: -1,
			},
			expectError: true,
			errorMsg:    "rate_limit must be >= 0 (got -1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got nil")
					return
				}
				if tt.errorMsg != "" && err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}
			if client == nil {
				t.Error("Client is nil")
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("TestApp/1.0.0")

	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.Timeout != 15*time.Second {
		t.Errorf("Timeout = %s, want 15s", cfg.Timeout)
	}
	if cfg.RateLimit != 0 {
		t.Errorf("RateLimit = %g, want 0 (disabled)", cfg.RateLimit)
	}
	if cfg.InsecureTLS {
		t.Error("InsecureTLS should default to false")
	}
}

func TestParams(t *testing.T) {
	q := testQuery()
	v := Params(q, 3)

	expected := map[string]string{
		"pagina":                 "3",
		"tamanhoPagina":          "500",
		"dataVigenciaInicialMin": "2024-10-24",
		"dataVigenciaInicialMax": "2025-10-19",
		"codigoPdm":              "4248",
	}
	for key, want := range expected {
		if got := v.Get(key); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
	if v.Has("codigoItem") {
		t.Error("material query must not carry codigoItem")
	}

	q.Kind = ata.KindService
	v = Params(q, 1)
	if v.Get("codigoItem") != "4248" || v.Has("codigoPdm") {
		t.Errorf("service query params = %v", v)
	}
}

func TestClassifyError(t *testing.T) {
	client := &Client{logger: zerolog.Nop()}

	tests := []struct {
		name       string
		statusCode int
		err        error
		expected   ErrorClass
	}{
		{name: "network error", err: io.EOF, expected: ErrorClassNetwork},
		{name: "client error 404", statusCode: 404, expected: ErrorClassClient},
		{name: "rate limit 429", statusCode: 429, expected: ErrorClassRateLimit},
		{name: "server error 500", statusCode: 500, expected: ErrorClassServer},
		{name: "server error 503", statusCode: 503, expected: ErrorClassServer},
		{name: "success 200", statusCode: 200, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp *http.Response
			if tt.statusCode > 0 {
				resp = &http.Response{StatusCode: tt.statusCode}
			}

			if result := client.classifyError(resp, tt.err); result != tt.expected {
				t.Errorf("classifyError() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestFetchPage_Success(t *testing.T) {
	mock := testutil.NewMockARP()
	defer mock.Close()

	mock.SetPage(2, testutil.NewPageResponse([]map[string]any{
		testutil.EligibleRecord("00394452000103-1-000045/2023-000002", "160089"),
	}, 4))

	c := newTestClient(t, mock.URL())
	page, err := c.FetchPage(context.Background(), testQuery(), 2)
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}

	if page.Number != 2 {
		t.Errorf("Number = %d, want 2", page.Number)
	}
	if page.RemainingPages != 4 {
		t.Errorf("RemainingPages = %d, want 4", page.RemainingPages)
	}
	if len(page.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(page.Records))
	}

	if got := mock.LastQuery().Get("pagina"); got != "2" {
		t.Errorf("pagina = %q, want 2", got)
	}
	if got := mock.LastHeader().Get("User-Agent"); got != "buscador-adesoes-test/1.0" {
		t.Errorf("User-Agent = %q", got)
	}
}

func TestFetchPage_ServerError(t *testing.T) {
	mock := testutil.NewMockARP()
	defer mock.Close()
	mock.SetPage(1, testutil.NewServerErrorResponse())

	c := newTestClient(t, mock.URL())
	_, err := c.FetchPage(context.Background(), testQuery(), 1)
	if err == nil {
		t.Fatal("expected error for 500 response")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %T is not *APIError", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError || apiErr.ErrorClass != ErrorClassServer {
		t.Errorf("got status %d class %q", apiErr.StatusCode, apiErr.ErrorClass)
	}
}

func TestFetchPage_InvalidBody(t *testing.T) {
	mock := testutil.NewMockARP()
	defer mock.Close()
	mock.SetPage(1, testutil.MockResponse{StatusCode: http.StatusOK, Body: "<html>manutenção</html>"})

	c := newTestClient(t, mock.URL())
	_, err := c.FetchPage(context.Background(), testQuery(), 1)
	if Class(err) != ErrorClassDecode {
		t.Errorf("Class(err) = %q, want %q (err=%v)", Class(err), ErrorClassDecode, err)
	}
}

func TestFetchPage_Timeout(t *testing.T) {
	mock := testutil.NewMockARP()
	defer mock.Close()
	mock.SetPage(1, testutil.MockResponse{StatusCode: http.StatusOK, Body: testutil.PageBody(nil, 0), Delay: time.Second})

	c := newTestClient(t, mock.URL())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.FetchPage(ctx, testQuery(), 1)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if Class(err) != ErrorClassNetwork {
		t.Errorf("Class(err) = %q, want %q", Class(err), ErrorClassNetwork)
	}
	if !IsTimeout(err) {
		t.Errorf("IsTimeout(%v) = false", err)
	}
}

func TestFetchPage_RateLimited(t *testing.T) {
	mock := testutil.NewMockARP()
	defer mock.Close()

	cfg := DefaultConfig("TestApp/1.0.0")
	cfg.BaseURL = mock.URL()
	cfg.RateLimit = 20
	cfg.Burst = 1
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	start := time.Now()
	for page := 1; page <= 3; page++ {
		if _, err := c.FetchPage(context.Background(), testQuery(), page); err != nil {
			t.Fatalf("FetchPage(%d) failed: %v", page, err)
		}
	}

	// 3 requests at 20 req/s with burst 1 need at least ~100ms.
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("requests were not paced: elapsed %s", elapsed)
	}
	if mock.RequestCount() != 3 {
		t.Errorf("RequestCount = %d, want 3", mock.RequestCount())
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestSetHTTPClient_CustomTransport(t *testing.T) {
	c := newTestClient(t, DefaultBaseURL)

	var seen *http.Request
	c.SetHTTPClient(&http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		seen = req
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(`{"resultado": [], "paginasRestantes": 7}`)),
			Request:    req,
		}, nil
	})})

	page, err := c.FetchPage(context.Background(), testQuery(), 1)
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}
	if page.RemainingPages != 7 {
		t.Errorf("RemainingPages = %d, want 7", page.RemainingPages)
	}
	if seen == nil {
		t.Fatal("custom transport was not used")
	}
	if seen.URL.Host != "dadosabertos.compras.gov.br" || seen.URL.Query().Get("codigoPdm") != "4248" {
		t.Errorf("unexpected request URL %s", seen.URL)
	}
}

func TestSetHTTPClient_TransportTimeout(t *testing.T) {
	c := newTestClient(t, DefaultBaseURL)
	c.SetHTTPClient(&http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, context.DeadlineExceeded
	})})

	_, err := c.FetchPage(context.Background(), testQuery(), 1)
	if err == nil {
		t.Fatal("expected transport error")
	}
	if Class(err) != ErrorClassNetwork {
		t.Errorf("Class(err) = %q, want %q", Class(err), ErrorClassNetwork)
	}
	if !IsTimeout(err) {
		t.Errorf("IsTimeout(%v) = false", err)
	}
}
