// Package testutil provides testing utilities for the ARP client and search.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines how the mock answers one page.
type MockResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration

	// Release, when set, holds the response until it is closed.
	Release <-chan struct{}
}

// MockARP is a configurable mock of the ARP item endpoint. Pages are
// selected by the "pagina" query parameter.
type MockARP struct {
	server *httptest.Server
	mu     sync.Mutex
	pages  map[int]MockResponse

	requestCount int
	inFlight     int
	maxInFlight  int
	lastQuery    url.Values
	lastHeader   http.Header
}

// NewMockARP creates and starts a new mock server.
func NewMockARP() *MockARP {
	mock := &MockARP{
		pages: make(map[int]MockResponse),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the mock endpoint URL.
func (m *MockARP) URL() string {
	return m.server.URL + "/modulo-arp/2_consultarARPItem"
}

// Close shuts down the mock server.
func (m *MockARP) Close() {
	m.server.Close()
}

// SetPage configures the response for a page number.
func (m *MockARP) SetPage(page int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[page] = resp
}

// RequestCount returns the number of requests served.
func (m *MockARP) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount
}

// MaxInFlight returns the highest number of concurrent requests observed.
func (m *MockARP) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

// LastQuery returns the query string of the most recent request.
func (m *MockARP) LastQuery() url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastQuery
}

// LastHeader returns the headers of the most recent request.
func (m *MockARP) LastHeader() http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastHeader
}

func (m *MockARP) handle(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("pagina"))

	m.mu.Lock()
	m.requestCount++
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.lastQuery = r.URL.Query()
	m.lastHeader = r.Header.Clone()
	resp, ok := m.pages[page]
	m.mu.Unlock()

	// The request leaves the in-flight count before the response is written,
	// so a client that reacts to the response never sees it counted.
	var once sync.Once
	done := func() {
		once.Do(func() {
			m.mu.Lock()
			m.inFlight--
			m.mu.Unlock()
		})
	}
	defer done()

	if !ok {
		resp = NewPageResponse(nil, 0)
	}

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}
	if resp.Release != nil {
		select {
		case <-resp.Release:
		case <-r.Context().Done():
			return
		}
	}

	done()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// PageBody renders an ARP page payload.
func PageBody(records []map[string]any, remaining int) string {
	if records == nil {
		records = []map[string]any{}
	}
	data, err := json.Marshal(map[string]any{
		"resultado":        records,
		"paginasRestantes": remaining,
	})
	if err != nil {
		panic(err)
	}
	return string(data)
}

// NewPageResponse creates a 200 OK page response.
func NewPageResponse(records []map[string]any, remaining int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       PageBody(records, remaining),
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
	}
}

// EligibleRecord builds a raw record that passes the adhesion check.
func EligibleRecord(controlNumber, uasg string) map[string]any {
	return map[string]any{
		"maximoAdesao":              100,
		"numeroAtaRegistroPreco":    "0001/2025",
		"nomeUnidadeGerenciadora":   "UNIDADE " + uasg,
		"nomeRazaoSocialFornecedor": "FORNECEDOR LTDA",
		"numeroControlePncpAta":     controlNumber,
		"codigoUnidadeGerenciadora": uasg,
	}
}
