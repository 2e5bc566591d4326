package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"sync"
)

var apiVersionPrefix = regexp.MustCompile(`^/api(/v\d+)?`)

// RecordedRequest is one REST call received by the mock
type RecordedRequest struct {
	Method string
	Path   string
	Body   []byte
}

type mockResponse struct {
	status int
	body   []byte
}

// MockDiscordServer represents a mock Discord REST API for testing.
// Unconfigured routes answer 200 with an empty JSON object.
type MockDiscordServer struct {
	Server *httptest.Server

	mu        sync.Mutex
	requests  []RecordedRequest
	responses map[string]mockResponse
}

// DiscordErrorResponse represents an error response from Discord.
type DiscordErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewMockDiscordServer creates a new mock Discord API server.
func NewMockDiscordServer() *MockDiscordServer {
	mds := &MockDiscordServer{
		responses: make(map[string]mockResponse),
	}

	mds.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		path := apiVersionPrefix.ReplaceAllString(r.URL.Path, "")

		mds.mu.Lock()
		mds.requests = append(mds.requests, RecordedRequest{Method: r.Method, Path: path, Body: body})
		resp, ok := mds.responses[r.Method+" "+path]
		mds.mu.Unlock()

		if !ok {
			resp = mockResponse{status: http.StatusOK, body: []byte("{}")}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.status)
		_, _ = w.Write(resp.body)
	}))

	return mds
}

// Respond sets the reply for a route such as ("PATCH", "/guilds/1/members/2").
// The path excludes the /api/vN prefix.
func (mds *MockDiscordServer) Respond(method, path string, status int, body interface{}) {
	payload, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}

	mds.mu.Lock()
	defer mds.mu.Unlock()
	mds.responses[method+" "+path] = mockResponse{status: status, body: payload}
}

// Fail makes a route answer with a Discord error payload
func (mds *MockDiscordServer) Fail(method, path string, status int, message string) {
	mds.Respond(method, path, status, DiscordErrorResponse{Code: 50013, Message: message})
}

// Requests returns a copy of every call received so far
func (mds *MockDiscordServer) Requests() []RecordedRequest {
	mds.mu.Lock()
	defer mds.mu.Unlock()
	out := make([]RecordedRequest, len(mds.requests))
	copy(out, mds.requests)
	return out
}

// RequestsTo returns the calls received for one route
func (mds *MockDiscordServer) RequestsTo(method, path string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range mds.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// Client returns an HTTP client that sends every request to the mock,
// whatever host the caller targets.
func (mds *MockDiscordServer) Client() *http.Client {
	target, _ := url.Parse(mds.Server.URL)
	return &http.Client{Transport: &rewriteTransport{target: target, base: http.DefaultTransport}}
}

// Close shuts down the mock server.
func (mds *MockDiscordServer) Close() {
	mds.Server.Close()
}

// Reset forgets recorded calls and configured responses
func (mds *MockDiscordServer) Reset() {
	mds.mu.Lock()
	defer mds.mu.Unlock()
	mds.requests = nil
	mds.responses = make(map[string]mockResponse)
}

type rewriteTransport struct {
	target *url.URL
	base   http.RoundTripper
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = t.target.Scheme
	out.URL.Host = t.target.Host
	out.Host = t.target.Host
	return t.base.RoundTrip(out)
}
