package testutils

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// JamfToken is the access token handed out by JamfServer.
const JamfToken = "test-token"

// JamfRequest is an authenticated request received by JamfServer.
type JamfRequest struct {
	Method      string
	Path        string
	ContentType string
	Body        string
}

type jamfResponse struct {
	status int
	body   string
}

// JamfServer is a fake Jamf Pro tenant. It grants a token to a single API client and records
// every authenticated request.
type JamfServer struct {
	*httptest.Server

	clientID     string
	clientSecret string

	mu            sync.Mutex
	responses     map[string]jamfResponse
	tokenRequests int
	requests      []JamfRequest
}

// NewJamfServer starts a JamfServer accepting clientID and clientSecret, closed at the end of the test.
// Unless set with Respond, every path answers 200 with an empty body.
func NewJamfServer(t *testing.T, clientID, clientSecret string) *JamfServer {
	t.Helper()

	s := &JamfServer{
		clientID:     clientID,
		clientSecret: clientSecret,
		responses:    make(map[string]jamfResponse),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)

	return s
}

// Respond sets the status and body answered on path.
func (s *JamfServer) Respond(path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.responses[path] = jamfResponse{status: status, body: body}
}

// Requests returns the authenticated requests received so far.
func (s *JamfServer) Requests() []JamfRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]JamfRequest(nil), s.requests...)
}

// TokenRequests returns the number of token requests received so far, granted or not.
func (s *JamfServer) TokenRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tokenRequests
}

func (s *JamfServer) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/oauth/token" {
		s.serveToken(w, r)
		return
	}

	if r.Header.Get("Authorization") != "Bearer "+JamfToken {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.requests = append(s.requests, JamfRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		ContentType: r.Header.Get("Content-Type"),
		Body:        string(body),
	})
	resp, ok := s.responses[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		resp.status = http.StatusOK
	}
	w.WriteHeader(resp.status)
	_, _ = w.Write([]byte(resp.body))
}

func (s *JamfServer) serveToken(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.tokenRequests++
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := r.ParseForm(); err != nil ||
		r.PostForm.Get("grant_type") != "client_credentials" ||
		r.PostForm.Get("client_id") != s.clientID ||
		r.PostForm.Get("client_secret") != s.clientSecret {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
		return
	}
	_, _ = w.Write([]byte(`{"access_token":"` + JamfToken + `","token_type":"Bearer","expires_in":1200}`))
}
