// Package googletest provides an in-process stand-in for Google's token and
// userinfo endpoints.
package googletest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
)

type Server struct {
	server *httptest.Server

	mu            sync.Mutex
	codes         map[string]string
	profiles      map[string]map[string]any
	tokenRequests []url.Values
	userInfoAuth  []string
}

func NewServer() *Server {
	s := &Server{
		codes:    make(map[string]string),
		profiles: make(map[string]map[string]any),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", s.handleToken)
	mux.HandleFunc("/userinfo", s.handleUserInfo)

	s.server = httptest.NewServer(mux)
	return s
}

func (s *Server) URL() string         { return s.server.URL }
func (s *Server) TokenURL() string    { return s.server.URL + "/token" }
func (s *Server) UserInfoURL() string { return s.server.URL + "/userinfo" }
func (s *Server) AuthURL() string     { return s.server.URL + "/auth" }
func (s *Server) Close()              { s.server.Close() }

// AddCode makes code exchangeable for accessToken. An empty accessToken
// makes the token endpoint answer with an empty JSON object.
func (s *Server) AddCode(code, accessToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code] = accessToken
}

// AddProfile sets the userinfo payload returned for accessToken.
func (s *Server) AddProfile(accessToken string, profile map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[accessToken] = profile
}

// TokenRequests returns the form bodies received by the token endpoint.
func (s *Server) TokenRequests() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.tokenRequests...)
}

// UserInfoAuthHeaders returns the Authorization headers received by the
// userinfo endpoint.
func (s *Server) UserInfoAuthHeaders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.userInfoAuth...)
}

// Calls is the total number of requests served.
func (s *Server) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokenRequests) + len(s.userInfoAuth)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.tokenRequests = append(s.tokenRequests, r.PostForm)
	accessToken, ok := s.codes[r.PostForm.Get("code")]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok || r.PostForm.Get("grant_type") != "authorization_code" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
		return
	}
	if accessToken == "" {
		w.Write([]byte(`{}`))
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"access_token": accessToken,
		"expires_in":   3599,
		"token_type":   "Bearer",
		"scope":        "openid email profile",
	})
}

func (s *Server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	auth := r.Header.Get("Authorization")

	s.mu.Lock()
	s.userInfoAuth = append(s.userInfoAuth, auth)
	profile, ok := s.profiles[strings.TrimPrefix(auth, "Bearer ")]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !strings.HasPrefix(auth, "Bearer ") || !ok {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid_token"})
		return
	}

	json.NewEncoder(w).Encode(profile)
}
