package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// ScanCall is a scan request received by the fake detector
type ScanCall struct {
	ScanID        string
	Authorization string
	Text          string
	Sandbox       bool
}

// CopyleaksServer fakes both the identity and the detector endpoints on one listener
// Responses may be changed between requests; call counters are safe for concurrent use
type CopyleaksServer struct {
	URL string

	mu           sync.Mutex
	loginStatus  int
	loginBody    string
	scanStatus   int
	scanBody     string
	scanDelay    time.Duration
	scans        []ScanCall
	loginCalls   atomic.Int32
	scanCalls    atomic.Int32
	tokenCounter atomic.Int32
}

// StartCopyleaksServer starts a fake that logs in successfully with a token valid for 48 hours
// and answers every scan with the given AI score
func StartCopyleaksServer(t *testing.T) *CopyleaksServer {
	t.Helper()

	s := &CopyleaksServer{
		loginStatus: http.StatusOK,
		scanStatus:  http.StatusOK,
		scanBody:    `{"summary": {"human": 0.2, "ai": 0.8}}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v3/account/login/api", func(w http.ResponseWriter, r *http.Request) {
		s.loginCalls.Add(1)

		var body struct {
			Email string `json:"email"`
			Key   string `json:"key"`
		}
		err := json.NewDecoder(r.Body).Decode(&body)
		assert.NoError(t, err, "login body must be JSON")

		s.mu.Lock()
		status, respBody := s.loginStatus, s.loginBody
		s.mu.Unlock()

		if respBody == "" {
			n := s.tokenCounter.Add(1)
			now := time.Now().UTC()
			respBody = LoginBody("token-"+strconv.Itoa(int(n)), now, now.Add(48*time.Hour))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, respBody)
	})
	mux.HandleFunc("POST /v2/writer-detector/{scanID}/check", func(w http.ResponseWriter, r *http.Request) {
		s.scanCalls.Add(1)

		var body struct {
			Text    string `json:"text"`
			Sandbox bool   `json:"sandbox"`
		}
		err := json.NewDecoder(r.Body).Decode(&body)
		assert.NoError(t, err, "scan body must be JSON")

		s.mu.Lock()
		s.scans = append(s.scans, ScanCall{
			ScanID:        r.PathValue("scanID"),
			Authorization: r.Header.Get("Authorization"),
			Text:          body.Text,
			Sandbox:       body.Sandbox,
		})
		status, respBody, delay := s.scanStatus, s.scanBody, s.scanDelay
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, respBody)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	s.URL = srv.URL

	return s
}

// LoginBody renders the identity service login response
func LoginBody(token string, issued time.Time, expires time.Time) string {
	b, _ := json.Marshal(map[string]string{
		"access_token": token,
		".issued":      issued.UTC().Format(time.RFC3339Nano),
		".expires":     expires.UTC().Format(time.RFC3339Nano),
	})
	return string(b)
}

func (s *CopyleaksServer) SetLogin(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginStatus, s.loginBody = status, body
}

func (s *CopyleaksServer) SetScan(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanStatus, s.scanBody = status, body
}

func (s *CopyleaksServer) SetScanDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanDelay = d
}

func (s *CopyleaksServer) LoginCalls() int {
	return int(s.loginCalls.Load())
}

func (s *CopyleaksServer) ScanCalls() int {
	return int(s.scanCalls.Load())
}

// Scans returns a copy of received scan requests in arrival order
func (s *CopyleaksServer) Scans() []ScanCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ScanCall(nil), s.scans...)
}

// Text returns a text of n characters long
func Text(n int) string {
	return strings.Repeat("a", n)
}
