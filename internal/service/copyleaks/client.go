package copyleaks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nkiryanov/aicheck/internal/logger"
	"github.com/nkiryanov/aicheck/internal/models"
)

const (
	DefaultIdentityURL = "https://id.copyleaks.com"
	DefaultAPIURL      = "https://api.copyleaks.com"
	defaultTimeout     = 30 * time.Second

	// Error code the detector puts in the body when the account is out of credits
	ErrorCodeNotEnoughCredits = "not-enough-credits"

	// Longest response body kept for diagnostics
	maxDiagnosticBody = 1024
)

type Config struct {
	// Base URLs of identity and API services
	// If not set than defaults are used
	IdentityURL string
	APIURL      string

	// Timeout of every outbound call
	Timeout time.Duration
}

// LoginResponse is the identity service answer on successful login
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	Issued      time.Time `json:".issued"`
	Expires     time.Time `json:".expires"`
}

type Client struct {
	identityURL string
	apiURL      string
	timeout     time.Duration

	client *http.Client
	logger logger.Logger
}

func NewClient(cfg Config, l logger.Logger) *Client {
	if cfg.IdentityURL == "" {
		cfg.IdentityURL = DefaultIdentityURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Client{
		identityURL: strings.TrimRight(cfg.IdentityURL, "/"),
		apiURL:      strings.TrimRight(cfg.APIURL, "/"),
		timeout:     cfg.Timeout,
		client:      &http.Client{},
		logger:      l.With("component", "copyleaks"),
	}
}

// Login exchanges account email and API key for an access token
func (c *Client) Login(ctx context.Context, email string, key string) (LoginResponse, error) {
	var login LoginResponse

	payload := struct {
		Email string `json:"email"`
		Key   string `json:"key"`
	}{Email: email, Key: key}

	resp, err := c.postJSON(ctx, c.identityURL+"/v3/account/login/api", "", payload)
	if err != nil {
		return login, err
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := readDiagnostic(resp.Body)
		c.logger.Warn("Login rejected", "status_code", resp.StatusCode, "body", body)
		return login, NewError(CodeLoginRejected, resp.StatusCode, fmt.Errorf("login rejected: %s", body))
	}

	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		return login, NewError(CodeDecode, resp.StatusCode, fmt.Errorf("failed to decode login response: %w", err))
	}
	if login.AccessToken == "" {
		return login, NewError(CodeDecode, resp.StatusCode, fmt.Errorf("login response has no access token"))
	}

	c.logger.Debug("Logged in", "issued", login.Issued, "expires", login.Expires)
	return login, nil
}

type scanPayload struct {
	Text    string `json:"text"`
	Sandbox bool   `json:"sandbox"`
}

type scanResponse struct {
	Summary *struct {
		AI    *decimal.Decimal `json:"ai"`
		Human *decimal.Decimal `json:"human"`
	} `json:"summary"`
	ErrorCode string `json:"ErrorCode"`
}

// Check submits the text to the writer detector
// Service level failures (like missing credits) come back in ScanResult.ErrorCode, not as error
func (c *Client) Check(ctx context.Context, token string, req models.ScanRequest) (models.ScanResult, error) {
	var result models.ScanResult

	url := fmt.Sprintf("%s/v2/writer-detector/%s/check", c.apiURL, req.ScanID)
	resp, err := c.postJSON(ctx, url, token, scanPayload{Text: req.Text, Sandbox: req.Sandbox})
	if err != nil {
		return result, err
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Warn("Access token rejected", "scan_id", req.ScanID)
		return result, NewError(CodeUnauthorized, resp.StatusCode, fmt.Errorf("access token rejected for scan %s", req.ScanID))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, NewError(CodeTransport, resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	// JSON that is not an object carries no known fields: an empty result
	var sr scanResponse
	var typeErr *json.UnmarshalTypeError
	if err := json.Unmarshal(raw, &sr); errors.As(err, &typeErr) && typeErr.Field == "" {
		c.logger.Warn("Scan response is not an object", "status_code", resp.StatusCode, "type", typeErr.Value)
		sr = scanResponse{}
	} else if err != nil {
		c.logger.Warn("Failed to decode scan response", "status_code", resp.StatusCode, "error", err)
		return result, NewError(CodeDecode, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("Scan failed", "status_code", resp.StatusCode, "scan_id", req.ScanID, "error_code", sr.ErrorCode)
	}

	result.ErrorCode = sr.ErrorCode
	if sr.Summary != nil && sr.Summary.AI != nil {
		result.Summary = &models.ScanSummary{AI: *sr.Summary.AI}
		if sr.Summary.Human != nil {
			result.Summary.Human = *sr.Summary.Human
		}
	}

	c.logger.Debug("Scan response", "scan_id", req.ScanID, "status_code", resp.StatusCode, "has_summary", result.Summary != nil)
	return result, nil
}

func (c *Client) postJSON(ctx context.Context, url string, token string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, NewError(CodeUnknown, 0, fmt.Errorf("failed to encode request: %w", err))
	}

	// Cancel is bound to response body close, so the timeout covers reading the body too
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, NewError(CodeUnknown, 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		cancel()
		return nil, NewError(CodeTransport, 0, fmt.Errorf("failed to send request: %w", err))
	}

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func readDiagnostic(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxDiagnosticBody))
	return strings.TrimSpace(string(b))
}
