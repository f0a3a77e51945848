package refundapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/polkiloo/refundstatus/internal/refund"
)

// ErrMissingToken is returned by login and register when the server issues no token.
var ErrMissingToken = errors.New("server did not return an auth token")

// APIError carries a non-2xx answer of the refund API. Error() is the server message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string { return e.Message }

// Client talks to the refund status HTTP API and serves as refund.Source for stores.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	token      string
	logger     *slog.Logger
}

var _ refund.Source = (*Client)(nil)

// Option customizes Client.
type Option func(*Client)

// WithToken sets bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets logger used for transport diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

type statusResponse struct {
	TaxYear              int        `json:"taxYear"`
	Status               string     `json:"status"`
	LastUpdatedAt        time.Time  `json:"lastUpdatedAt"`
	ExpectedAmount       *float64   `json:"expectedAmount"`
	TrackingID           *string    `json:"trackingId"`
	AvailableAtEstimated *time.Time `json:"availableAtEstimated"`
	AIExplanation        *string    `json:"aiExplanation"`
}

type simulateRequest struct {
	TaxYear        int      `json:"taxYear"`
	Status         string   `json:"status"`
	ExpectedAmount *float64 `json:"expectedAmount,omitempty"`
	TrackingID     *string  `json:"trackingId,omitempty"`
}

type lifecycleResponse struct {
	Statuses []string `json:"statuses"`
}

type credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewClient creates API client with default timeout.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse refund api url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("refund api url must be absolute")
	}
	c := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Token returns the bearer token currently used by the client.
func (c *Client) Token() string {
	return c.token
}

// Latest fetches the refund status; taxYear of refund.ActiveTaxYear asks for the most recent one.
func (c *Client) Latest(ctx context.Context, taxYear int) (*refund.Snapshot, error) {
	query := url.Values{}
	if taxYear != refund.ActiveTaxYear {
		query.Set("taxYear", strconv.Itoa(taxYear))
	}

	var data statusResponse
	if _, err := c.do(ctx, http.MethodGet, "/api/refund/latest", query, nil, &data); err != nil {
		return nil, err
	}

	return &refund.Snapshot{
		TaxYear:              data.TaxYear,
		Status:               refund.Status(data.Status),
		LastUpdatedAt:        data.LastUpdatedAt,
		ExpectedAmount:       data.ExpectedAmount,
		TrackingID:           data.TrackingID,
		AvailableAtEstimated: data.AvailableAtEstimated,
		AIExplanation:        data.AIExplanation,
	}, nil
}

// Simulate asks the server to move the refund to req.Status.
func (c *Client) Simulate(ctx context.Context, req refund.TransitionRequest) error {
	body := simulateRequest{
		TaxYear:        req.TaxYear,
		Status:         string(req.Status),
		ExpectedAmount: req.ExpectedAmount,
		TrackingID:     req.TrackingID,
	}
	_, err := c.do(ctx, http.MethodPost, "/api/refund/simulate", nil, body, nil)
	return err
}

// Lifecycle fetches the status ordering served by the API.
func (c *Client) Lifecycle(ctx context.Context) (refund.Lifecycle, error) {
	var data lifecycleResponse
	if _, err := c.do(ctx, http.MethodGet, "/api/refund/lifecycle", nil, nil, &data); err != nil {
		return refund.Lifecycle{}, err
	}

	statuses := make([]refund.Status, 0, len(data.Statuses))
	for _, s := range data.Statuses {
		statuses = append(statuses, refund.Status(s))
	}
	return refund.NewLifecycle(statuses...)
}

// Logout asks the server to end the session and forgets the token.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/user/logout", nil, nil, nil)
	c.token = ""
	return err
}

// Register creates an account and keeps the issued token on the client.
func (c *Client) Register(ctx context.Context, login, password string) (string, error) {
	return c.authenticate(ctx, "/api/user/register", login, password)
}

// Login authenticates and keeps the issued token on the client.
func (c *Client) Login(ctx context.Context, login, password string) (string, error) {
	return c.authenticate(ctx, "/api/user/login", login, password)
}

func (c *Client) authenticate(ctx context.Context, endpoint, login, password string) (string, error) {
	header, err := c.do(ctx, http.MethodPost, endpoint, nil, credentials{Login: login, Password: password}, nil)
	if err != nil {
		return "", err
	}

	auth := header.Get("Authorization")
	if !strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(auth[7:])
	if token == "" {
		return "", ErrMissingToken
	}
	c.token = token
	return token, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, in, out any) (http.Header, error) {
	u := *c.baseURL
	u.Path = path.Join(u.Path, endpoint)
	u.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp, raw)}
		c.logger.Debug("refund api request failed",
			slog.String("method", method),
			slog.String("path", endpoint),
			slog.Int("status", resp.StatusCode),
		)
		return nil, apiErr
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("decode %s response: %w", endpoint, err)
		}
	}
	return resp.Header, nil
}

func errorMessage(resp *http.Response, raw []byte) string {
	var data errorResponse
	if err := json.Unmarshal(raw, &data); err == nil && data.Error != "" {
		return data.Error
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}
	return resp.Status
}
