// Package httpapi is the REST client of the banking backend.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/Yess-prog/PI-myBank-app/internal/domain"
)

const (
	// maxErrorBody caps how much of an error response is kept for display
	maxErrorBody = 4 << 10

	correlationHeader = "X-Correlation-ID"
)

// Options tunes a Client. Zero values select the defaults.
type Options struct {
	// LookupTimeout bounds each read-only call and login
	LookupTimeout time.Duration
	// BreakerMaxFailures consecutive lookup failures open the breaker
	BreakerMaxFailures uint32
	// BreakerOpenTimeout is how long the breaker stays open
	BreakerOpenTimeout time.Duration
	HTTPClient         *http.Client
	Logger             *zap.Logger
}

// Client calls the REST backend. It implements domain.BankAPI.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	lookupTimeout time.Duration
	breaker       *gobreaker.CircuitBreaker
	logger        *zap.Logger
}

// NewClient creates a new REST client
func NewClient(baseURL string, opts Options) *Client {
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 30 * time.Second
	}
	if opts.BreakerMaxFailures == 0 {
		opts.BreakerMaxFailures = 5
	}
	if opts.BreakerOpenTimeout <= 0 {
		opts.BreakerOpenTimeout = 30 * time.Second
	}
	if opts.HTTPClient == nil {
		// no client-wide timeout: the mutating call is bounded by its context
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	c := &Client{
		baseURL:       strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient:    opts.HTTPClient,
		lookupTimeout: opts.LookupTimeout,
		logger:        opts.Logger.With(zap.String("component", "httpapi")),
	}

	maxFailures := opts.BreakerMaxFailures
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "bank-lookups",
		MaxRequests: 1,
		Timeout:     opts.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: lookupSucceeded,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return c
}

// lookupSucceeded counts client errors as successes; only transport and 5xx failures trip the breaker
func lookupSucceeded(err error) bool {
	if err == nil {
		return true
	}
	apiErr, ok := domain.AsAPIError(err)
	return ok && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
}

type accountDTO struct {
	ID       flexID          `json:"id"`
	UserID   flexID          `json:"userId"`
	RIB      string          `json:"rib"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

type userDTO struct {
	ID        flexID `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type transferBody struct {
	FromAccountID any         `json:"fromAccountId"`
	ToRIB         string      `json:"toRib"`
	Amount        json.Number `json:"amount"`
	Description   string      `json:"description"`
}

type transferRequestBody struct {
	ToUserID      any         `json:"toUserId"`
	FromAccountID any         `json:"fromAccountId"`
	ToAccountID   any         `json:"toAccountId"`
	Amount        json.Number `json:"amount"`
	Description   string      `json:"description"`
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message   string `json:"message"`
	UserID    flexID `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Token     string `json:"token"`
}

// ListOwnAccounts calls GET /api/accounts
func (c *Client) ListOwnAccounts(ctx context.Context, token domain.Token) ([]domain.Account, error) {
	var out []accountDTO
	if err := c.lookup(ctx, "ListOwnAccounts", token, "/api/accounts", &out); err != nil {
		return nil, err
	}
	return toAccounts(out), nil
}

// ListAccountsForUser calls GET /api/accounts/user/{userId}
func (c *Client) ListAccountsForUser(ctx context.Context, token domain.Token, userID string) ([]domain.Account, error) {
	var out []accountDTO
	path := "/api/accounts/user/" + url.PathEscape(userID)
	if err := c.lookup(ctx, "ListAccountsForUser", token, path, &out); err != nil {
		return nil, err
	}
	return toAccounts(out), nil
}

// FindByEmail calls GET /api/users/email/{email}
func (c *Client) FindByEmail(ctx context.Context, token domain.Token, email string) (*domain.User, error) {
	var out *userDTO
	path := "/api/users/email/" + url.PathEscape(email)
	if err := c.lookup(ctx, "FindByEmail", token, path, &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, nil
	}
	return &domain.User{
		ID:        string(out.ID),
		FirstName: out.FirstName,
		LastName:  out.LastName,
		Email:     out.Email,
	}, nil
}

// Transfer calls POST /api/transfers. It is never retried.
func (c *Client) Transfer(ctx context.Context, token domain.Token, cmd domain.TransferCommand) (*domain.Receipt, error) {
	body := transferBody{
		FromAccountID: idValue(cmd.FromAccountID),
		ToRIB:         cmd.ToRoutingID,
		Amount:        json.Number(cmd.Amount.String()),
		Description:   cmd.Description,
	}
	return c.submit(ctx, "Transfer", token, "/api/transfers", body)
}

// CreateRequest calls POST /api/transfer-requests. It is never retried.
func (c *Client) CreateRequest(ctx context.Context, token domain.Token, cmd domain.TransferRequestCommand) (*domain.Receipt, error) {
	body := transferRequestBody{
		ToUserID:      idValue(cmd.ToUserID),
		FromAccountID: idValue(cmd.FromAccountID),
		ToAccountID:   idValue(cmd.ToAccountID),
		Amount:        json.Number(cmd.Amount.String()),
		Description:   cmd.Description,
	}
	return c.submit(ctx, "CreateRequest", token, "/api/transfer-requests", body)
}

// Login calls POST /api/auth/login
func (c *Client) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.lookupTimeout)
	defer cancel()

	resp, err := c.do(ctx, "Login", http.MethodPost, "/api/auth/login", "", loginBody{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	var out loginResponse
	if err := json.Unmarshal(resp, &out); err != nil {
		return nil, &domain.APIError{StatusCode: http.StatusOK, Body: string(resp), Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return &domain.LoginResult{
		Message:   out.Message,
		Token:     domain.Token(out.Token),
		UserID:    string(out.UserID),
		FirstName: out.FirstName,
		LastName:  out.LastName,
		Email:     out.Email,
	}, nil
}

// lookup runs a read-only GET through the circuit breaker
func (c *Client) lookup(ctx context.Context, op string, token domain.Token, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.lookupTimeout)
	defer cancel()

	_, err := c.breaker.Execute(func() (interface{}, error) {
		body, err := c.do(ctx, op, http.MethodGet, path, token, nil)
		if err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(body)) == 0 {
			// an empty 2xx body reads as "nothing found"
			return nil, nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return nil, &domain.APIError{StatusCode: http.StatusOK, Body: truncate(body), Err: fmt.Errorf("failed to decode response: %w", err)}
		}
		return nil, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.Warn("lookup rejected by circuit breaker", zap.String("op", op))
		return &domain.APIError{Err: fmt.Errorf("%w: %w", domain.ErrRequestNotSent, err)}
	}
	return err
}

// submit sends a mutating POST. A 2xx answer is success even if its body is not JSON.
func (c *Client) submit(ctx context.Context, op string, token domain.Token, path string, payload any) (*domain.Receipt, error) {
	body, err := c.do(ctx, op, http.MethodPost, path, token, payload)
	if err != nil {
		return nil, err
	}

	receipt := &domain.Receipt{Body: body}
	var ref struct {
		ID flexID `json:"id"`
	}
	if json.Unmarshal(body, &ref) == nil {
		receipt.Reference = string(ref.ID)
	}
	return receipt, nil
}

// do performs one request and returns the body of a 2xx response.
// Every failure is a *domain.APIError.
func (c *Client) do(ctx context.Context, op, method, path string, token domain.Token, payload any) ([]byte, error) {
	logger := c.logger.With(zap.String("op", op), zap.String("method", method), zap.String("path", path))
	if id, ok := domain.IntentIDFromContext(ctx); ok {
		logger = logger.With(zap.String("intent_id", id.String()))
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &domain.APIError{Err: fmt.Errorf("%w: failed to marshal request: %w", domain.ErrRequestNotSent, err)}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, &domain.APIError{Err: fmt.Errorf("%w: failed to create request: %w", domain.ErrRequestNotSent, err)}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+string(token))
	}
	if id, ok := domain.IntentIDFromContext(ctx); ok {
		req.Header.Set(correlationHeader, id.String())
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("request failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		if notDispatched(err) {
			err = fmt.Errorf("%w: %w", domain.ErrRequestNotSent, err)
		}
		return nil, &domain.APIError{Err: err}
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	logger.Debug("response received", zap.Int("status", resp.StatusCode), zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.APIError{StatusCode: resp.StatusCode, Body: truncate(body)}
	}
	if readErr != nil {
		// a 2xx status was received; the body is incomplete but the call happened
		logger.Warn("failed to read response body", zap.Error(readErr))
	}
	return body, nil
}

// notDispatched reports whether err happened before any byte reached the server
func notDispatched(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func toAccounts(in []accountDTO) []domain.Account {
	out := make([]domain.Account, 0, len(in))
	for _, a := range in {
		out = append(out, domain.Account{
			ID:       string(a.ID),
			UserID:   string(a.UserID),
			RIB:      a.RIB,
			Balance:  a.Balance,
			Currency: a.Currency,
		})
	}
	return out
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return strings.TrimSpace(string(body))
}
