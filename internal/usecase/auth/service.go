package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/Yess-prog/PI-myBank-app/internal/domain"
)

// SessionStore persists the session created by a login
type SessionStore interface {
	Save(ctx context.Context, record domain.SessionRecord) error
	Clear(ctx context.Context) error
}

// LoginError carries the message shown on the login screen
type LoginError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *LoginError) Error() string {
	return e.Message
}

func (e *LoginError) Unwrap() error {
	return e.Err
}

var (
	ErrCredentialsRequired = &LoginError{Message: "Email and password are required"}
	ErrInvalidEmail        = &LoginError{Message: "Invalid email format"}
)

// Service handles login and logout
type Service struct {
	API   domain.AuthAPI
	Store SessionStore
}

// NewService creates a new Service instance
func NewService(api domain.AuthAPI, store SessionStore) *Service {
	return &Service{API: api, Store: store}
}

// Login authenticates against the backend and persists the session
// Logic:
//  1. Both fields are required and the email must be a bare address
//  2. A non-2xx answer becomes "Server error: <code> - <body>"
//  3. A transport failure becomes "Network error: <cause>"
//  4. A 2xx answer without a token is a failed login carrying the server message
//  5. Save token, user id, email and the split display name
func (s *Service) Login(ctx context.Context, email, password string) (*domain.SessionRecord, error) {
	if email == "" || password == "" {
		return nil, ErrCredentialsRequired
	}
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}

	result, err := s.API.Login(ctx, email, password)
	if err != nil {
		if apiErr, ok := domain.AsAPIError(err); ok && apiErr.StatusCode != 0 {
			return nil, &LoginError{
				Message:    fmt.Sprintf("Server error: %d - %s", apiErr.StatusCode, apiErr.Body),
				StatusCode: apiErr.StatusCode,
				Err:        err,
			}
		}
		return nil, &LoginError{Message: fmt.Sprintf("Network error: %s", networkCause(err)), Err: err}
	}

	if result == nil || result.Token == "" {
		msg := "Login failed"
		if result != nil && result.Message != "" {
			msg = result.Message
		}
		return nil, &LoginError{Message: msg}
	}

	name := strings.TrimSpace(result.FirstName + " " + result.LastName)
	first, last := domain.SplitName(name)
	record := domain.SessionRecord{
		Token:     result.Token,
		UserID:    result.UserID,
		Email:     result.Email,
		Name:      name,
		FirstName: first,
		LastName:  last,
	}
	if record.Email == "" {
		record.Email = email
	}

	if err := s.Store.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return &record, nil
}

// Logout forgets the stored session
func (s *Service) Logout(ctx context.Context) error {
	if err := s.Store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// validEmail accepts only a bare address, not "Name <addr>"
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email && strings.Contains(addr.Address[strings.LastIndex(addr.Address, "@"):], ".")
}

func networkCause(err error) string {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) && apiErr.Err != nil {
		return apiErr.Err.Error()
	}
	return err.Error()
}
