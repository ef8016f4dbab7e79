package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Token is the bearer credential of an authenticated session
type Token string

// Session gives read-only access to the authenticated user's credential
type Session interface {
	// CurrentToken returns the bearer token, or false if there is no usable session
	CurrentToken(ctx context.Context) (Token, bool)

	// UserID returns the authenticated user's id, or false if unknown
	UserID(ctx context.Context) (string, bool)
}

// Account is a bank account as returned by the backend
type Account struct {
	ID       string
	UserID   string
	RIB      string
	Balance  decimal.Decimal
	Currency string
}

// User is the backend's view of a user
type User struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
}

// TransferCommand is the payload of a direct transfer
type TransferCommand struct {
	FromAccountID string
	ToRoutingID   string
	Amount        decimal.Decimal
	Description   string
}

// TransferRequestCommand is the payload of a request-money call.
// ToUserID is the party asked to pay; FromAccountID is the caller's account.
type TransferRequestCommand struct {
	ToUserID      string
	FromAccountID string
	ToAccountID   string
	Amount        decimal.Decimal
	Description   string
}

// AccountsAPI defines the account lookups used by the resolvers
type AccountsAPI interface {
	// ListOwnAccounts returns the caller's accounts in server order
	ListOwnAccounts(ctx context.Context, token Token) ([]Account, error)

	// ListAccountsForUser returns another user's accounts in server order
	ListAccountsForUser(ctx context.Context, token Token, userID string) ([]Account, error)
}

// UsersAPI defines the user lookups used by the recipient resolver
type UsersAPI interface {
	// FindByEmail returns the user registered under email
	FindByEmail(ctx context.Context, token Token, email string) (*User, error)
}

// TransferAPI defines the two mutating calls
type TransferAPI interface {
	// Transfer moves funds to a routing identifier
	Transfer(ctx context.Context, token Token, cmd TransferCommand) (*Receipt, error)

	// CreateRequest asks another user to pay into the caller's account
	CreateRequest(ctx context.Context, token Token, cmd TransferRequestCommand) (*Receipt, error)
}

// LoginResult is the backend's answer to a login call
type LoginResult struct {
	Message   string
	Token     Token
	UserID    string
	FirstName string
	LastName  string
	Email     string
}

// AuthAPI defines the login call
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
}

// BankAPI is implemented by the transport adapters
type BankAPI interface {
	AccountsAPI
	UsersAPI
	TransferAPI
	AuthAPI
}
