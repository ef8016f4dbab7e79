package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Yess-prog/PI-myBank-app/internal/domain"
)

// MockAccountsAPI is a mock implementation of AccountsAPI for testing
type MockAccountsAPI struct {
	mock.Mock
}

func (m *MockAccountsAPI) ListOwnAccounts(ctx context.Context, token domain.Token) ([]domain.Account, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountsAPI) ListAccountsForUser(ctx context.Context, token domain.Token, userID string) ([]domain.Account, error) {
	args := m.Called(ctx, token, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

// MockUsersAPI is a mock implementation of UsersAPI for testing
type MockUsersAPI struct {
	mock.Mock
}

func (m *MockUsersAPI) FindByEmail(ctx context.Context, token domain.Token, email string) (*domain.User, error) {
	args := m.Called(ctx, token, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

const token = domain.Token("token-abc")

func TestResolveOwnAccount_PicksFirstInServerOrder(t *testing.T) {
	ctx := context.Background()
	accounts := new(MockAccountsAPI)
	r := NewResolver(accounts, new(MockUsersAPI))

	accounts.On("ListOwnAccounts", ctx, token).Return([]domain.Account{
		{ID: "acc-2", Currency: "EUR"},
		{ID: "acc-1", Currency: "EUR"},
	}, nil).Once()

	id, err := r.ResolveOwnAccount(ctx, token)

	require.NoError(t, err)
	assert.Equal(t, "acc-2", id)
	accounts.AssertExpectations(t)
}

func TestResolveOwnAccount_Errors(t *testing.T) {
	tests := []struct {
		name       string
		accounts   []domain.Account
		err        error
		wantKind   domain.ErrorKind
		wantStatus int
	}{
		{name: "Empty list", accounts: []domain.Account{}, wantKind: domain.KindNoEligibleAccount},
		{name: "Nil list", accounts: nil, wantKind: domain.KindNoEligibleAccount},
		{name: "Unauthorized", err: &domain.APIError{StatusCode: 401, Body: "expired"}, wantKind: domain.KindSessionError, wantStatus: 401},
		{name: "Forbidden", err: &domain.APIError{StatusCode: 403}, wantKind: domain.KindSessionError, wantStatus: 403},
		{name: "Not found is not a session problem", err: &domain.APIError{StatusCode: 404}, wantKind: domain.KindNetworkError, wantStatus: 404},
		{name: "Server error", err: &domain.APIError{StatusCode: 500, Body: "boom"}, wantKind: domain.KindNetworkError, wantStatus: 500},
		{name: "Transport failure", err: &domain.APIError{Err: errors.New("dial tcp: refused")}, wantKind: domain.KindNetworkError},
		{name: "Unclassified error", err: errors.New("weird"), wantKind: domain.KindNetworkError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			accounts := new(MockAccountsAPI)
			r := NewResolver(accounts, new(MockUsersAPI))

			if tt.err != nil {
				accounts.On("ListOwnAccounts", ctx, token).Return(nil, tt.err)
			} else {
				accounts.On("ListOwnAccounts", ctx, token).Return(tt.accounts, nil)
			}

			_, err := r.ResolveOwnAccount(ctx, token)

			var de *domain.Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.wantKind, de.Kind)
			assert.Equal(t, domain.StageResolution, de.Stage)
			assert.Equal(t, tt.wantStatus, de.StatusCode)
		})
	}
}

func TestResolveRecipient_Success(t *testing.T) {
	ctx := context.Background()
	accounts := new(MockAccountsAPI)
	users := new(MockUsersAPI)
	r := NewResolver(accounts, users)

	users.On("FindByEmail", ctx, token, "friend@example.com").Return(&domain.User{ID: "42", Email: "friend@example.com"}, nil).Once()
	accounts.On("ListAccountsForUser", ctx, token, "42").Return([]domain.Account{{ID: "acc-42"}, {ID: "acc-43"}}, nil).Once()

	party, err := r.ResolveRecipient(ctx, token, "friend@example.com")

	require.NoError(t, err)
	assert.Equal(t, domain.ResolvedParty{UserID: "42", DestinationAccountID: "acc-42"}, party)
	users.AssertExpectations(t)
	accounts.AssertExpectations(t)
}

func TestResolveRecipient_NotFoundStopsBeforeAccountLookup(t *testing.T) {
	ctx := context.Background()
	accounts := new(MockAccountsAPI)
	users := new(MockUsersAPI)
	r := NewResolver(accounts, users)

	users.On("FindByEmail", ctx, token, "ghost@example.com").Return(nil, &domain.APIError{StatusCode: 404, Body: "User not found"}).Once()

	_, err := r.ResolveRecipient(ctx, token, "ghost@example.com")

	assert.ErrorIs(t, err, domain.ErrRecipientNotFound)
	accounts.AssertNotCalled(t, "ListAccountsForUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveRecipient_EmptyUserIsNotFound(t *testing.T) {
	ctx := context.Background()
	accounts := new(MockAccountsAPI)
	users := new(MockUsersAPI)
	r := NewResolver(accounts, users)

	users.On("FindByEmail", ctx, token, "x@example.com").Return(&domain.User{}, nil).Once()

	_, err := r.ResolveRecipient(ctx, token, "x@example.com")

	assert.ErrorIs(t, err, domain.ErrRecipientNotFound)
	accounts.AssertNotCalled(t, "ListAccountsForUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveRecipient_NoAccounts(t *testing.T) {
	tests := []struct {
		name     string
		accounts []domain.Account
		err      error
		wantKind domain.ErrorKind
	}{
		{name: "Empty list", accounts: []domain.Account{}, wantKind: domain.KindRecipientHasNoAccount},
		{name: "Not found", err: &domain.APIError{StatusCode: 404}, wantKind: domain.KindRecipientHasNoAccount},
		{name: "Unauthorized", err: &domain.APIError{StatusCode: 401}, wantKind: domain.KindSessionError},
		{name: "Transport failure", err: &domain.APIError{Err: errors.New("timeout")}, wantKind: domain.KindNetworkError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			accounts := new(MockAccountsAPI)
			users := new(MockUsersAPI)
			r := NewResolver(accounts, users)

			users.On("FindByEmail", ctx, token, "friend@example.com").Return(&domain.User{ID: "42"}, nil)
			if tt.err != nil {
				accounts.On("ListAccountsForUser", ctx, token, "42").Return(nil, tt.err)
			} else {
				accounts.On("ListAccountsForUser", ctx, token, "42").Return(tt.accounts, nil)
			}

			_, err := r.ResolveRecipient(ctx, token, "friend@example.com")

			assert.Equal(t, tt.wantKind, domain.KindOf(err))
		})
	}
}

func TestResolveRecipient_FreshLookupsEachCall(t *testing.T) {
	ctx := context.Background()
	accounts := new(MockAccountsAPI)
	users := new(MockUsersAPI)
	r := NewResolver(accounts, users)

	users.On("FindByEmail", ctx, token, "friend@example.com").Return(&domain.User{ID: "42"}, nil).Twice()
	accounts.On("ListAccountsForUser", ctx, token, "42").Return([]domain.Account{{ID: "acc-42"}}, nil).Once()
	accounts.On("ListAccountsForUser", ctx, token, "42").Return([]domain.Account{}, nil).Once()

	_, err := r.ResolveRecipient(ctx, token, "friend@example.com")
	require.NoError(t, err)

	_, err = r.ResolveRecipient(ctx, token, "friend@example.com")
	assert.ErrorIs(t, err, domain.ErrRecipientHasNoAccount)

	users.AssertNumberOfCalls(t, "FindByEmail", 2)
	accounts.AssertNumberOfCalls(t, "ListAccountsForUser", 2)
}

func TestResolveOwnAccount_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	accounts := new(MockAccountsAPI)
	r := NewResolver(accounts, new(MockUsersAPI))

	accounts.On("ListOwnAccounts", ctx, token).Return(nil, &domain.APIError{Err: context.Canceled})

	_, err := r.ResolveOwnAccount(ctx, token)

	assert.ErrorIs(t, err, domain.ErrCancelled)
}
