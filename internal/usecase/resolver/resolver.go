package resolver

import (
	"context"
	"errors"
	"net/http"

	"github.com/Yess-prog/PI-myBank-app/internal/domain"
)

// Resolver translates "my account" and recipient emails into backend account ids
type Resolver struct {
	Accounts domain.AccountsAPI
	Users    domain.UsersAPI
}

// NewResolver creates a new Resolver instance
func NewResolver(accounts domain.AccountsAPI, users domain.UsersAPI) *Resolver {
	return &Resolver{
		Accounts: accounts,
		Users:    users,
	}
}

// ResolveOwnAccount returns the caller's first account in server order
func (r *Resolver) ResolveOwnAccount(ctx context.Context, token domain.Token) (string, error) {
	accounts, err := r.Accounts.ListOwnAccounts(ctx, token)
	if err != nil {
		return "", lookupError(ctx, err, "")
	}

	if len(accounts) == 0 || accounts[0].ID == "" {
		return "", domain.NewError(domain.StageResolution, domain.KindNoEligibleAccount, nil)
	}

	return accounts[0].ID, nil
}

// ResolveRecipient maps an email to a user and that user's first account
// Logic:
//  1. email -> user id (404 or empty id means RecipientNotFound)
//  2. user id -> first account (404 or empty list means RecipientHasNoAccount)
//
// Both lookups run on every call; account eligibility can change between actions.
func (r *Resolver) ResolveRecipient(ctx context.Context, token domain.Token, email string) (domain.ResolvedParty, error) {
	user, err := r.Users.FindByEmail(ctx, token, email)
	if err != nil {
		return domain.ResolvedParty{}, lookupError(ctx, err, domain.KindRecipientNotFound)
	}
	if user == nil || user.ID == "" {
		return domain.ResolvedParty{}, domain.NewError(domain.StageResolution, domain.KindRecipientNotFound, nil)
	}

	accounts, err := r.Accounts.ListAccountsForUser(ctx, token, user.ID)
	if err != nil {
		return domain.ResolvedParty{}, lookupError(ctx, err, domain.KindRecipientHasNoAccount)
	}
	if len(accounts) == 0 || accounts[0].ID == "" {
		return domain.ResolvedParty{}, domain.NewError(domain.StageResolution, domain.KindRecipientHasNoAccount, nil)
	}

	party := domain.ResolvedParty{
		UserID:               user.ID,
		DestinationAccountID: accounts[0].ID,
	}
	return party, nil
}

// lookupError maps a collaborator failure onto the resolution taxonomy.
// notFoundKind is used for 404 responses; empty means 404 is a plain network error.
func lookupError(ctx context.Context, err error, notFoundKind domain.ErrorKind) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return domain.NewError(domain.StageResolution, domain.KindCancelled, err)
	}

	apiErr, ok := domain.AsAPIError(err)
	if !ok {
		return domain.NewError(domain.StageResolution, domain.KindNetworkError, err)
	}

	kind := domain.KindNetworkError
	switch {
	case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
		kind = domain.KindSessionError
	case apiErr.StatusCode == http.StatusNotFound && notFoundKind != "":
		kind = notFoundKind
	}

	return &domain.Error{
		Kind:       kind,
		Stage:      domain.StageResolution,
		StatusCode: apiErr.StatusCode,
		Body:       apiErr.Body,
		Err:        err,
	}
}
