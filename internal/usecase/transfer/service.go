package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/Yess-prog/PI-myBank-app/internal/domain"
	"github.com/Yess-prog/PI-myBank-app/internal/usecase/confirmation"
	"github.com/Yess-prog/PI-myBank-app/internal/usecase/resolver"
	"github.com/Yess-prog/PI-myBank-app/internal/usecase/validator"
)

// DefaultSubmitTimeout bounds the mutating call when no timeout is configured
const DefaultSubmitTimeout = 60 * time.Second

// SendMoneyInput represents the raw fields of the send-money screen
type SendMoneyInput struct {
	RecipientRIB string
	Amount       string
	Description  string
}

// RequestMoneyInput represents the raw fields of the request-money screen
type RequestMoneyInput struct {
	RecipientEmail string
	Amount         string
	Description    string
}

// Service orchestrates the funds-movement workflow
type Service struct {
	Session       domain.Session
	Resolver      *resolver.Resolver
	Transfers     domain.TransferAPI
	Gate          *confirmation.Gate
	SubmitTimeout time.Duration
}

// NewService creates a new Service instance
func NewService(
	session domain.Session,
	resolver *resolver.Resolver,
	transfers domain.TransferAPI,
	gate *confirmation.Gate,
	submitTimeout time.Duration,
) *Service {
	if submitTimeout <= 0 {
		submitTimeout = DefaultSubmitTimeout
	}
	return &Service{
		Session:       session,
		Resolver:      resolver,
		Transfers:     transfers,
		Gate:          gate,
		SubmitTimeout: submitTimeout,
	}
}

// SendMoney moves funds from the caller's first account to a routing identifier
func (s *Service) SendMoney(ctx context.Context, input SendMoneyInput) (*domain.TransferIntent, error) {
	intent := domain.NewTransferIntent(domain.FlowSendMoney)
	err := s.run(ctx, intent, domain.DestinationRoutingIdentifier, input.RecipientRIB, input.Amount, input.Description)
	return intent, err
}

// RequestMoney asks the user registered under an email to pay into the caller's first account
func (s *Service) RequestMoney(ctx context.Context, input RequestMoneyInput) (*domain.TransferIntent, error) {
	intent := domain.NewTransferIntent(domain.FlowRequestMoney)
	err := s.run(ctx, intent, domain.DestinationRecipientEmail, input.RecipientEmail, input.Amount, input.Description)
	return intent, err
}

// run drives intent through the state machine, stopping at the first failure
// Logic:
//  1. Validate raw input (no network)
//  2. Read the session token (NoSession if absent)
//  3. Resolve the caller's account, and for the request flow the recipient
//  4. Two-stage confirmation gate
//  5. Exactly one mutating call, never retried
func (s *Service) run(
	ctx context.Context,
	intent *domain.TransferIntent,
	kind domain.DestinationKind,
	destination, amount, description string,
) error {
	ctx = domain.WithIntentID(ctx, intent.ID)

	input, err := validator.Validate(kind, destination, amount, description)
	if err != nil {
		return intent.Fail(err)
	}
	if err := intent.Apply(input); err != nil {
		return intent.Fail(err)
	}

	token, ok := s.Session.CurrentToken(ctx)
	if !ok || token == "" {
		return intent.Fail(domain.NewError(domain.StageResolution, domain.KindNoSession, nil))
	}

	if err := intent.Advance(domain.StatusResolving); err != nil {
		return intent.Fail(err)
	}
	if err := s.resolve(ctx, token, intent); err != nil {
		return intent.Fail(err)
	}
	if err := intent.Advance(domain.StatusAwaitingConfirmation1); err != nil {
		return intent.Fail(err)
	}

	if err := s.Gate.Run(ctx, intent); err != nil {
		return intent.Fail(err)
	}

	// Last point at which cancellation is honoured
	if err := ctx.Err(); err != nil {
		return intent.Fail(domain.NewError(domain.StageConfirmation, domain.KindCancelled, err))
	}

	_, err = s.Submit(ctx, token, intent)
	return err
}

func (s *Service) resolve(ctx context.Context, token domain.Token, intent *domain.TransferIntent) error {
	accountID, err := s.Resolver.ResolveOwnAccount(ctx, token)
	if err != nil {
		return err
	}
	intent.SourceAccountID = accountID

	if intent.Flow != domain.FlowRequestMoney {
		return nil
	}

	party, err := s.Resolver.ResolveRecipient(ctx, token, intent.Destination.Value)
	if err != nil {
		return err
	}
	if err := party.Validate(); err != nil {
		return domain.NewError(domain.StageResolution, domain.KindRecipientHasNoAccount, err)
	}
	intent.Recipient = &party
	return nil
}

// Submit issues the single mutating call for a confirmed intent.
// The call ignores cancellation of ctx: once dispatched the client waits for its outcome,
// bounded only by SubmitTimeout.
func (s *Service) Submit(ctx context.Context, token domain.Token, intent *domain.TransferIntent) (*domain.Receipt, error) {
	if err := intent.Advance(domain.StatusSubmitting); err != nil {
		return nil, intent.Fail(err)
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.SubmitTimeout)
	defer cancel()

	var (
		receipt *domain.Receipt
		err     error
	)
	switch intent.Flow {
	case domain.FlowSendMoney:
		receipt, err = s.Transfers.Transfer(callCtx, token, domain.TransferCommand{
			FromAccountID: intent.SourceAccountID,
			ToRoutingID:   intent.Destination.Value,
			Amount:        intent.Amount,
			Description:   intent.Description,
		})
	case domain.FlowRequestMoney:
		if intent.Recipient == nil {
			return nil, intent.Fail(domain.NewError(domain.StageSubmission, domain.KindRecipientHasNoAccount,
				fmt.Errorf("%w: recipient not resolved", domain.ErrRequestNotSent)))
		}
		receipt, err = s.Transfers.CreateRequest(callCtx, token, domain.TransferRequestCommand{
			ToUserID:      intent.Recipient.UserID,
			FromAccountID: intent.SourceAccountID,
			ToAccountID:   intent.Recipient.DestinationAccountID,
			Amount:        intent.Amount,
			Description:   intent.Description,
		})
	default:
		return nil, intent.Fail(fmt.Errorf("unknown flow %q", intent.Flow))
	}

	if err != nil {
		return nil, intent.Fail(submitError(err))
	}

	if receipt == nil {
		receipt = &domain.Receipt{}
	}
	if err := intent.Complete(*receipt); err != nil {
		return nil, intent.Fail(err)
	}
	return receipt, nil
}

// submitError maps a mutating-call failure. Any response with a status is a definitive
// rejection; anything else may or may not have been applied by the server.
func submitError(err error) error {
	if apiErr, ok := domain.AsAPIError(err); ok && apiErr.StatusCode != 0 {
		return &domain.Error{
			Kind:       domain.KindServerRejected,
			Stage:      domain.StageSubmission,
			StatusCode: apiErr.StatusCode,
			Body:       apiErr.Body,
			Err:        err,
		}
	}

	// OutcomeUnknown stays false when err wraps domain.ErrRequestNotSent
	return domain.NewError(domain.StageSubmission, domain.KindNetworkError, err)
}
