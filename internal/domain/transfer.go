package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultDescription replaces an empty description before it is shown or sent
const DefaultDescription = "No description"

// Flow identifies which money-movement screen started the intent
type Flow string

const (
	FlowSendMoney    Flow = "SEND_MONEY"
	FlowRequestMoney Flow = "REQUEST_MONEY"
)

// DestinationKind tells how the counterparty is addressed
type DestinationKind string

const (
	DestinationRoutingIdentifier DestinationKind = "RIB"
	DestinationRecipientEmail    DestinationKind = "EMAIL"
)

// Destination is the user-entered counterparty of a transfer
type Destination struct {
	Kind  DestinationKind
	Value string
}

// RoutingIdentifier builds a direct-transfer destination
func RoutingIdentifier(rib string) Destination {
	return Destination{Kind: DestinationRoutingIdentifier, Value: rib}
}

// RecipientEmail builds a request-flow destination
func RecipientEmail(email string) Destination {
	return Destination{Kind: DestinationRecipientEmail, Value: email}
}

func (d Destination) String() string {
	return d.Value
}

// Status is the position of a TransferIntent in its state machine
type Status string

const (
	StatusDraft                 Status = "DRAFT"
	StatusValidated             Status = "VALIDATED"
	StatusResolving             Status = "RESOLVING"
	StatusAwaitingConfirmation1 Status = "AWAITING_CONFIRMATION_1"
	StatusAwaitingConfirmation2 Status = "AWAITING_CONFIRMATION_2"
	StatusSubmitting            Status = "SUBMITTING"
	StatusCompleted             Status = "COMPLETED"
	StatusFailed                Status = "FAILED"
)

// IsTerminal reports whether no transition may leave this status
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// transitions lists the forward edges of the state machine.
// Failed is reachable from every non-terminal status and is handled by Fail.
var transitions = map[Status]Status{
	StatusDraft:                 StatusValidated,
	StatusValidated:             StatusResolving,
	StatusResolving:             StatusAwaitingConfirmation1,
	StatusAwaitingConfirmation1: StatusAwaitingConfirmation2,
	StatusAwaitingConfirmation2: StatusSubmitting,
	StatusSubmitting:            StatusCompleted,
}

// ErrInvalidTransition is returned when a status change is not part of the state machine
var ErrInvalidTransition = errors.New("invalid transfer intent transition")

// ValidatedInput is user input that passed validation
type ValidatedInput struct {
	Destination Destination
	Amount      decimal.Decimal // always > 0
	Description string
}

// ResolvedParty is the recipient of a request-money flow after lookup
type ResolvedParty struct {
	UserID               string
	DestinationAccountID string
}

// Validate ensures both identifiers are present
func (p ResolvedParty) Validate() error {
	if p.UserID == "" {
		return errors.New("resolved party must have a user id")
	}
	if p.DestinationAccountID == "" {
		return errors.New("resolved party must have a destination account id")
	}
	return nil
}

// Receipt is the opaque payload returned by a successful mutating call
type Receipt struct {
	Reference string
	Body      []byte
}

// TransferIntent is the per-operation state tracked through the workflow.
// It is owned by a single orchestration call and never shared.
type TransferIntent struct {
	ID              uuid.UUID
	Flow            Flow
	SourceAccountID string
	Destination     Destination
	Amount          decimal.Decimal
	Description     string
	Status          Status
	Recipient       *ResolvedParty // request flow only
	Receipt         *Receipt
	Err             error
}

// NewTransferIntent creates a Draft intent for the given flow
func NewTransferIntent(flow Flow) *TransferIntent {
	return &TransferIntent{
		ID:     uuid.New(),
		Flow:   flow,
		Status: StatusDraft,
	}
}

// Apply copies validated input into the intent and moves it to Validated
func (t *TransferIntent) Apply(input ValidatedInput) error {
	if !input.Amount.GreaterThan(decimal.Zero) {
		return errors.New("validated amount must be positive")
	}
	if err := t.Advance(StatusValidated); err != nil {
		return err
	}
	t.Destination = input.Destination
	t.Amount = input.Amount
	t.Description = input.Description
	return nil
}

// Advance moves the intent along the single permitted forward edge
func (t *TransferIntent) Advance(to Status) error {
	if t.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, t.Status)
	}
	if next, ok := transitions[t.Status]; !ok || next != to {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, to)
	}
	t.Status = to
	return nil
}

// Fail moves a non-terminal intent to Failed and records the cause.
// It returns cause so call sites can `return nil, intent.Fail(err)`.
func (t *TransferIntent) Fail(cause error) error {
	if t.Status.IsTerminal() {
		return cause
	}
	t.Status = StatusFailed
	t.Err = cause
	return cause
}

// Complete records the receipt and moves a Submitting intent to Completed
func (t *TransferIntent) Complete(receipt Receipt) error {
	if err := t.Advance(StatusCompleted); err != nil {
		return err
	}
	t.Receipt = &receipt
	return nil
}
