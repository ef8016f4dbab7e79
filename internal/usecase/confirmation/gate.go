package confirmation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Yess-prog/PI-myBank-app/internal/domain"
)

// Decision is the user's answer at a confirmation stage
type Decision int

const (
	Abort Decision = iota
	Proceed
)

func (d Decision) String() string {
	if d == Proceed {
		return "proceed"
	}
	return "abort"
}

// Stage identifies which of the two prompts is shown
type Stage int

const (
	StageReview Stage = iota + 1
	StageFinal
)

// Prompt is what a Confirmer presents to the user
type Prompt struct {
	Stage         Stage
	Title         string
	Message       string
	ProceedLabel  string
	AbortLabel    string
	Irreversible  bool
	IntentSummary Summary
}

// Summary is the part of the intent shown to the user
type Summary struct {
	Flow        domain.Flow
	Amount      string
	Destination string
	Description string
}

// Confirmer asks the user to proceed or abort.
// Implementations may block until the user answers or ctx is done.
type Confirmer interface {
	Confirm(ctx context.Context, prompt Prompt) (Decision, error)
}

// ConfirmerFunc adapts a function to Confirmer
type ConfirmerFunc func(ctx context.Context, prompt Prompt) (Decision, error)

func (f ConfirmerFunc) Confirm(ctx context.Context, prompt Prompt) (Decision, error) {
	return f(ctx, prompt)
}

// Gate is the two-stage consent checkpoint in front of the mutating call
type Gate struct {
	Confirmer Confirmer
}

// NewGate creates a new Gate instance
func NewGate(confirmer Confirmer) *Gate {
	return &Gate{Confirmer: confirmer}
}

// Run asks for consent twice. The intent must be AwaitingConfirmation1.
// On success the intent is left in AwaitingConfirmation2 with both answers Proceed;
// an Abort or a confirmer failure fails the intent with UserCancelled.
func (g *Gate) Run(ctx context.Context, intent *domain.TransferIntent) error {
	if intent.Status != domain.StatusAwaitingConfirmation1 {
		return fmt.Errorf("%w: gate entered from %s", domain.ErrInvalidTransition, intent.Status)
	}

	if err := g.ask(ctx, intent, ReviewPrompt(intent)); err != nil {
		return intent.Fail(err)
	}

	if err := intent.Advance(domain.StatusAwaitingConfirmation2); err != nil {
		return err
	}

	if err := g.ask(ctx, intent, FinalPrompt(intent)); err != nil {
		return intent.Fail(err)
	}

	return nil
}

func (g *Gate) ask(ctx context.Context, intent *domain.TransferIntent, prompt Prompt) error {
	if err := ctx.Err(); err != nil {
		return domain.NewError(domain.StageConfirmation, domain.KindCancelled, err)
	}

	decision, err := g.Confirmer.Confirm(ctx, prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.NewError(domain.StageConfirmation, domain.KindCancelled, err)
		}
		return domain.NewError(domain.StageConfirmation, domain.KindUserCancelled, err)
	}

	if decision != Proceed {
		return domain.NewError(domain.StageConfirmation, domain.KindUserCancelled, nil)
	}
	return nil
}

func summarize(intent *domain.TransferIntent) Summary {
	return Summary{
		Flow:        intent.Flow,
		Amount:      displayAmount(intent.Amount),
		Destination: intent.Destination.Value,
		Description: intent.Description,
	}
}

// displayAmount shows cents, or every digit when the amount is finer than a cent
func displayAmount(amount decimal.Decimal) string {
	if amount.Equal(amount.Truncate(2)) {
		return amount.StringFixed(2)
	}
	return amount.String()
}

// ReviewPrompt builds the first-stage prompt for intent
func ReviewPrompt(intent *domain.TransferIntent) Prompt {
	s := summarize(intent)
	prompt := Prompt{
		Stage:         StageReview,
		ProceedLabel:  "Yes, Continue",
		AbortLabel:    "Cancel",
		IntentSummary: s,
	}

	switch intent.Flow {
	case domain.FlowRequestMoney:
		prompt.Title = "Confirm Request"
		prompt.Message = fmt.Sprintf("Request Amount: $%s\nFrom: %s\nDescription: %s\n\nDo you want to proceed?",
			s.Amount, s.Destination, s.Description)
	default:
		prompt.Title = "Confirm Transfer"
		prompt.Message = fmt.Sprintf("Transfer Amount: $%s\nTo RIB: %s\nDescription: %s\n\nDo you want to proceed?",
			s.Amount, s.Destination, s.Description)
	}
	return prompt
}

// FinalPrompt builds the second-stage prompt with the irreversibility warning
func FinalPrompt(intent *domain.TransferIntent) Prompt {
	s := summarize(intent)
	prompt := Prompt{
		Stage:         StageFinal,
		Title:         "Final Confirmation",
		AbortLabel:    "Cancel",
		Irreversible:  true,
		IntentSummary: s,
	}

	switch intent.Flow {
	case domain.FlowRequestMoney:
		prompt.ProceedLabel = "Yes, Send Request"
		prompt.Message = fmt.Sprintf("This will send a transfer request to %s.\n\nAre you absolutely sure you want to request $%s?",
			s.Destination, s.Amount)
	default:
		prompt.ProceedLabel = "Yes, Send Now"
		prompt.Message = fmt.Sprintf("This action cannot be undone!\n\nAre you absolutely sure you want to send $%s to %s?",
			s.Amount, s.Destination)
	}
	return prompt
}
