package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/Yess-prog/PI-myBank-app/internal/domain"
	"github.com/Yess-prog/PI-myBank-app/internal/usecase/validator"
)

// Status is the user-facing result category
type Status string

const (
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
	// StatusUnknown means the mutating call may or may not have been applied
	StatusUnknown   Status = "UNKNOWN"
	StatusCancelled Status = "CANCELLED"
)

// Outcome is what the UI shows once an intent reaches a terminal status
type Outcome struct {
	Status  Status
	Kind    domain.ErrorKind
	Title   string
	Message string
}

// Report translates a finished intent and the error returned with it into an Outcome.
// err may be nil for a completed intent; otherwise intent.Err is used when err is nil.
func Report(intent *domain.TransferIntent, err error) Outcome {
	if err == nil && intent != nil {
		err = intent.Err
	}

	flow := domain.FlowSendMoney
	if intent != nil && intent.Flow != "" {
		flow = intent.Flow
	}

	if err == nil {
		if intent == nil || intent.Status != domain.StatusCompleted {
			return Outcome{Status: StatusFailed, Title: "Error", Message: "Unknown error"}
		}
		return succeeded(intent)
	}

	var de *domain.Error
	if !errors.As(err, &de) {
		if errors.Is(err, context.Canceled) {
			return Outcome{Status: StatusCancelled, Kind: domain.KindCancelled, Title: "Cancelled", Message: "Operation cancelled"}
		}
		return Outcome{Status: StatusFailed, Title: "Error", Message: fmt.Sprintf("Error: %v", err)}
	}

	out := Outcome{Status: StatusFailed, Kind: de.Kind, Title: "Error"}
	switch de.Kind {
	case domain.KindEmptyDestination:
		if flow == domain.FlowRequestMoney {
			out.Message = "Please enter recipient email"
		} else {
			out.Message = "Please enter recipient RIB"
		}
	case domain.KindInvalidAmount:
		if errors.Is(de, validator.ErrAmountRequired) {
			out.Message = "Please enter amount"
		} else {
			out.Message = "Invalid amount"
		}
	case domain.KindNonPositiveAmount:
		out.Message = "Amount must be greater than 0"
	case domain.KindNoSession:
		out.Message = "Token not found"
	case domain.KindSessionError:
		out.Title = "Session expired"
		out.Message = "Your session has expired, please log in again"
	case domain.KindNoEligibleAccount:
		out.Message = "Failed to load your accounts"
	case domain.KindRecipientNotFound:
		out.Message = "Recipient not found"
	case domain.KindRecipientHasNoAccount:
		out.Message = "Recipient has no accounts"
	case domain.KindUserCancelled:
		out.Status = StatusCancelled
		out.Title = "Cancelled"
		out.Message = cancelledMessage(flow)
	case domain.KindCancelled:
		out.Status = StatusCancelled
		out.Title = "Cancelled"
		out.Message = "Operation cancelled before anything was sent"
	case domain.KindServerRejected:
		out.Message = fmt.Sprintf("%s failed: %s", flowNoun(flow), bodyOrUnknown(de.Body))
	case domain.KindNetworkError:
		switch {
		case de.OutcomeUnknown():
			out.Status = StatusUnknown
			out.Title = "Submission outcome unknown"
			out.Message = fmt.Sprintf("The connection failed after your %s was sent. It may or may not have been applied; check your transactions before trying again.",
				lowerNoun(flow))
		default:
			out.Message = fmt.Sprintf("Error: %v", errorText(de))
		}
	default:
		out.Message = fmt.Sprintf("Error: %v", err)
	}
	return out
}

func succeeded(intent *domain.TransferIntent) Outcome {
	amount := intent.Amount.StringFixed(2)
	if intent.Flow == domain.FlowRequestMoney {
		return Outcome{
			Status:  StatusSucceeded,
			Title:   "Success",
			Message: fmt.Sprintf("Your request for $%s has been sent to %s!", amount, intent.Destination.Value),
		}
	}
	return Outcome{
		Status:  StatusSucceeded,
		Title:   "Success",
		Message: fmt.Sprintf("Your transfer of $%s has been sent!", amount),
	}
}

func cancelledMessage(flow domain.Flow) string {
	if flow == domain.FlowRequestMoney {
		return "Request cancelled"
	}
	return "Transfer cancelled"
}

func flowNoun(flow domain.Flow) string {
	if flow == domain.FlowRequestMoney {
		return "Request"
	}
	return "Transfer"
}

func lowerNoun(flow domain.Flow) string {
	if flow == domain.FlowRequestMoney {
		return "request"
	}
	return "transfer"
}

func bodyOrUnknown(body string) string {
	if body == "" {
		return "Unknown error"
	}
	return body
}

// errorText prefers the underlying cause over the kind label
func errorText(de *domain.Error) string {
	if de.Err != nil {
		return de.Err.Error()
	}
	return de.Error()
}
