package relay

import (
	"context"
	"errors"
	"strings"

	"opendocs/provider"
)

// Category is the user-facing class of a failed exchange.
type Category string

const (
	CategoryCredential Category = "credential"
	CategoryRateLimit  Category = "rate_limit"
	CategoryNetwork    Category = "network"
	CategoryTimeout    Category = "timeout"
	CategoryOther      Category = "other"
)

// User-facing messages, one per category.
const (
	CredentialMessage   = "Invalid or missing API key. Please check your API key in Settings."
	RateLimitMessage    = "API quota exceeded or rate limit reached. Please try again later."
	NetworkMessage      = "Network error. Please check your internet connection and try again."
	TimeoutMessage      = "Request timed out. The model might be temporarily unavailable."
	GenericErrorMessage = "An error occurred while processing your request."
	ExchangeBusyMessage = "Another request is already in progress. Please wait for it to finish."
)

// Classify maps err to a Category. Errors marked by the provider package are
// classified by their mark; anything else falls back to matching the message.
func Classify(err error) Category {
	if err == nil {
		return CategoryOther
	}

	switch provider.KindOf(err) {
	case provider.KindCredential:
		return CategoryCredential
	case provider.KindRateLimit:
		return CategoryRateLimit
	case provider.KindNetwork:
		return CategoryNetwork
	case provider.KindTimeout:
		return CategoryTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "API key"):
		return CategoryCredential
	case strings.Contains(msg, "quota"), strings.Contains(msg, "rate limit"):
		return CategoryRateLimit
	case strings.Contains(msg, "network"), strings.Contains(msg, "ENOTFOUND"), strings.Contains(msg, "no such host"):
		return CategoryNetwork
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return CategoryTimeout
	default:
		return CategoryOther
	}
}

// UserMessage is the text shown to the user for a failed exchange. Raw error
// text only reaches the user for unclassified failures.
func UserMessage(err error) string {
	switch Classify(err) {
	case CategoryCredential:
		return CredentialMessage
	case CategoryRateLimit:
		return RateLimitMessage
	case CategoryNetwork:
		return NetworkMessage
	case CategoryTimeout:
		return TimeoutMessage
	}
	if err == nil || err.Error() == "" {
		return GenericErrorMessage
	}
	return "Error: " + err.Error()
}
