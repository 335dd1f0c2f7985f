package provider

import (
	"context"
	"net"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/cockroachdb/errors"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
	"google.golang.org/genai"
)

// Sentinels marking the kind of a provider failure. Adapters never return them
// directly; WrapError marks the SDK error while the original message and chain
// stay intact. Marks are visible to KindOf and to errors.Is from
// github.com/cockroachdb/errors, not to the standard library's errors.Is.
var (
	ErrCredential = errors.New("provider rejected credentials")
	ErrRateLimit  = errors.New("provider rate limit reached")
	ErrNetwork    = errors.New("provider unreachable")
	ErrTimeout    = errors.New("provider timed out")
)

// ErrorKind classifies a provider failure.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindCredential
	KindRateLimit
	KindNetwork
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindCredential:
		return "credential"
	case KindRateLimit:
		return "rate_limit"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	default:
		return "other"
	}
}

// WrapError annotates err with the provider name and marks it with the
// sentinel matching its kind. Cancellation is passed through unmarked so the
// relay can tell a user stop from a failure.
func WrapError(providerName string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	wrapped := errors.Wrapf(err, "%s", providerName)
	switch detectKind(err) {
	case KindCredential:
		return errors.Mark(wrapped, ErrCredential)
	case KindRateLimit:
		return errors.Mark(wrapped, ErrRateLimit)
	case KindNetwork:
		return errors.Mark(wrapped, ErrNetwork)
	case KindTimeout:
		return errors.Mark(wrapped, ErrTimeout)
	default:
		return wrapped
	}
}

// KindOf reports the kind WrapError recorded on err.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindOther
	case errors.Is(err, ErrCredential):
		return KindCredential
	case errors.Is(err, ErrRateLimit):
		return KindRateLimit
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	default:
		return KindOther
	}
}

func detectKind(err error) ErrorKind {
	if status := statusCode(err); status != 0 {
		switch status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return KindCredential
		case http.StatusTooManyRequests:
			return KindRateLimit
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return KindTimeout
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindNetwork
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindNetwork
	}

	return KindOther
}

// statusCode digs the HTTP status out of whichever SDK produced err.
func statusCode(err error) int {
	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return anthropicErr.StatusCode
	}
	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return openaiErr.StatusCode
	}
	var geminiErr genai.APIError
	if errors.As(err, &geminiErr) {
		return geminiErr.Code
	}
	var geminiErrPtr *genai.APIError
	if errors.As(err, &geminiErrPtr) {
		return geminiErrPtr.Code
	}
	var ollamaErr api.StatusError
	if errors.As(err, &ollamaErr) {
		return ollamaErr.StatusCode
	}
	return 0
}
