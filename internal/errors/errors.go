package errors

import "errors"

// This package defines the sentinel errors shared by every layer of the gateway.
// Services wrap them with context (`fmt.Errorf("%w: ...", ErrX)`) and the API
// layer maps them to HTTP responses with `errors.Is()`, so no component below
// the handlers needs to know about status codes.

var (
	// ErrValidation signifies that the inbound request failed validation, e.g.
	// an unparsable body or an empty message list.
	// This is mapped to a 400 Bad Request HTTP status.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized signifies that the caller did not present the gateway's
	// API key. Requests failing this check never reach the orchestrator.
	// This is mapped to a 401 Unauthorized HTTP status.
	ErrUnauthorized = errors.New("invalid api key")

	// ErrSearch signifies a transport or parse failure while fetching web
	// search results. It is absorbed by the orchestrator and never surfaces
	// to the caller.
	ErrSearch = errors.New("web search failed")

	// ErrUpstream signifies that the LLM provider could not be reached or
	// returned something other than a JSON completion.
	// This is mapped to a 502 Bad Gateway HTTP status.
	ErrUpstream = errors.New("upstream provider error")

	// ErrConfig signifies that the process configuration is incomplete.
	// The server refuses to start when it sees this error.
	ErrConfig = errors.New("invalid configuration")

	// ErrInternal signifies an unexpected error on the server. This is a generic
	// error used to prevent leaking sensitive implementation details to the client.
	// This is mapped to a 500 Internal Server Error HTTP status.
	ErrInternal = errors.New("internal server error")
)
