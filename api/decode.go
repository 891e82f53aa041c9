package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Team-SSOK/ssok-auth-client/apimodel"
	"github.com/Team-SSOK/ssok-auth-client/httpclient"
	apperrors "github.com/Team-SSOK/ssok-auth-client/internal/errors"
)

const (
	msgUserNotFound       = "This account no longer exists. Please register again."
	msgUnexpectedResponse = "Unexpected response from the server. Please try again."
	msgServerUnavailable  = "The server is unavailable. Please try again later."
	msgRejected           = "The request was rejected. Please try again."
)

// call describes how a reply of one endpoint is interpreted.
type call struct {
	// userScoped endpoints report a deleted identity with HTTP 404.
	userScoped bool
	// rejected is wrapped into the error when the backend answers isSuccess=false.
	rejected error
}

// decode turns a reply into its result or a typed error.
func decode[T any](resp *httpclient.Response, c call) (*T, error) {
	var env apimodel.Envelope[T]
	err := json.Unmarshal(resp.Body, &env)
	if err == nil && env.Code == apimodel.CodeUserNotFound {
		return nil, apperrors.New(apperrors.KindUserNotFound, messageOr(env.Message, msgUserNotFound),
			fmt.Errorf("%w: code %d", apperrors.ErrUserNotFound, env.Code))
	}
	if c.userScoped && resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.New(apperrors.KindUserNotFound, msgUserNotFound,
			fmt.Errorf("%w: status %d", apperrors.ErrUserNotFound, resp.StatusCode))
	}
	if err != nil || (!env.IsSuccess && env.Code == 0 && env.Message == "") {
		return nil, statusError(resp.StatusCode, err)
	}
	// A failure envelope on a 5xx describes the outage, not the credentials.
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, statusError(resp.StatusCode, fmt.Errorf("code %d: %s", env.Code, env.Message))
	}

	if !env.IsSuccess {
		rejected := c.rejected
		if rejected == nil {
			rejected = apperrors.ErrLoginRejected
		}
		if env.Code == apimodel.CodeInvalidPin {
			rejected = apperrors.ErrInvalidPin
		}
		return nil, apperrors.New(apperrors.KindAuthValidation, messageOr(env.Message, msgRejected),
			fmt.Errorf("%w: code %d: %s", rejected, env.Code, env.Message))
	}
	if env.Result == nil {
		var zero T
		return &zero, nil
	}
	return env.Result, nil
}

// statusError maps a reply without a readable envelope.
func statusError(status int, cause error) error {
	if cause == nil {
		cause = fmt.Errorf("status %d", status)
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.New(apperrors.KindAuthValidation, "Authentication failed. Please sign in again.",
			fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, cause))
	case status >= http.StatusInternalServerError:
		return apperrors.New(apperrors.KindNetwork, msgServerUnavailable,
			fmt.Errorf("%w: status %d: %w", apperrors.ErrNetwork, status, cause))
	default:
		return apperrors.New(apperrors.KindNetwork, msgUnexpectedResponse,
			fmt.Errorf("%w: status %d: %w", apperrors.ErrInvalidResponse, status, cause))
	}
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
