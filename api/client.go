// Package api wraps the backend endpoints the session client consumes.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Team-SSOK/ssok-auth-client/apimodel"
	"github.com/Team-SSOK/ssok-auth-client/httpclient"
	apperrors "github.com/Team-SSOK/ssok-auth-client/internal/errors"
	"github.com/Team-SSOK/ssok-auth-client/token"
)

// Caller sends one JSON request to the backend.
type Caller interface {
	Call(ctx context.Context, method, path string, in any) (*httpclient.Response, error)
}

var _ Caller = (*httpclient.Client)(nil)

// Client is the typed backend API.
type Client struct {
	caller Caller
}

// New returns a Client over caller, normally an *httpclient.Client.
func New(caller Caller) (*Client, error) {
	if caller == nil {
		return nil, errors.New("[api.New] caller is required")
	}
	return &Client{caller: caller}, nil
}

// Login exchanges a user id and PIN for a token pair. It is sent without a bearer
// token so a rejected PIN is never mistaken for an expired session.
func (c *Client) Login(ctx context.Context, userID, pin string) (token.Pair, error) {
	resp, err := c.caller.Call(httpclient.WithoutAuth(ctx), http.MethodPost, apimodel.RouteLogin,
		apimodel.LoginRequest{UserID: userID, PinCode: pin})
	if err != nil {
		return token.Pair{}, err
	}
	res, err := decode[apimodel.TokenResult](resp, call{userScoped: true, rejected: apperrors.ErrLoginRejected})
	if err != nil {
		return token.Pair{}, err
	}

	pair := token.Pair{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken}
	if !pair.Complete() {
		return token.Pair{}, apperrors.New(apperrors.KindNetwork, msgUnexpectedResponse, apperrors.ErrInvalidTokenPair)
	}
	return pair, nil
}

// Register creates the account and returns the user id assigned by the backend.
func (c *Client) Register(ctx context.Context, phone, username, pin, deviceID string) (string, error) {
	resp, err := c.caller.Call(httpclient.WithoutAuth(ctx), http.MethodPost, apimodel.RouteSignup,
		apimodel.SignupRequest{Username: username, PhoneNumber: phone, PinCode: pin, DeviceID: deviceID})
	if err != nil {
		return "", err
	}
	res, err := decode[apimodel.SignupResult](resp, call{rejected: apperrors.ErrLoginRejected})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(res.UserID) == "" {
		return "", apperrors.New(apperrors.KindNetwork, msgUnexpectedResponse, apperrors.ErrInvalidResponse)
	}
	return res.UserID, nil
}

// ResetPin replaces the PIN of userID.
func (c *Client) ResetPin(ctx context.Context, userID, pin string) error {
	resp, err := c.caller.Call(ctx, http.MethodPatch, apimodel.RoutePinReset,
		apimodel.PinResetRequest{UserID: userID, PinCode: pin})
	if err != nil {
		return err
	}
	_, err = decode[struct{}](resp, call{userScoped: true, rejected: apperrors.ErrInvalidPin})
	return err
}

// RegisterPushToken registers the device push token. Refresh failures on this
// call come back as KindSoftNoRefresh errors.
func (c *Client) RegisterPushToken(ctx context.Context, pushToken string) error {
	resp, err := c.caller.Call(ctx, http.MethodPost, apimodel.RoutePushRegister,
		apimodel.PushTokenRequest{Token: pushToken})
	if err != nil {
		return err
	}
	_, err = decode[struct{}](resp, call{})
	return err
}

// UserInfo returns the profile of the authenticated user.
func (c *Client) UserInfo(ctx context.Context) (apimodel.UserInfo, error) {
	resp, err := c.caller.Call(ctx, http.MethodGet, apimodel.RouteUserInfo, nil)
	if err != nil {
		return apimodel.UserInfo{}, err
	}
	res, err := decode[apimodel.UserInfo](resp, call{userScoped: true})
	if err != nil {
		return apimodel.UserInfo{}, err
	}
	return *res, nil
}
