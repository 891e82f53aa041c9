package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Team-SSOK/ssok-auth-client/apimodel"
	"github.com/Team-SSOK/ssok-auth-client/server/issuer"
	"github.com/Team-SSOK/ssok-auth-client/users"
)

const (
	msgMalformed       = "Malformed request."
	msgUserNotFound    = "User not found."
	msgPinMismatch     = "PIN does not match."
	msgDuplicatePhone  = "This phone number is already registered."
	msgInvalidRefresh  = "Refresh token expired or invalid."
	msgInternalFailure = "Internal server error."
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in apimodel.LoginRequest
	if err := decodeBody(r, &in); err != nil || in.UserID == "" {
		writeFail(w, http.StatusBadRequest, apimodel.CodeInvalidRequest, msgMalformed)
		return
	}

	acc, ok := s.accounts.get(in.UserID)
	if !ok {
		writeFail(w, http.StatusNotFound, apimodel.CodeUserNotFound, msgUserNotFound)
		return
	}
	if !users.CheckPinHash(in.PinCode, acc.PinHash) {
		s.log.Info().Str("user_id", acc.ID).Msg("PIN mismatch")
		writeFail(w, http.StatusBadRequest, apimodel.CodeInvalidPin, msgPinMismatch)
		return
	}

	access, err := s.access.Issue(acc.ID)
	if err != nil {
		s.internalError(w, err)
		return
	}
	refresh, err := s.refresh.Create(acc.ID)
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apimodel.OK(apimodel.TokenResult{AccessToken: access, RefreshToken: refresh}))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var in apimodel.RefreshRequest
	if err := decodeBody(r, &in); err != nil || in.RefreshToken == "" {
		writeFail(w, http.StatusBadRequest, apimodel.CodeInvalidRequest, msgMalformed)
		return
	}

	userID, next, err := s.refresh.Rotate(in.RefreshToken)
	if errors.Is(err, issuer.ErrRefreshTokenNotFound) {
		writeFail(w, http.StatusUnauthorized, apimodel.CodeUnauthorized, msgInvalidRefresh)
		return
	}
	if err != nil {
		s.internalError(w, err)
		return
	}

	access, err := s.access.Issue(userID)
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apimodel.OK(apimodel.TokenResult{AccessToken: access, RefreshToken: next}))
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in apimodel.SignupRequest
	if err := decodeBody(r, &in); err != nil {
		writeFail(w, http.StatusBadRequest, apimodel.CodeInvalidRequest, msgMalformed)
		return
	}
	phone := strings.TrimSpace(in.PhoneNumber)
	username := strings.TrimSpace(in.Username)
	if phone == "" || username == "" {
		writeFail(w, http.StatusBadRequest, apimodel.CodeInvalidRequest, "Phone number and username are required.")
		return
	}
	if err := users.ValidatePin(in.PinCode); err != nil {
		writeFail(w, http.StatusBadRequest, apimodel.CodeInvalidRequest, "PIN must be 6 digits.")
		return
	}

	acc, err := s.accounts.create(phone, username, in.PinCode, in.DeviceID)
	if errors.Is(err, errDuplicatePhone) {
		writeFail(w, http.StatusConflict, apimodel.CodeDuplicatePhone, msgDuplicatePhone)
		return
	}
	if err != nil {
		s.internalError(w, err)
		return
	}

	s.log.Info().Str("user_id", acc.ID).Msg("Account created")
	res := apimodel.SignupResult{UserID: acc.ID}
	writeJSON(w, http.StatusCreated, apimodel.Envelope[apimodel.SignupResult]{
		IsSuccess: true,
		Code:      apimodel.CodeCreated,
		Message:   "Created",
		Result:    &res,
	})
}

func (s *Server) handlePinReset(w http.ResponseWriter, r *http.Request) {
	var in apimodel.PinResetRequest
	if err := decodeBody(r, &in); err != nil || in.UserID == "" {
		writeFail(w, http.StatusBadRequest, apimodel.CodeInvalidRequest, msgMalformed)
		return
	}
	if err := users.ValidatePin(in.PinCode); err != nil {
		writeFail(w, http.StatusBadRequest, apimodel.CodeInvalidRequest, "PIN must be 6 digits.")
		return
	}

	hash, err := users.HashPin(in.PinCode)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if !s.accounts.update(in.UserID, func(a *account) { a.PinHash = hash }) {
		writeFail(w, http.StatusNotFound, apimodel.CodeUserNotFound, msgUserNotFound)
		return
	}
	writeJSON(w, http.StatusOK, apimodel.OK(struct{}{}))
}

func (s *Server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.accounts.get(userIDFrom(r.Context()))
	if !ok {
		writeFail(w, http.StatusNotFound, apimodel.CodeUserNotFound, msgUserNotFound)
		return
	}
	writeJSON(w, http.StatusOK, apimodel.OK(apimodel.UserInfo{
		UserID:      acc.ID,
		Username:    acc.Username,
		PhoneNumber: acc.Phone,
	}))
}

func (s *Server) handlePushRegister(w http.ResponseWriter, r *http.Request) {
	var in apimodel.PushTokenRequest
	if err := decodeBody(r, &in); err != nil || in.Token == "" {
		writeFail(w, http.StatusBadRequest, apimodel.CodeInvalidRequest, msgMalformed)
		return
	}
	if !s.accounts.update(userIDFrom(r.Context()), func(a *account) { a.PushToken = in.Token }) {
		writeFail(w, http.StatusNotFound, apimodel.CodeUserNotFound, msgUserNotFound)
		return
	}
	writeJSON(w, http.StatusOK, apimodel.OK(struct{}{}))
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.log.Error().Err(err).Msg("Request failed")
	writeFail(w, http.StatusInternalServerError, apimodel.CodeInternalFailure, msgInternalFailure)
}

func decodeBody(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func writeFail(w http.ResponseWriter, status, code int, message string) {
	writeJSON(w, status, apimodel.Fail(code, message))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
