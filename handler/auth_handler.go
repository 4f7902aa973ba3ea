package handler

import (
	"net"
	"net/http"
	"strings"

	"cocity-api/common"
	"cocity-api/model"
	"cocity-api/service"
)

type AuthHandler struct {
	service service.IAuthService
}

func NewAuthHandler(service service.IAuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// Register godoc
// @Summary      Register a new user
// @Description  Creates an active user with a hashed password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      model.RegisterRequest  true  "Credentials"
// @Success      200      {object}  model.RegisterResponse
// @Failure      400      {object}  common.AppError
// @Failure      409      {object}  common.AppError
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RegisterRequest
	if appErr := common.ValidateAndDecode(w, r, &req); appErr != nil {
		return appErr
	}

	LoggerFromContext(r.Context()).WithField("username", req.Username).Info("Register request received")

	resp, err := h.service.Register(r.Context(), req.Username, req.Password, ClientIP(r))
	if err != nil {
		return serviceError(err)
	}

	common.WriteJSON(w, http.StatusOK, resp)
	return nil
}

// Login godoc
// @Summary      Log in
// @Description  Exchanges username and password for an access token and a refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      model.LoginRequest  true  "Credentials"
// @Success      200      {object}  model.LoginResponse
// @Failure      400      {object}  common.AppError
// @Failure      401      {object}  common.AppError
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LoginRequest
	if appErr := common.ValidateAndDecode(w, r, &req); appErr != nil {
		return appErr
	}

	resp, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		return serviceError(err)
	}

	common.WriteJSON(w, http.StatusOK, resp)
	return nil
}

// Refresh godoc
// @Summary      Refresh tokens
// @Description  Rotates the refresh token and issues a new access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      model.RefreshRequest  true  "Refresh token"
// @Success      200      {object}  model.RefreshResponse
// @Failure      400      {object}  common.AppError
// @Failure      401      {object}  common.AppError
// @Router       /api/auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid user ID in token", nil)
	}

	var req model.RefreshRequest
	if appErr := common.ValidateAndDecode(w, r, &req); appErr != nil {
		return appErr
	}

	resp, err := h.service.Refresh(r.Context(), req.RefreshToken, userID)
	if err != nil {
		return serviceError(err)
	}

	common.WriteJSON(w, http.StatusOK, resp)
	return nil
}

// Logout godoc
// @Summary      Log out
// @Description  Revokes the given refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      model.LogoutRequest  true  "Refresh token"
// @Success      200      {object}  model.MessageResponse
// @Failure      400      {object}  common.AppError
// @Failure      401      {object}  common.AppError
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid user ID in token", nil)
	}

	var req model.LogoutRequest
	if appErr := common.ValidateAndDecode(w, r, &req); appErr != nil {
		return appErr
	}

	resp, err := h.service.Logout(r.Context(), req.RefreshToken, userID)
	if err != nil {
		return serviceError(err)
	}

	common.WriteJSON(w, http.StatusOK, resp)
	return nil
}

// ChangePassword godoc
// @Summary      Change password
// @Description  Replaces the password and revokes every refresh token of the user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      model.ChangePasswordRequest  true  "Old and new password"
// @Success      200      {object}  model.MessageResponse
// @Failure      400      {object}  common.AppError
// @Failure      401      {object}  common.AppError
// @Router       /api/auth/changepwd [post]
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid user ID in token", nil)
	}

	var req model.ChangePasswordRequest
	if appErr := common.ValidateAndDecode(w, r, &req); appErr != nil {
		return appErr
	}

	resp, err := h.service.ChangePassword(r.Context(), req.OldPassword, req.NewPassword, req.RefreshToken, userID)
	if err != nil {
		return serviceError(err)
	}

	common.WriteJSON(w, http.StatusOK, resp)
	return nil
}

// ClientIP returns the first X-Forwarded-For entry, falling back to the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
