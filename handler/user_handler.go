package handler

import (
	"net/http"
	"strconv"

	"cocity-api/common"
	"cocity-api/model"
	"cocity-api/service"
)

type UserHandler struct {
	service service.IProfileService
}

func NewUserHandler(service service.IProfileService) *UserHandler {
	return &UserHandler{service: service}
}

// GetProfile godoc
// @Summary      Get own profile
// @Description  Returns the profile of the authenticated user
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  model.ProfileResponse
// @Failure      401  {object}  common.AppError
// @Failure      404  {object}  common.AppError
// @Router       /api/user/profile [get]
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid user ID in token", nil)
	}
	return h.writeProfile(w, r, userID)
}

// GetProfileByID godoc
// @Summary      Get a profile
// @Description  Returns the profile of any user by id
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      int  true  "User ID"
// @Success      200     {object}  model.ProfileResponse
// @Failure      400     {object}  common.AppError
// @Failure      401     {object}  common.AppError
// @Failure      404     {object}  common.AppError
// @Router       /api/user/profile/{userId} [get]
func (h *UserHandler) GetProfileByID(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, err := strconv.Atoi(r.PathValue("userId"))
	if err != nil || userID < 1 {
		return common.NewAppError(http.StatusBadRequest, "Invalid user ID", err)
	}
	return h.writeProfile(w, r, userID)
}

func (h *UserHandler) writeProfile(w http.ResponseWriter, r *http.Request, userID int) *common.AppError {
	resp, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		return serviceError(err)
	}
	common.WriteJSON(w, http.StatusOK, resp)
	return nil
}

// UpdateProfile godoc
// @Summary      Update own profile
// @Description  Applies the fields present in the body; birthday is YYYY-MM-DD
// @Tags         user
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      model.UpdateProfileRequest  true  "Profile fields"
// @Success      200      {object}  model.MessageResponse
// @Failure      400      {object}  common.AppError
// @Failure      401      {object}  common.AppError
// @Failure      404      {object}  common.AppError
// @Router       /api/user/profile [put]
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid user ID in token", nil)
	}

	var req model.UpdateProfileRequest
	if appErr := common.ValidateAndDecode(w, r, &req); appErr != nil {
		return appErr
	}

	resp, err := h.service.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		return serviceError(err)
	}

	common.WriteJSON(w, http.StatusOK, resp)
	return nil
}
