package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/chirp-social/chirp/internal/auth"
	"github.com/chirp-social/chirp/internal/middleware"
	"github.com/chirp-social/chirp/internal/models"
	appErrors "github.com/chirp-social/chirp/pkg/errors"
	"github.com/chirp-social/chirp/pkg/response"
)

// UsersHandler serves profile reads and updates.
type UsersHandler struct {
	db    *gorm.DB
	creds *iauth.CredentialStore
}

func NewUsersHandler(db *gorm.DB, creds *iauth.CredentialStore) *UsersHandler {
	return &UsersHandler{db: db, creds: creds}
}

type updateMeRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	DateOfBirth *string `json:"date_of_birth" validate:"omitempty"`
	Bio         *string `json:"bio" validate:"omitempty,max=200"`
	Location    *string `json:"location" validate:"omitempty,max=200"`
	Website     *string `json:"website" validate:"omitempty,max=400"`
	Username    *string `json:"username" validate:"omitempty,username"`
	Avatar      *string `json:"avatar" validate:"omitempty,max=400"`
	CoverPhoto  *string `json:"cover_photo" validate:"omitempty,max=400"`
}

// publicProfile is the subset of a user record visible to anyone.
type publicProfile struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Username   *string `json:"username"`
	Bio        string  `json:"bio"`
	Location   string  `json:"location"`
	Website    string  `json:"website"`
	Avatar     string  `json:"avatar"`
	CoverPhoto string  `json:"cover_photo"`
}

// GET /api/users/me
func (h *UsersHandler) Me(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	user, err := h.creds.FindByID(requestContext(c), claims.UserID)
	if errors.Is(err, iauth.ErrUserNotFound) {
		response.Error(c, appErrors.ErrUserNotFound)
		return
	}
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Get me success", user)
}

// PATCH /api/users/me (verified users only)
func (h *UsersHandler) UpdateMe(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req updateMeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.DateOfBirth != nil {
		dob, err := parseDateOfBirth(*req.DateOfBirth)
		if err != nil {
			response.Error(c, appErrors.NewBadRequest("date of birth must be an ISO 8601 date"))
			return
		}
		updates["date_of_birth"] = dob
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}
	if req.Website != nil {
		updates["website"] = *req.Website
	}
	if req.Avatar != nil {
		updates["avatar"] = *req.Avatar
	}
	if req.CoverPhoto != nil {
		updates["cover_photo"] = *req.CoverPhoto
	}
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		available, err := h.creds.UsernameAvailable(requestContext(c), username)
		if err != nil {
			response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
			return
		}
		if !available {
			// Re-submitting your own current username is also a conflict;
			// clients only send the field when it changes.
			response.Error(c, appErrors.ErrUsernameAlreadyExists)
			return
		}
		updates["username"] = username
	}

	if len(updates) == 0 {
		response.Error(c, appErrors.NewBadRequest("no updatable fields provided"))
		return
	}

	err := h.db.WithContext(requestContext(c)).
		Model(&models.User{}).
		Where("id = ?", claims.UserID).
		Updates(updates).Error
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	user, err := h.creds.FindByID(requestContext(c), claims.UserID)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Update me success", user)
}

// GET /api/users/:username
func (h *UsersHandler) Profile(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))
	if username == "" {
		response.Error(c, appErrors.NewBadRequest("username is required"))
		return
	}

	user, err := h.creds.FindByUsername(requestContext(c), username)
	if errors.Is(err, iauth.ErrUserNotFound) {
		response.Error(c, appErrors.ErrUserNotFound)
		return
	}
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Get profile success", publicProfile{
		ID:         user.ID,
		Name:       user.Name,
		Username:   user.Username,
		Bio:        user.Bio,
		Location:   user.Location,
		Website:    user.Website,
		Avatar:     user.Avatar,
		CoverPhoto: user.CoverPhoto,
	})
}
