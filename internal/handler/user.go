package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Reymilan15/milos-cuentas/internal/domain"
	"github.com/Reymilan15/milos-cuentas/internal/logging"
)

type userStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, u *domain.User) error
}

type UserHandler struct {
	users userStore
}

func NewUserHandler(users userStore) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, appErr := currentUser(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to get user", "error", err)
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	RespondSuccess(w, http.StatusOK, toUserDTO(user))
}

// updateProfileRequest edits the display name. A missing or blank field keeps
// the stored value.
type updateProfileRequest struct {
	Name     *string `json:"name"`
	Lastname *string `json:"lastname"`
}

func (r updateProfileRequest) Validate() []FieldError {
	var errs []FieldError
	if blank(r.Name) && blank(r.Lastname) {
		errs = append(errs, FieldError{Field: "name", Message: "name or lastname required"})
	}
	if r.Name != nil && utf8.RuneCountInString(strings.TrimSpace(*r.Name)) > domain.MaxNameLength {
		errs = append(errs, FieldError{Field: "name", Message: "must be at most 100 characters"})
	}
	if r.Lastname != nil && utf8.RuneCountInString(strings.TrimSpace(*r.Lastname)) > domain.MaxNameLength {
		errs = append(errs, FieldError{Field: "lastname", Message: "must be at most 100 characters"})
	}
	return errs
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, appErr := currentUser(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	ctx := r.Context()
	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			RespondAppError(w, ErrResourceNotFound, nil)
			return
		}
		RespondDomainError(w, err)
		return
	}

	user.ApplyProfile(deref(req.Name), deref(req.Lastname))
	if err := h.users.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			RespondAppError(w, ErrResourceNotFound, nil)
			return
		}
		logging.FromContext(ctx).Error("failed to update profile", "error", err)
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	logging.FromContext(ctx).Info("profile updated", "user_id", userID)
	RespondSuccess(w, http.StatusOK, toUserDTO(user))
}
