package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joao-fontenele/storefront-api/internal/auth"
	"github.com/joao-fontenele/storefront-api/internal/domain"
	"github.com/joao-fontenele/storefront-api/internal/httpx"
	"github.com/joao-fontenele/storefront-api/internal/policy"
	"github.com/joao-fontenele/storefront-api/internal/storage"
)

const maxRegisterBytes = 5 << 20

type Handler struct {
	service *Service
	files   storage.Store
	urls    *storage.URLs
	logger  *slog.Logger
}

func NewHandler(service *Service, files storage.Store, urls *storage.URLs, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		files:   files,
		urls:    urls,
		logger:  logger,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, func(ctx context.Context, in RegisterInput) (*domain.User, error) {
		return h.service.Register(ctx, in)
	})
}

func (h *Handler) HandleRegisterShipper(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFrom(r.Context())
	if err := policy.Authorize(policy.UserRegisterShipper, caller, policy.Resource{}); err != nil {
		httpx.WriteFailure(w, h.logger, err, "shipper registration rejected", "caller_id", caller.ID)
		return
	}

	h.register(w, r, func(ctx context.Context, in RegisterInput) (*domain.User, error) {
		return h.service.RegisterShipper(ctx, caller, in)
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request, create func(context.Context, RegisterInput) (*domain.User, error)) {
	if err := r.ParseMultipartForm(maxRegisterBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid form")
		return
	}

	in, err := registerInputFromForm(r)
	if err != nil {
		httpx.WriteFailure(w, h.logger, err, "invalid registration form")
		return
	}

	if err := in.Validate(); err != nil {
		httpx.WriteFailure(w, h.logger, err, "invalid registration form")
		return
	}

	in.Avatar, err = h.saveAvatar(r)
	if err != nil {
		httpx.WriteFailure(w, h.logger, err, "failed to store avatar")
		return
	}

	if _, err := create(r.Context(), in); err != nil {
		h.discardAvatar(r, in.Avatar)
		httpx.WriteFailure(w, h.logger, err, "registration failed")
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, messageResponse{Message: "User created successfully"})
}

func registerInputFromForm(r *http.Request) (RegisterInput, error) {
	in := RegisterInput{
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
		FirstName:       r.PostFormValue("firstName"),
		LastName:        r.PostFormValue("lastName"),
	}

	if raw := strings.TrimSpace(r.PostFormValue("dateOfBirth")); raw != "" {
		dob, err := parseDate(raw)
		if err != nil {
			return RegisterInput{}, domain.Invalidf("dateOfBirth must be YYYY-MM-DD")
		}
		in.DateOfBirth = &dob
	}

	return in, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC().Truncate(24 * time.Hour), nil
}

func (h *Handler) saveAvatar(r *http.Request) (string, error) {
	file, header, err := r.FormFile("avatar")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return "", nil
	}
	if err != nil {
		return "", domain.Invalidf("invalid avatar")
	}
	defer func() { _ = file.Close() }()

	return h.files.Save(r.Context(), storage.DirAvatars, header.Filename, file)
}

// discardAvatar removes an avatar whose user was never created.
func (h *Handler) discardAvatar(r *http.Request, name string) {
	if name == "" {
		return
	}
	if err := h.files.Delete(context.WithoutCancel(r.Context()), storage.DirAvatars, name); err != nil {
		h.logger.Error("failed to remove orphaned avatar", "error", err, "avatar", name)
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteFailure(w, h.logger, err, "invalid login body")
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			h.logger.Info("login rejected")
			httpx.WriteError(w, h.logger, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		httpx.WriteFailure(w, h.logger, err, "login failed")
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, result)
}

func (h *Handler) HandleCurrentUser(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFrom(r.Context())

	user, err := h.service.Current(r.Context(), caller)
	if err != nil {
		httpx.WriteFailure(w, h.logger, err, "failed to load current user", "caller_id", caller.ID)
		return
	}

	user.AvatarURL = h.urls.Avatar(user.AvatarURL)
	httpx.WriteJSON(w, h.logger, http.StatusOK, user)
}
