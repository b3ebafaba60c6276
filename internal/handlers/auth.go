package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/anhbaysgalan1/holdem/internal/auth"
	"github.com/anhbaysgalan1/holdem/internal/models"
	"github.com/anhbaysgalan1/holdem/internal/services"
	"github.com/anhbaysgalan1/holdem/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// AccountService is the account store behind the auth endpoints.
type AccountService interface {
	RegisterUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error)
	LoginUser(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

type AuthHandler struct {
	authService AccountService
}

func NewAuthHandler(authService AccountService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.Register)
	r.Post("/login", h.Login)

	return r
}

func (h *AuthHandler) ProtectedRoutes() chi.Router {
	r := chi.NewRouter()

	r.Get("/me", h.GetCurrentUser)

	return r
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := validation.Validate(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.authService.RegisterUser(r.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrUserExists) {
			writeErrorResponse(w, http.StatusConflict, err.Error())
			return
		}
		slog.Error("Failed to register user", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	writeJSONResponse(w, http.StatusCreated, map[string]interface{}{
		"message": "User registered successfully",
		"user":    user,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := validation.Validate(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	loginResponse, err := h.authService.LoginUser(r.Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeErrorResponse(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		slog.Error("Failed to log in", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	writeJSONResponse(w, http.StatusOK, loginResponse)
}

func (h *AuthHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	user, err := h.authService.GetUserByID(r.Context(), userID)
	if err != nil {
		writeErrorResponse(w, http.StatusNotFound, "User not found")
		return
	}

	writeJSONResponse(w, http.StatusOK, user)
}
