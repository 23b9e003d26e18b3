package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/GoArmGo/AuthService/internal/domain"
	"github.com/GoArmGo/AuthService/internal/usecase"
	"github.com/go-chi/chi/v5"
)

const (
	maxBodyBytes = 1 << 20

	msgInvalidBody   = "Invalid request body"
	msgInternalError = "Internal server error"
	msgInvalidToken  = "Invalid or expired token"
	msgRegistered    = "User registered successfully!"
	msgAuthenticated = "User authenticated"
	msgResetLinkSent = "Password reset link sent to your email!"
	msgPasswordReset = "Password reset successfully"
)

// AccountHandler — обработчик HTTP-запросов аккаунтов (/api/auth).
type AccountHandler struct {
	accounts usecase.AccountUseCase
	logger   *slog.Logger
}

// NewAccountHandler создаёт новый экземпляр AccountHandler.
func NewAccountHandler(uc usecase.AccountUseCase, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accounts: uc,
		logger:   logger.With("component", "handler"),
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// respondWithJSON — отправляет JSON-ответ клиенту.
func respondWithJSON(w http.ResponseWriter, code int, payload any, logger *slog.Logger) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		logger.Error("failed to marshal JSON response", "error", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err = w.Write(response); err != nil {
		logger.Error("failed to write HTTP response", "error", err)
	}
}

// respondWithError — отправляет JSON-ответ с ошибкой.
// Ключ тот же, что у успешных ответов: клиент читает только "message".
func respondWithError(w http.ResponseWriter, code int, message string, logger *slog.Logger) {
	respondWithMessage(w, code, message, logger)
}

func respondWithMessage(w http.ResponseWriter, code int, message string, logger *slog.Logger) {
	respondWithJSON(w, code, map[string]string{"message": message}, logger)
}

// decodeJSON читает тело запроса; пустое тело считается пустым объектом
func decodeJSON(r *http.Request, w http.ResponseWriter, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// statusFor переводит вид ошибки в HTTP-статус и текст для клиента.
// Внутренние причины (AccountError.Err) наружу не попадают.
func statusFor(err error) (int, string) {
	msg := domain.MessageOf(err)
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest, msg
	case domain.KindConflict:
		return http.StatusConflict, msg
	case domain.KindNotFound:
		return http.StatusNotFound, msg
	case domain.KindInvalidCredentials:
		return http.StatusUnauthorized, msg
	case domain.KindStoreFailure, domain.KindNotificationFailure:
		if msg == "" {
			msg = msgInternalError
		}
		return http.StatusInternalServerError, msg
	default:
		return http.StatusInternalServerError, msgInternalError
	}
}

func (h *AccountHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		h.logger.Info("request rejected", "path", r.URL.Path, "status", code, "reason", msg)
	}
	respondWithError(w, code, msg, h.logger)
}

// Register — POST /signup
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in usecase.RegisterInput
	if err := decodeJSON(r, w, &in); err != nil {
		h.logger.Warn("invalid signup body", "error", err)
		respondWithError(w, http.StatusBadRequest, msgInvalidBody, h.logger)
		return
	}

	if err := h.accounts.Register(r.Context(), in); err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithMessage(w, http.StatusCreated, msgRegistered, h.logger)
}

// Login — POST /login
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, w, &req); err != nil {
		h.logger.Warn("invalid login body", "error", err)
		respondWithError(w, http.StatusBadRequest, msgInvalidBody, h.logger)
		return
	}

	if err := h.accounts.Authenticate(r.Context(), req.Username, req.Password); err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithMessage(w, http.StatusOK, msgAuthenticated, h.logger)
}

// ForgotPassword — POST /forgot-password
func (h *AccountHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, w, &req); err != nil {
		h.logger.Warn("invalid forgot-password body", "error", err)
		respondWithError(w, http.StatusBadRequest, msgInvalidBody, h.logger)
		return
	}

	if err := h.accounts.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithMessage(w, http.StatusOK, msgResetLinkSent, h.logger)
}

// ResetPassword — POST /reset-password.
// Неизвестный или использованный токен — 400, а не 404.
func (h *AccountHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, w, &req); err != nil {
		h.logger.Warn("invalid reset-password body", "error", err)
		respondWithError(w, http.StatusBadRequest, msgInvalidBody, h.logger)
		return
	}

	err := h.accounts.ResetPassword(r.Context(), req.Token, req.NewPassword)
	if errors.Is(err, domain.ErrNotFound) {
		h.logger.Info("request rejected", "path", r.URL.Path, "reason", msgInvalidToken)
		respondWithError(w, http.StatusBadRequest, msgInvalidToken, h.logger)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithMessage(w, http.StatusOK, msgPasswordReset, h.logger)
}

// GetUser — GET /user/{username}
func (h *AccountHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(chi.URLParam(r, "username"))

	user, err := h.accounts.GetUserByUsername(r.Context(), username)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user, h.logger)
}

// Health — GET /healthz
func (h *AccountHandler) Health(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"}, h.logger)
}

// Routes монтирует маршруты аккаунтов на переданный роутер
func (h *AccountHandler) Routes(r chi.Router) {
	r.Post("/signup", h.Register)
	r.Post("/login", h.Login)
	r.Post("/forgot-password", h.ForgotPassword)
	r.Post("/reset-password", h.ResetPassword)
	r.Get("/user/{username}", h.GetUser)
}
