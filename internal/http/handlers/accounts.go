package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/garbagewatch/internal/domain/user"
	"github.com/geocoder89/garbagewatch/internal/http/middlewares"
	"github.com/geocoder89/garbagewatch/internal/security"
	"github.com/geocoder89/garbagewatch/internal/service/accounts"
	"github.com/gin-gonic/gin"
)

// bcrypt dominates register and login
const authTimeout = 3 * time.Second

type AccountService interface {
	Register(ctx context.Context, req user.RegisterRequest) (user.User, string, error)
	Login(ctx context.Context, email, password string) (user.User, string, error)
}

type AccountsHandler struct {
	accounts AccountService
	log      *slog.Logger
}

func NewAccountsHandler(svc AccountService, log *slog.Logger) *AccountsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AccountsHandler{accounts: svc, log: log}
}

type authResponse struct {
	Token string       `json:"token"`
	User  user.Summary `json:"user"`
}

func (h *AccountsHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	u, token, err := h.accounts.Register(cctx, req)
	if err != nil {
		if errors.Is(err, accounts.ErrEmailTaken) {
			RespondError(ctx, http.StatusBadRequest, "email_taken", "Email already exists", nil)
			return
		}

		if errors.Is(err, accounts.ErrPasswordTooLong) {
			RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": []FieldError{{
				Field:   "password",
				Rule:    "max_bytes",
				Param:   strconv.Itoa(security.MaxPasswordBytes),
				Message: "must be at most " + strconv.Itoa(security.MaxPasswordBytes) + " bytes",
			}}})
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "register failed", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	ctx.JSON(http.StatusCreated, authResponse{Token: token, User: u.Summary()})
}

func (h *AccountsHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	u, token, err := h.accounts.Login(cctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			RespondUnauthorized(ctx, "invalid_credentials", "Invalid email or password")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "login failed", "err", err)
		RespondInternal(ctx, "Could not log in")
		return
	}

	ctx.JSON(http.StatusOK, authResponse{Token: token, User: u.Summary()})
}

// Me returns the caller resolved by the auth middleware.
func (h *AccountsHandler) Me(ctx *gin.Context) {
	u, ok := middlewares.UserFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Please authenticate")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u.Profile()})
}
