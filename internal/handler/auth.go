package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/theadityachoudhury/auth-service/internal/logging"
	"github.com/theadityachoudhury/auth-service/internal/response"
	"github.com/theadityachoudhury/auth-service/internal/service"
	"github.com/theadityachoudhury/auth-service/internal/token"
)

// claimsContextKey is where BearerAuth stores verified claims on the Echo
// context.
const claimsContextKey = "auth.claims"

// AuthHandler serves registration, login, token refresh and the
// authenticated profile endpoint.
type AuthHandler struct {
	Users    *service.UserService
	Tokens   *token.Service
	Log      *logging.Logger
	validate *validator.Validate
}

// NewAuthHandler wires the handler.
func NewAuthHandler(users *service.UserService, tokens *token.Service, log *logging.Logger) *AuthHandler {
	return &AuthHandler{Users: users, Tokens: tokens, Log: log, validate: validator.New()}
}

type registerRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	Username  *string `json:"username,omitempty"`
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name" validate:"required"`
	Password  string  `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Register creates an account (POST /auth/register).
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid JSON body", err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		return response.BadRequest(c, "validation failed", err.Error())
	}

	u, err := h.Users.Register(c.Request().Context(), service.RegisterInput{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		var policyErr *service.PolicyError
		switch {
		case errors.As(err, &policyErr):
			return response.BadRequest(c, "password rejected", policyErr.Error())
		case errors.Is(err, service.ErrEmailTaken), errors.Is(err, service.ErrUsernameTaken):
			return response.Conflict(c, "account already exists", err.Error())
		default:
			h.Log.Ctx(c.Request().Context()).Error().Err(err).Msg("register failed")
			return response.InternalError(c, "failed to create user", "internal error")
		}
	}
	return response.Created(c, u.Public(), "user created")
}

// Login authenticates and returns a token pair (POST /auth/login).
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid JSON body", err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		return response.BadRequest(c, "validation failed", err.Error())
	}

	ctx := c.Request().Context()
	u, err := h.Users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			return response.Unauthorized(c, "login failed", "invalid email or password")
		case errors.Is(err, service.ErrInactiveAccount):
			return response.Forbidden(c, "login failed", "account is inactive")
		default:
			h.Log.Ctx(ctx).Error().Err(err).Msg("login failed")
			return response.InternalError(c, "login failed", "internal error")
		}
	}

	// Subsequent log lines for this request carry the caller's id.
	ctx = logging.WithUserID(ctx, strconv.FormatInt(u.ID, 10))
	c.SetRequest(c.Request().WithContext(ctx))

	pair, err := h.issuePair(ctx, u.ID)
	if err != nil {
		h.Log.Ctx(ctx).Error().Err(err).Msg("token issue failed")
		return response.InternalError(c, "token issue failed", "internal error")
	}
	return response.OK(c, pair, "login successful")
}

// Refresh exchanges a refresh token for a new pair (POST /auth/refresh).
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid JSON body", err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		return response.BadRequest(c, "validation failed", err.Error())
	}

	claims, err := h.Tokens.Verify(req.RefreshToken, token.TypeRefresh)
	if err != nil {
		return response.Unauthorized(c, "refresh failed", "invalid refresh token")
	}
	id, err := claims.UserID()
	if err != nil {
		return response.Unauthorized(c, "refresh failed", "invalid refresh token")
	}

	ctx := c.Request().Context()
	pair, err := h.issuePair(ctx, id)
	if err != nil {
		if errors.Is(err, errAccountUnavailable) {
			return response.Unauthorized(c, "refresh failed", "account unavailable")
		}
		h.Log.Ctx(ctx).Error().Err(err).Msg("token issue failed")
		return response.InternalError(c, "token issue failed", "internal error")
	}
	return response.OK(c, pair, "token refreshed")
}

// Me returns the authenticated user's profile (GET /auth/me). Requires
// BearerAuth.
func (h *AuthHandler) Me(c echo.Context) error {
	claims, ok := c.Get(claimsContextKey).(*token.Claims)
	if !ok {
		return response.Unauthorized(c, "authentication required", "missing bearer token")
	}
	id, err := claims.UserID()
	if err != nil {
		return response.Unauthorized(c, "authentication required", "invalid token subject")
	}
	u, err := h.Users.GetByID(c.Request().Context(), id)
	if err != nil {
		h.Log.Ctx(c.Request().Context()).Error().Err(err).Msg("load profile failed")
		return response.InternalError(c, "failed to load profile", "internal error")
	}
	if u == nil {
		return response.NotFound(c, "user not found", "account no longer exists")
	}
	return response.OK(c, u.Public(), "")
}

var errAccountUnavailable = errors.New("account unavailable")

// issuePair loads the user and signs both tokens.
func (h *AuthHandler) issuePair(ctx context.Context, userID int64) (*tokenPairResponse, error) {
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.IsActive {
		return nil, errAccountUnavailable
	}

	access, err := h.Tokens.IssueAccessToken(u)
	if err != nil {
		return nil, err
	}
	refresh, err := h.Tokens.IssueRefreshToken(u)
	if err != nil {
		return nil, err
	}
	return &tokenPairResponse{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// BearerAuth verifies the Authorization header, stores the claims on the
// context, and tags the request context with the user id so log records
// emitted while handling the request carry it.
func BearerAuth(tokens *token.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authz := c.Request().Header.Get(echo.HeaderAuthorization)
			const prefix = "Bearer "
			if !strings.HasPrefix(authz, prefix) {
				return response.Unauthorized(c, "authentication required", "missing bearer token")
			}
			claims, err := tokens.Verify(strings.TrimPrefix(authz, prefix), token.TypeAccess)
			if err != nil {
				return response.Unauthorized(c, "authentication required", "invalid or expired token")
			}
			c.Set(claimsContextKey, claims)
			c.SetRequest(c.Request().WithContext(
				logging.WithUserID(c.Request().Context(), claims.Subject)))
			return next(c)
		}
	}
}
