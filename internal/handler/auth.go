package handler

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/pkg/errors"

    "github.com/iliyamo/campus-events/internal/config"
    "github.com/iliyamo/campus-events/internal/middleware"
    "github.com/iliyamo/campus-events/internal/model"
    "github.com/iliyamo/campus-events/internal/repository"
    "github.com/iliyamo/campus-events/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Cfg    config.Config
    Users  *repository.UserRepo
    Tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
    Email    string `json:"email" validate:"required,email,max=191"`
    Password string `json:"password" validate:"required,min=8,max=72"`
    FullName string `json:"full_name" validate:"notblank,max=120"`
    Role     string `json:"role" validate:"omitempty,oneof=STUDENT COLLEGE student college"` // STUDENT | COLLEGE
}
type loginReq struct {
    Email    string `json:"email" validate:"required,email"`
    Password string `json:"password" validate:"required"`
}
type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type userPart struct {
    ID       uint64 `json:"id"`
    Email    string `json:"email"`
    FullName string `json:"full_name"`
    Role     string `json:"role"`
}
type authResp struct {
    User    userPart  `json:"user"`
    Access  tokenPart `json:"access"`
    Refresh tokenPart `json:"refresh"`
}

func toUserPart(u model.User) userPart {
    return userPart{ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role}
}

// issuePair creates an access token and a stored refresh token for u.
// mint creates an access and refresh pair without persisting anything.
func (h *AuthHandler) mint(u model.User) (authResp, error) {
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
    if err != nil {
        return authResp{}, errors.Wrap(err, "issue access")
    }
    refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return authResp{}, errors.Wrap(err, "issue refresh")
    }
    return authResp{
        User:    toUserPart(u),
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
    }, nil
}

func (h *AuthHandler) issuePair(ctx context.Context, u model.User) (authResp, error) {
    resp, err := h.mint(u)
    if err != nil {
        return authResp{}, err
    }
    if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(resp.Refresh.Token), resp.Refresh.Expires); err != nil {
        return authResp{}, errors.Wrap(err, "save refresh")
    }
    return resp, nil
}

// Register: create user and return tokens immediately.  ADMIN cannot be
// requested; it is seeded from the environment at startup.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    role := model.NormalizeRole(strings.ToUpper(strings.TrimSpace(req.Role)))

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    uid, err := h.Users.Create(ctx, req.Email, req.Password, req.FullName, role, h.Cfg.BcryptCost)
    if err != nil {
        return err
    }
    u := model.User{ID: uid, Email: repository.NormalizeEmail(req.Email), FullName: strings.TrimSpace(req.FullName), Role: role, IsActive: true}
    resp, err := h.issuePair(ctx, u)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, resp)
}

// Login: verify and return new pair.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if errors.Is(err, repository.ErrUserNotFound) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }
    if err != nil {
        return err
    }
    if !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }
    if !u.IsActive {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "account disabled"})
    }
    if utils.NeedsRehash(u.PasswordHash, h.Cfg.BcryptCost) {
        if err := h.Users.UpdatePassword(ctx, u.ID, req.Password, h.Cfg.BcryptCost); err != nil {
            c.Logger().Warnf("rehash password for user %d: %v", u.ID, err)
        }
    }

    resp, err := h.issuePair(ctx, u)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, resp)
}

// activeUserForRefresh validates a raw refresh token and loads its owner.
func (h *AuthHandler) activeUserForRefresh(ctx context.Context, raw string) (model.User, string, error) {
    hash := utils.HashRefreshRaw(raw)
    userID, err := h.Tokens.ValidateRefresh(ctx, hash)
    if err != nil {
        return model.User{}, "", repository.ErrRefreshInvalid
    }
    u, err := h.Users.GetByID(ctx, userID)
    if errors.Is(err, repository.ErrUserNotFound) || (err == nil && !u.IsActive) {
        return model.User{}, "", repository.ErrRefreshInvalid
    }
    return u, hash, err
}

// Refresh: validate by hash, revoke old, issue new.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, hash, err := h.activeUserForRefresh(ctx, strings.TrimSpace(req.RefreshToken))
    if err != nil {
        return err
    }
    resp, err := h.mint(u)
    if err != nil {
        return err
    }
    if err := h.Tokens.Rotate(ctx, u.ID, hash, utils.HashRefreshRaw(resp.Refresh.Token), resp.Refresh.Expires); err != nil {
        return err
    }
    return c.JSON(http.StatusOK, resp)
}

// RefreshAccess returns a new access token without rotating the refresh
// token.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, _, err := h.activeUserForRefresh(ctx, strings.TrimSpace(req.RefreshToken))
    if err != nil {
        return err
    }
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{
        "access": tokenPart{Token: access.Token, Expires: access.Exp},
    })
}

// Logout revokes a single refresh token when one is posted, otherwise all
// refresh tokens of the bearer.  The route is public so an expired access
// token does not block a single-session logout.
func (h *AuthHandler) Logout(c echo.Context) error {
    var uid uint64
    if raw := strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer "); raw != "" {
        if id, err := utils.ParseAccessToken(h.Cfg.JWTSecret, raw); err == nil {
            uid = id.UserID
        }
    }

    var req refreshReq
    _ = c.Bind(&req)
    refreshToken := strings.TrimSpace(req.RefreshToken)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    switch {
    case refreshToken != "":
        hash := utils.HashRefreshRaw(refreshToken)
        if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
        }
        if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
            return err
        }
    case uid != 0:
        if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
            return err
        }
    default:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide Authorization header or refresh_token"})
    }
    return c.NoContent(http.StatusNoContent)
}

// Me returns the profile of the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
    uid, ok := middleware.UserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByID(ctx, uid)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, toUserPart(u))
}
