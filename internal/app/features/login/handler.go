// internal/app/features/login/handler.go
package login

import (
	"net/http"

	userstore "github.com/peerhub/peerhub/internal/app/store/users"
	"github.com/peerhub/peerhub/internal/app/system/auditlog"
	"github.com/peerhub/peerhub/internal/app/system/auth"
	"github.com/peerhub/peerhub/internal/app/system/httpjson"
	"github.com/peerhub/peerhub/internal/app/system/normalize"
	"github.com/peerhub/peerhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Handler serves password sign-in and account registration.
type Handler struct {
	Users      *userstore.Store
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	Log        *zap.Logger
}

func NewHandler(users *userstore.Store, sessionMgr *auth.SessionManager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:      users,
		SessionMgr: sessionMgr,
		AuditLog:   audit,
		Log:        logger,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:       u.ID.Hex(),
		FullName: u.FullName,
		Email:    u.Email,
		Role:     u.Role,
	}
}

// ServeLogin handles POST /login. Wrong email and wrong password report
// the same 401 body so the endpoint doesn't leak which emails exist; the
// audit log records which it was.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if !httpjson.Decode(w, r, &creds) {
		return
	}

	user, err := h.Users.GetByEmail(r.Context(), creds.Email)
	if err == mongo.ErrNoDocuments {
		h.AuditLog.LoginFailedUserNotFound(r.Context(), r, normalize.Email(creds.Email))
		httpjson.Write(w, http.StatusUnauthorized, map[string]string{"error": "invalid email or password"})
		return
	}
	if err != nil {
		h.Log.Error("login: user lookup failed", zap.Error(err))
		httpjson.Write(w, http.StatusServiceUnavailable, map[string]string{"error": "service temporarily unavailable"})
		return
	}

	if user.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)) != nil {
		h.AuditLog.LoginFailedWrongPassword(r.Context(), r, user.ID, user.Email)
		httpjson.Write(w, http.StatusUnauthorized, map[string]string{"error": "invalid email or password"})
		return
	}

	if err := h.signIn(w, r, user); err != nil {
		h.Log.Error("login: session save failed", zap.Error(err), zap.String("user_id", user.ID.Hex()))
		httpjson.Write(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	h.AuditLog.LoginSuccess(r.Context(), r, user.ID, "password", user.Email)
	httpjson.Write(w, http.StatusOK, toUserResponse(user))
}

type registration struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

const minPasswordLen = 8

// ServeRegister handles POST /register. New accounts always start as
// researchers; reviewer status only arrives through the application
// workflow.
func (h *Handler) ServeRegister(w http.ResponseWriter, r *http.Request) {
	var reg registration
	if !httpjson.Decode(w, r, &reg) {
		return
	}

	fields := map[string]string{}
	if normalize.Name(reg.FullName) == "" {
		fields["full_name"] = "full name is required"
	}
	if normalize.Email(reg.Email) == "" {
		fields["email"] = "email is required"
	}
	if len(reg.Password) < minPasswordLen {
		fields["password"] = "password must be at least 8 characters"
	}
	if len(fields) > 0 {
		httpjson.Write(w, http.StatusUnprocessableEntity, map[string]any{"error": "validation failed", "fields": fields})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		h.Log.Error("register: hash failed", zap.Error(err))
		httpjson.Write(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	user, err := h.Users.Create(r.Context(), models.User{
		FullName:     reg.FullName,
		Email:        reg.Email,
		AuthMethod:   "password",
		Status:       "active",
		PasswordHash: string(hash),
	})
	if err == userstore.ErrDuplicateEmail {
		httpjson.Write(w, http.StatusConflict, map[string]string{"error": "an account with this email already exists"})
		return
	}
	if err != nil {
		h.Log.Error("register: create failed", zap.Error(err))
		httpjson.Write(w, http.StatusServiceUnavailable, map[string]string{"error": "service temporarily unavailable"})
		return
	}

	if err := h.signIn(w, r, &user); err != nil {
		h.Log.Error("register: session save failed", zap.Error(err), zap.String("user_id", user.ID.Hex()))
		httpjson.Write(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	h.AuditLog.LoginSuccess(r.Context(), r, user.ID, "password", user.Email)
	httpjson.Write(w, http.StatusCreated, toUserResponse(&user))
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, u *models.User) error {
	return h.SessionMgr.SignIn(w, r, auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.FullName,
		Email: u.Email,
		Role:  u.Role,
	})
}
