package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/veletic/gatehouse/internal/domain"
	mw "github.com/veletic/gatehouse/internal/http/middleware"
	"github.com/veletic/gatehouse/internal/http/response"
)

// Login authenticates a staff member and sets the session cookie. The raw
// token only ever travels in the cookie; the server keeps its digest.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	token, session, user, err := h.auth.Login(r.Context(), &req, r.RemoteAddr)
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}

	setSessionCookie(w, mw.SessionCookie, token, session.ExpiresAt)
	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user":     user.ToUserInfo(),
		"building": session.Building,
	})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(mw.SessionCookie); err == nil {
		if err := h.auth.Logout(r.Context(), c.Value); err != nil {
			response.WriteDomainError(w, r, err)
			return
		}
	}
	clearSessionCookie(w, mw.SessionCookie)
	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Me returns the authenticated user and their active building.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user := mw.UserFrom(r)
	session := mw.SessionFrom(r)
	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user":     user.ToUserInfo(),
		"building": session.Building,
	})
}

func (h *Handlers) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Secret string `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	token, session, err := h.auth.AdminLogin(r.Context(), req.Secret)
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}

	setSessionCookie(w, mw.AdminSessionCookie, token, session.ExpiresAt)
	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "Admin session created"})
}

func (h *Handlers) AdminLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(mw.AdminSessionCookie); err == nil {
		if err := h.auth.AdminLogout(r.Context(), c.Value); err != nil {
			response.WriteDomainError(w, r, err)
			return
		}
	}
	clearSessionCookie(w, mw.AdminSessionCookie)
	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func setSessionCookie(w http.ResponseWriter, name, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
