package server

import (
	"context"
	"net/http"

	"tailscale.com/client/local"
)

// UserInfo is the resolved identity of the requesting user.
type UserInfo struct {
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

type ctxKey int

const (
	userIDKey ctxKey = iota
	userInfoKey
)

// userIDFromContext returns the user id stored by identity middleware.
// Requests that bypassed identity resolution run as user 1.
func userIDFromContext(r *http.Request) int {
	if id, ok := r.Context().Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// userInfoFromContext returns the identity stored by identity middleware,
// falling back to the local dev user.
func userInfoFromContext(r *http.Request) UserInfo {
	if info, ok := r.Context().Value(userInfoKey).(UserInfo); ok {
		return info
	}
	return UserInfo{Login: "local", DisplayName: "Local Dev User"}
}

// mustUserID extracts the authenticated user id, writing an error response
// when no identity is available.
func mustUserID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id := userIDFromContext(r)
	if id <= 0 {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no user identity"})
		return 0, false
	}
	return id, true
}

// DevIdentity runs every request as user 1, enabling local development
// without Tailscale.
func DevIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), userIDKey, 1)
		ctx = context.WithValue(ctx, userInfoKey, UserInfo{Login: "local", DisplayName: "Local Dev User"})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetTailscale attaches the tailnet client used to resolve request identity.
// Until a client is attached, requests run under DevIdentity.
func (s *Server) SetTailscale(lc *local.Client) {
	s.tsMu.Lock()
	s.ts = lc
	s.tsMu.Unlock()
}

func (s *Server) tailnet() *local.Client {
	s.tsMu.Lock()
	defer s.tsMu.Unlock()
	return s.ts
}

// identity resolves the requesting user and stores their id and profile in
// the request context. With a tailnet client attached the peer is looked up
// via WhoIs and mapped to a user row; otherwise the local dev user is used.
func (s *Server) identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lc := s.tailnet()
		if lc == nil {
			DevIdentity(next).ServeHTTP(w, r)
			return
		}

		who, err := lc.WhoIs(r.Context(), r.RemoteAddr)
		if err != nil || who.UserProfile == nil {
			s.log.Warn("tailscale whois failed", "remote", r.RemoteAddr, "error", err)
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "could not resolve tailnet identity"})
			return
		}

		info := UserInfo{Login: who.UserProfile.LoginName, DisplayName: who.UserProfile.DisplayName}
		uid, err := s.db.GetOrCreateUser(r.Context(), info.Login, info.DisplayName)
		if err != nil {
			s.log.Error("user lookup failed", "login", info.Login, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "user lookup failed"})
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, uid)
		ctx = context.WithValue(ctx, userInfoKey, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}
