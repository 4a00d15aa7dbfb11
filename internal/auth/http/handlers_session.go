package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tasklane/tasklane-backend/internal/auth"
	"github.com/tasklane/tasklane-backend/internal/auth/domain"
	"github.com/tasklane/tasklane-backend/internal/logging"
	"github.com/tasklane/tasklane-backend/internal/users"
)

// SignIn opens a session with the bearer token the request was authenticated
// with and records the user in the directory.
func (h *Handler) SignIn(c *gin.Context) {
	uid := auth.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.sessions.SignIn(ctx, uid, auth.IDToken(c))
	if err != nil {
		logging.New(ctx, "auth-http").LogErrorf("sign-in", "uid=%s error=%v", uid, err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "sign-in failed"})
		return
	}

	resp := gin.H{"user": user}
	if h.directory != nil {
		// The session is already open; a directory outage only loses the profile id.
		id, err := h.directory.EnsureUser(ctx, user)
		if err != nil {
			logging.New(ctx, "auth-http").LogWarnf("ensure-user", "uid=%s error=%v", uid, err)
		} else {
			resp["profile_id"] = id
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) SignOut(c *gin.Context) {
	uid := auth.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	err := h.sessions.SignOut(c.Request.Context(), uid)
	if errors.Is(err, domain.ErrNotSignedIn) {
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		logging.New(c.Request.Context(), "auth-http").LogErrorf("sign-out", "uid=%s error=%v", uid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign-out failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Me returns the signed-in user and, when a directory is configured, the
// stored profile.
func (h *Handler) Me(c *gin.Context) {
	uid := auth.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	user := h.sessions.User(uid)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
		return
	}

	resp := gin.H{"user": user}
	if h.directory != nil {
		profile, err := h.directory.GetByFirebaseUID(c.Request.Context(), uid)
		switch {
		case err == nil:
			resp["profile"] = profile
		case !errors.Is(err, users.ErrNotFound):
			logging.New(c.Request.Context(), "auth-http").LogWarnf("get-profile", "uid=%s error=%v", uid, err)
		}
	}
	c.JSON(http.StatusOK, resp)
}
