package middlewares

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"bookstore-backend/auth"
	"bookstore-backend/models"
	"bookstore-backend/store"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TokenCookie = "token"
	userKey     = "user"
)

func abort(ctx *gin.Context, status int, message string) {
	ctx.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// IsAuth resolves the session token from the cookie or a Bearer header and
// loads the caller into the request context.
func IsAuth(tokens *auth.Tokens, users store.Users) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenStr := bearerOrCookie(ctx)
		if tokenStr == "" {
			abort(ctx, http.StatusUnauthorized, "Please login to access this resource")
			return
		}

		claims, err := tokens.ParseSession(tokenStr)
		if err != nil {
			abort(ctx, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		id, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			abort(ctx, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		user, err := users.GetUser(ctx.Request.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			abort(ctx, http.StatusUnauthorized, "User no longer exists")
			return
		}
		if err != nil {
			abort(ctx, http.StatusInternalServerError, err.Error())
			return
		}

		ctx.Set(userKey, user)
		ctx.Next()
	}
}

func bearerOrCookie(ctx *gin.Context) string {
	if token, err := ctx.Cookie(TokenCookie); err == nil && token != "" {
		return token
	}
	header := ctx.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// AuthorizeRoles must run after IsAuth.
func AuthorizeRoles(roles ...string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user := CurrentUser(ctx)
		if user == nil {
			abort(ctx, http.StatusUnauthorized, "Please login to access this resource")
			return
		}
		if !slices.Contains(roles, user.Role) {
			abort(ctx, http.StatusForbidden, "Role: "+user.Role+" is not allowed to access this resource")
			return
		}
		ctx.Next()
	}
}

// CurrentUser returns the caller loaded by IsAuth, or nil.
func CurrentUser(ctx *gin.Context) *models.User {
	v, ok := ctx.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
