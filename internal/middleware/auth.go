package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"studybud/internal/models"
	"studybud/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const CheckUserKey = "user"
const UnreadCountKey = "unread_count"

// SessionUserKey is the session field holding the logged-in user's id.
const SessionUserKey = "user_id"

// CurrentUser returns the user LoadUser or APIAuth put on the context.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(CheckUserKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// AuthRequired redirects anonymous visitors to the login page.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// LoadUser retrieves user from session and sets to context. A session that
// points at a missing user is cleared.
func LoadUser(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get(SessionUserKey)

		if userID != nil {
			var user models.User
			err := gdb.WithContext(c.Request.Context()).First(&user, userID).Error
			switch {
			case err == nil:
				c.Set(CheckUserKey, &user)

				var count int64
				err := gdb.WithContext(c.Request.Context()).Model(&models.Notification{}).
					Where("user_id = ? AND is_read = ?", user.ID, false).
					Count(&count).Error
				if err != nil {
					c.Error(fmt.Errorf("count unread notifications: %w", err))
				}
				c.Set(UnreadCountKey, count)
			case errors.Is(err, gorm.ErrRecordNotFound):
				session.Delete(SessionUserKey)
				session.Save()
			default:
				// keep the session; the next request may reach the database
				c.Error(fmt.Errorf("load session user: %w", err))
			}
		}
		c.Next()
	}
}

// APIAuth accepts a bearer token or the session user loaded by LoadUser and
// answers 401 otherwise.
func APIAuth(tokens *services.TokenService, gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); header != "" {
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				abortUnauthorized(c)
				return
			}
			userID, err := tokens.Parse(strings.TrimSpace(raw))
			if err != nil {
				abortUnauthorized(c)
				return
			}
			var user models.User
			if err := gdb.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
				abortUnauthorized(c)
				return
			}
			c.Set(CheckUserKey, &user)
			c.Next()
			return
		}

		if CurrentUser(c) == nil {
			abortUnauthorized(c)
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": services.ErrAuthenticationRequired.Error()})
}
