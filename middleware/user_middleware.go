package middleware

import (
	"net/http"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/andrewpaige1/stratdesk-api/models"
	"github.com/andrewpaige1/stratdesk-api/utils"
)

// SyncUserMiddleware ensures the Auth0 user exists in the DB and attaches it to context
func SyncUserMiddleware(db *gorm.DB, log *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
			if !ok || claims.RegisteredClaims.Subject == "" {
				utils.WriteError(w, http.StatusUnauthorized, "No Auth0 subject found")
				return
			}

			auth0ID := claims.RegisteredClaims.Subject
			var nickname, email string
			if customClaims, ok := claims.CustomClaims.(*CustomClaims); ok && customClaims != nil {
				nickname = customClaims.Nickname
				email = customClaims.Email
			}

			var user models.User
			result := db.WithContext(r.Context()).Where("auth0_id = ?", auth0ID).Limit(1).Find(&user)
			if result.Error != nil {
				log.Error("SyncUserMiddleware: lookup failed", zap.String("auth0ID", auth0ID), zap.Error(result.Error))
				utils.WriteError(w, http.StatusInternalServerError, "Failed to load user")
				return
			}

			if result.RowsAffected == 0 {
				// User does not exist, create a new one
				user = models.User{
					Auth0ID:         auth0ID,
					Nickname:        nickname,
					Email:           email,
					ExperienceLevel: "beginner",
					RiskAppetite:    "medium",
				}
				if err := db.WithContext(r.Context()).Create(&user).Error; err != nil {
					log.Error("SyncUserMiddleware: failed to create user", zap.String("auth0ID", auth0ID), zap.Error(err))
					utils.WriteError(w, http.StatusInternalServerError, "Failed to create user")
					return
				}
				log.Info("SyncUserMiddleware: created new user", zap.String("nickname", user.Nickname))
			} else if changed := syncClaims(&user, nickname, email); changed {
				// Claims only overwrite non-empty, changed values
				if err := db.WithContext(r.Context()).Model(&user).
					Updates(map[string]any{"nickname": user.Nickname, "email": user.Email}).Error; err != nil {
					log.Error("SyncUserMiddleware: failed to update user", zap.String("auth0ID", auth0ID), zap.Error(err))
					utils.WriteError(w, http.StatusInternalServerError, "Failed to update user")
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(utils.WithUser(r.Context(), &user)))
		}
	}
}

func syncClaims(u *models.User, nickname, email string) bool {
	changed := false
	if nickname != "" && u.Nickname != nickname {
		u.Nickname = nickname
		changed = true
	}
	if email != "" && u.Email != email {
		u.Email = email
		changed = true
	}
	return changed
}
