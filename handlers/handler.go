package handlers

import (
	"errors"
	"net/http"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/andrewpaige1/stratdesk-api/config"
	"github.com/andrewpaige1/stratdesk-api/models"
	"github.com/andrewpaige1/stratdesk-api/utils"
	"github.com/andrewpaige1/stratdesk-api/vault"
)

type DBHandler struct {
	*gorm.DB
	Log   *zap.Logger
	Cfg   config.Config
	Vault *vault.Vault
	Now   func() time.Time
}

func New(db *gorm.DB, log *zap.Logger, cfg config.Config, v *vault.Vault) *DBHandler {
	return &DBHandler{DB: db, Log: log, Cfg: cfg, Vault: v, Now: time.Now}
}

func newPublicID() (string, error) {
	return gonanoid.New()
}

func (db *DBHandler) isAdmin(r *http.Request) bool {
	auth0ID, ok := utils.GetAuth0ID(r)
	return ok && db.Cfg.IsAdmin(auth0ID)
}

// optionalUser returns the caller's user row when a valid token is present
// and the user has been seen before. It never creates users.
func (db *DBHandler) optionalUser(r *http.Request) (*models.User, bool) {
	auth0ID, ok := utils.GetAuth0ID(r)
	if !ok {
		return nil, false
	}
	var user models.User
	if err := db.WithContext(r.Context()).Where("auth0_id = ?", auth0ID).First(&user).Error; err != nil {
		return nil, false
	}
	return &user, true
}

func (db *DBHandler) internalError(w http.ResponseWriter, op, msg string, err error, fields ...zap.Field) {
	db.Log.Error(op+": "+msg, append(fields, zap.Error(err))...)
	utils.WriteError(w, http.StatusInternalServerError, msg)
}

// lookupError maps a First() error to 404 or 500.
func (db *DBHandler) lookupError(w http.ResponseWriter, op, what string, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.WriteError(w, http.StatusNotFound, what+" not found")
		return
	}
	db.internalError(w, op, "failed to load "+what, err)
}

func mustUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := utils.CurrentUser(r)
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	return user, true
}
