package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/andrewpaige1/stratdesk-api/models"
	"github.com/andrewpaige1/stratdesk-api/trading"
	"github.com/andrewpaige1/stratdesk-api/utils"
	"github.com/andrewpaige1/stratdesk-api/validation"
	"github.com/andrewpaige1/stratdesk-api/vault"
)

// GET /api/brokers
func (db *DBHandler) ListBrokers(w http.ResponseWriter, r *http.Request) {
	var brokers []models.Broker
	if err := db.WithContext(r.Context()).Order("name asc").Find(&brokers).Error; err != nil {
		db.internalError(w, "ListBrokers", "Failed to fetch brokers", err)
		return
	}
	if brokers == nil {
		brokers = []models.Broker{}
	}
	utils.WriteJSON(w, http.StatusOK, brokers)
}

func maskConnection(c *models.BrokerConnection) {
	c.MaskedAPIKey = vault.Mask(c.APIKey)
}

// GET /api/me/brokers
func (db *DBHandler) ListMyBrokers(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var conns []models.BrokerConnection
	if err := db.WithContext(r.Context()).Where("user_id = ?", user.ID).Order("broker_code asc").Find(&conns).Error; err != nil {
		db.internalError(w, "ListMyBrokers", "Failed to fetch broker connections", err)
		return
	}
	for i := range conns {
		maskConnection(&conns[i])
	}
	if conns == nil {
		conns = []models.BrokerConnection{}
	}
	utils.WriteJSON(w, http.StatusOK, conns)
}

func secretAD(userID uint, code string) []byte {
	return []byte(fmt.Sprintf("user:%d|%s", userID, code))
}

// PUT /api/me/brokers/{code}
func (db *DBHandler) ConnectBroker(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	tx := db.WithContext(r.Context())
	var broker models.Broker
	if err := tx.Where("code = ?", r.PathValue("code")).First(&broker).Error; err != nil {
		db.lookupError(w, "ConnectBroker", "Broker", err)
		return
	}

	var req struct {
		ClientID  string `json:"client_id"`
		APIKey    string `json:"api_key"`
		APISecret string `json:"api_secret"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	var errs validation.Errors
	errs.Length("client_id", req.ClientID, 1, 100)
	errs.Length("api_key", req.APIKey, 1, 200)
	errs.Length("api_secret", req.APISecret, 1, 500)
	if err := errs.Err(); err != nil {
		utils.WriteValidation(w, err)
		return
	}

	sealed, err := db.Vault.Seal([]byte(req.APISecret), secretAD(user.ID, broker.Code))
	if err != nil {
		db.internalError(w, "ConnectBroker", "Failed to store credentials", err)
		return
	}
	now := db.Now()
	conn := models.BrokerConnection{
		UserID:         user.ID,
		BrokerCode:     broker.Code,
		ClientID:       req.ClientID,
		APIKey:         req.APIKey,
		SecretSealed:   sealed,
		Status:         models.BrokerConnected,
		LastVerifiedAt: &now,
	}
	if conn.PublicID, err = newPublicID(); err != nil {
		db.internalError(w, "ConnectBroker", "Failed to generate ID", err)
		return
	}

	err = tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "broker_code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"client_id", "api_key", "secret_sealed", "status", "last_verified_at", "updated_at",
		}),
	}).Create(&conn).Error
	if err != nil {
		db.internalError(w, "ConnectBroker", "Failed to connect broker", err, zap.String("broker", broker.Code))
		return
	}

	// The upsert keeps the original public id on reconnect.
	if err := tx.Where("user_id = ? AND broker_code = ?", user.ID, broker.Code).First(&conn).Error; err != nil {
		db.internalError(w, "ConnectBroker", "Failed to load broker connection", err)
		return
	}
	maskConnection(&conn)
	db.Log.Info("ConnectBroker: broker connected", zap.String("broker", broker.Code), zap.Uint("userID", user.ID))
	utils.WriteJSON(w, http.StatusOK, conn)
}

// DELETE /api/me/brokers/{code}
func (db *DBHandler) DisconnectBroker(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	tx := db.WithContext(r.Context())
	var conn models.BrokerConnection
	if err := tx.Where("user_id = ? AND broker_code = ?", user.ID, r.PathValue("code")).First(&conn).Error; err != nil {
		db.lookupError(w, "DisconnectBroker", "Broker connection", err)
		return
	}

	var stopped int64
	err := tx.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.StrategySelection{}).
			Where("user_id = ? AND broker_connection_id = ? AND mode = ?", user.ID, conn.ID, trading.ModeLive).
			Updates(map[string]any{
				"mode":                 string(trading.ModeOff),
				"quantity":             0,
				"broker_connection_id": nil,
				"activated_at":         nil,
			})
		if res.Error != nil {
			return res.Error
		}
		stopped = res.RowsAffected
		return tx.Model(&conn).Updates(map[string]any{
			"status":        models.BrokerDisconnected,
			"api_key":       "",
			"secret_sealed": nil,
		}).Error
	})
	if err != nil {
		db.internalError(w, "DisconnectBroker", "Failed to disconnect broker", err, zap.String("broker", conn.BrokerCode))
		return
	}
	db.Log.Info("DisconnectBroker: broker disconnected",
		zap.String("broker", conn.BrokerCode), zap.Uint("userID", user.ID), zap.Int64("stoppedStrategies", stopped))
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/me/brokers/{code}/verify
func (db *DBHandler) VerifyBroker(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	tx := db.WithContext(r.Context())
	var conn models.BrokerConnection
	if err := tx.Where("user_id = ? AND broker_code = ?", user.ID, r.PathValue("code")).First(&conn).Error; err != nil {
		db.lookupError(w, "VerifyBroker", "Broker connection", err)
		return
	}
	if !conn.Connected() {
		utils.WriteError(w, http.StatusConflict, "Broker is not connected")
		return
	}
	if _, err := db.brokerSecret(conn); err != nil {
		db.Log.Warn("VerifyBroker: stored credentials unreadable", zap.String("broker", conn.BrokerCode), zap.Error(err))
		utils.WriteError(w, http.StatusConflict, "Stored credentials are invalid, reconnect the broker")
		return
	}
	now := db.Now()
	if err := tx.Model(&conn).Update("last_verified_at", now).Error; err != nil {
		db.internalError(w, "VerifyBroker", "Failed to update broker connection", err)
		return
	}
	conn.LastVerifiedAt = &now
	maskConnection(&conn)
	utils.WriteJSON(w, http.StatusOK, conn)
}

// brokerSecret opens the stored API secret for a connection.
func (db *DBHandler) brokerSecret(conn models.BrokerConnection) (string, error) {
	pt, err := db.Vault.Open(conn.SecretSealed, secretAD(conn.UserID, conn.BrokerCode))
	if err != nil {
		return "", err
	}
	return string(pt), nil
}
