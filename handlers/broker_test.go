package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewpaige1/stratdesk-api/models"
)

type connectionJSON struct {
	ID             string  `json:"id"`
	Broker         string  `json:"broker"`
	ClientID       string  `json:"client_id"`
	APIKey         string  `json:"api_key"`
	Status         string  `json:"status"`
	LastVerifiedAt *string `json:"last_verified_at"`
}

func TestListBrokers(t *testing.T) {
	ts := newTestServer(t)

	var brokers []struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	ts.doJSON("GET", "/api/brokers", "", nil, http.StatusOK, &brokers)
	require.Len(t, brokers, 5)
	for i := 1; i < len(brokers); i++ {
		assert.LessOrEqual(t, brokers[i-1].Name, brokers[i].Name)
	}
}

func TestConnectBrokerNeverReturnsSecrets(t *testing.T) {
	ts := newTestServer(t)
	const user = "auth0|broker"
	creds := map[string]string{"client_id": "AB1234", "api_key": "kite-key-123456", "api_secret": "kite-secret"}

	rec := ts.do("PUT", "/api/me/brokers/zerodha", user, creds)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "kite-secret")
	assert.NotContains(t, rec.Body.String(), "kite-key-123456")

	var list []connectionJSON
	ts.doJSON("GET", "/api/me/brokers", user, nil, http.StatusOK, &list)
	require.Len(t, list, 1)
	first := list[0]
	assert.Equal(t, "zerodha", first.Broker)
	assert.Equal(t, "****3456", first.APIKey)
	assert.Equal(t, "connected", first.Status)

	var stored models.BrokerConnection
	require.NoError(t, ts.db.Where("user_id = ?", ts.userID(user)).First(&stored).Error)
	assert.NotEmpty(t, stored.SecretSealed)
	assert.NotContains(t, string(stored.SecretSealed), "kite-secret")

	// Reconnecting updates the same connection.
	creds["api_key"] = "kite-key-999999"
	var again connectionJSON
	ts.doJSON("PUT", "/api/me/brokers/zerodha", user, creds, http.StatusOK, &again)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "****9999", again.APIKey)

	var rows int64
	require.NoError(t, ts.db.Model(&models.BrokerConnection{}).Where("user_id = ?", ts.userID(user)).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestConnectBrokerValidation(t *testing.T) {
	ts := newTestServer(t)
	const user = "auth0|broker"

	assert.Equal(t, http.StatusNotFound, ts.do("PUT", "/api/me/brokers/nope", user,
		map[string]string{"client_id": "a", "api_key": "b", "api_secret": "c"}).Code)

	var v validationJSON
	ts.doJSON("PUT", "/api/me/brokers/upstox", user, map[string]string{"client_id": "a"}, http.StatusUnprocessableEntity, &v)
	assert.True(t, v.has("api_key"))
	assert.True(t, v.has("api_secret"))
}

func TestVerifyAndDisconnectBroker(t *testing.T) {
	ts := newTestServer(t)
	const user = "auth0|verify"
	verify := "/api/me/brokers/dhan/verify"

	assert.Equal(t, http.StatusNotFound, ts.do("POST", verify, user, nil).Code)

	ts.doJSON("PUT", "/api/me/brokers/dhan", user,
		map[string]string{"client_id": "D1", "api_key": "dhan-key-0001", "api_secret": "dhan-secret"}, http.StatusOK, nil)

	var conn connectionJSON
	ts.doJSON("POST", verify, user, nil, http.StatusOK, &conn)
	assert.NotNil(t, conn.LastVerifiedAt)

	var stored models.BrokerConnection
	require.NoError(t, ts.db.Where("user_id = ?", ts.userID(user)).First(&stored).Error)
	require.NoError(t, ts.db.Model(&stored).Update("secret_sealed", []byte("garbage")).Error)
	assert.Equal(t, http.StatusConflict, ts.do("POST", verify, user, nil).Code)

	assert.Equal(t, http.StatusNoContent, ts.do("DELETE", "/api/me/brokers/dhan", user, nil).Code)
	assert.Equal(t, http.StatusConflict, ts.do("POST", verify, user, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do("DELETE", "/api/me/brokers/zerodha", user, nil).Code)

	var list []connectionJSON
	ts.doJSON("GET", "/api/me/brokers", user, nil, http.StatusOK, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "disconnected", list[0].Status)
	assert.Equal(t, "****", list[0].APIKey)
}
