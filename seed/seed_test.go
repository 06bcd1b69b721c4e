package seed

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/andrewpaige1/stratdesk-api/config"
	"github.com/andrewpaige1/stratdesk-api/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.Connect("sqlite:" + filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, config.Migrate(db))
	return db
}

func count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestDefaultCatalog(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)
	assert.Len(t, cat.Brokers, 5)
	assert.Len(t, cat.Plans, 3)
	assert.Len(t, cat.Strategies, 4)
	assert.Len(t, cat.Modules, 2)
	assert.NoError(t, cat.Validate())
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := Decode(strings.NewReader("brokers: []\nbrokerz: []\n"))
	assert.Error(t, err)
}

func TestValidateRejectsBadStrategy(t *testing.T) {
	const doc = `
strategies:
  - basics: {name: Broken, underlying: NIFTY, entry_time: "09:20", exit_time: "15:00"}
    legs:
      - {segment: options, option_type: CE, position: SELL, lots: 0, expiry: weekly, strike_selection: ATM}
`
	cat, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)

	db := testDB(t)
	_, err = Apply(context.Background(), db, zap.NewNop(), cat)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "legs[0].lots")
	assert.Zero(t, count(t, db, &models.Strategy{}))
}

func TestApplyIsIdempotent(t *testing.T) {
	db := testDB(t)
	cat, err := Default()
	require.NoError(t, err)

	first, err := Apply(context.Background(), db, zap.NewNop(), cat)
	require.NoError(t, err)
	assert.Equal(t, Result{Brokers: 5, Plans: 3, Strategies: 4, Modules: 2}, first)

	var before models.Strategy
	require.NoError(t, db.Where("name = ?", "Iron Condor").First(&before).Error)

	second, err := Apply(context.Background(), db, zap.NewNop(), cat)
	require.NoError(t, err)
	assert.Zero(t, second.Strategies)
	assert.Zero(t, second.Modules)

	assert.EqualValues(t, 5, count(t, db, &models.Broker{}))
	assert.EqualValues(t, 3, count(t, db, &models.Plan{}))
	assert.EqualValues(t, 4, count(t, db, &models.Strategy{}))
	assert.EqualValues(t, 2, count(t, db, &models.Module{}))

	var after models.Strategy
	require.NoError(t, db.Where("name = ?", "Iron Condor").First(&after).Error)
	assert.Equal(t, before.PublicID, after.PublicID)
	assert.JSONEq(t, string(before.Legs), string(after.Legs))
}

func TestApplyUpdatesStrategiesInPlace(t *testing.T) {
	db := testDB(t)
	cat, err := Default()
	require.NoError(t, err)
	_, err = Apply(context.Background(), db, zap.NewNop(), cat)
	require.NoError(t, err)

	for i := range cat.Strategies {
		if cat.Strategies[i].Basics.Name == "Short Straddle" {
			cat.Strategies[i].IsPremium = true
			cat.Strategies[i].Legs[0].Lots = 2
		}
	}
	_, err = Apply(context.Background(), db, zap.NewNop(), cat)
	require.NoError(t, err)

	var s models.Strategy
	require.NoError(t, db.Where("name = ?", "Short Straddle").First(&s).Error)
	assert.True(t, s.IsPremium)
	assert.Contains(t, string(s.Legs), `"lots":2`)
	assert.EqualValues(t, 4, count(t, db, &models.Strategy{}))
}
