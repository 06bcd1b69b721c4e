package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/andrewpaige1/stratdesk-api/models"
)

// activeSubscription returns the caller's effective subscription, or nil.
func (db *DBHandler) activeSubscription(tx *gorm.DB, userID uint) (*models.Subscription, error) {
	var subs []models.Subscription
	err := tx.Preload("Plan").
		Where("user_id = ? AND status = ?", userID, models.SubscriptionActive).
		Order("started_at desc").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	now := db.Now()
	for i := range subs {
		if subs[i].Effective(now) {
			return &subs[i], nil
		}
	}
	return nil, nil
}

func (db *DBHandler) hasPremiumPlan(tx *gorm.DB, userID uint) (bool, error) {
	sub, err := db.activeSubscription(tx, userID)
	if err != nil || sub == nil {
		return false, err
	}
	return sub.Plan.HasFeature(models.FeaturePremiumStrategies), nil
}

// paidStatus reports whether a strategy is unlocked for a user.
func paidStatus(s models.Strategy, userID uint, sel *models.StrategySelection, premiumPlan bool) bool {
	switch {
	case !s.IsPremium:
		return true
	case s.OwnedBy(userID):
		return true
	case sel != nil && sel.IsPaid:
		return true
	}
	return premiumPlan
}

// visibleStrategies scopes a query to predefined strategies plus the
// caller's own custom ones.
func visibleStrategies(userID uint) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if userID == 0 {
			return tx.Where("kind = ?", models.StrategyPredefined)
		}
		return tx.Where("(kind = ? OR (kind = ? AND owner_id = ?))", models.StrategyPredefined, models.StrategyCustom, userID)
	}
}

func (db *DBHandler) findVisibleStrategy(r *http.Request, tx *gorm.DB, userID uint) (models.Strategy, error) {
	var strategy models.Strategy
	err := tx.Scopes(visibleStrategies(userID)).
		Where("public_id = ?", r.PathValue("strategyID")).
		First(&strategy).Error
	return strategy, err
}

func (db *DBHandler) findSelection(tx *gorm.DB, userID, strategyID uint) (*models.StrategySelection, error) {
	var sels []models.StrategySelection
	if err := tx.Where("user_id = ? AND strategy_id = ?", userID, strategyID).Limit(1).Find(&sels).Error; err != nil {
		return nil, err
	}
	if len(sels) == 0 {
		return nil, nil
	}
	return &sels[0], nil
}
