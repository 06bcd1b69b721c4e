package handlers

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/andrewpaige1/stratdesk-api/middleware"
)

// NewRouter wires every route behind token validation, CORS and request
// logging.
func (db *DBHandler) NewRouter() (http.Handler, error) {
	authMiddleware, err := middleware.EnsureValidToken(db.Cfg, db.Log)
	if err != nil {
		return nil, err
	}
	user := middleware.SyncUserMiddleware(db.DB, db.Log)
	requireAdmin := middleware.RequireAdmin(db.Cfg)
	admin := func(h http.HandlerFunc) http.HandlerFunc { return requireAdmin(user(h)) }

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Education
	mux.HandleFunc("GET /api/modules", db.ListModules)
	mux.HandleFunc("GET /api/modules/{moduleID}", db.GetModuleByID)
	mux.HandleFunc("POST /api/modules", admin(db.CreateModule))
	mux.HandleFunc("PUT /api/modules/{moduleID}", admin(db.UpdateModuleByID))
	mux.HandleFunc("DELETE /api/modules/{moduleID}", admin(db.DeleteModuleByID))
	mux.HandleFunc("POST /api/modules/{moduleID}/contents", admin(db.CreateContent))
	mux.HandleFunc("PUT /api/modules/{moduleID}/contents/{contentID}", admin(db.UpdateContentByID))
	mux.HandleFunc("DELETE /api/modules/{moduleID}/contents/{contentID}", admin(db.DeleteContentByID))
	mux.HandleFunc("POST /api/modules/{moduleID}/contents/{contentID}/complete", user(db.CompleteContent))
	mux.HandleFunc("POST /api/modules/{moduleID}/questions", admin(db.CreateQuestion))
	mux.HandleFunc("PUT /api/modules/{moduleID}/questions/{questionID}", admin(db.UpdateQuestionByID))
	mux.HandleFunc("DELETE /api/modules/{moduleID}/questions/{questionID}", admin(db.DeleteQuestionByID))
	mux.HandleFunc("POST /api/modules/{moduleID}/attempts", user(db.SubmitQuizAttempt))

	// Profile and security
	mux.HandleFunc("GET /api/me", user(db.GetProfile))
	mux.HandleFunc("PUT /api/me/profile", user(db.UpdateProfile))
	mux.HandleFunc("PUT /api/me/security/pin", user(db.SetTradingPIN))
	mux.HandleFunc("POST /api/me/security/pin/verify", user(db.VerifyTradingPIN))
	mux.HandleFunc("PUT /api/me/security/two-factor", user(db.SetTwoFactor))
	mux.HandleFunc("GET /api/me/dashboard", user(db.GetDashboard))
	mux.HandleFunc("GET /api/me/progress", user(db.GetMyProgress))
	mux.HandleFunc("GET /api/me/wishlist", user(db.GetWishlist))
	mux.HandleFunc("GET /api/me/strategies", user(db.GetMyStrategies))

	// Wizard
	mux.HandleFunc("POST /api/wizards", user(db.CreateDraft))
	mux.HandleFunc("GET /api/wizards", user(db.ListDrafts))
	mux.HandleFunc("GET /api/wizards/{draftID}", user(db.GetDraftByID))
	mux.HandleFunc("DELETE /api/wizards/{draftID}", user(db.DeleteDraftByID))
	mux.HandleFunc("PUT /api/wizards/{draftID}/basics", user(db.SetDraftBasics))
	mux.HandleFunc("PUT /api/wizards/{draftID}/risk", user(db.SetDraftRisk))
	mux.HandleFunc("POST /api/wizards/{draftID}/legs", user(db.AddDraftLeg))
	mux.HandleFunc("PUT /api/wizards/{draftID}/legs/{legID}", user(db.UpdateDraftLeg))
	mux.HandleFunc("DELETE /api/wizards/{draftID}/legs/{legID}", user(db.RemoveDraftLeg))
	mux.HandleFunc("POST /api/wizards/{draftID}/legs/{legID}/duplicate", user(db.DuplicateDraftLeg))
	mux.HandleFunc("POST /api/wizards/{draftID}/legs/{legID}/move", user(db.MoveDraftLeg))
	mux.HandleFunc("POST /api/wizards/{draftID}/next", user(db.NextDraftStep))
	mux.HandleFunc("POST /api/wizards/{draftID}/prev", user(db.PrevDraftStep))
	mux.HandleFunc("POST /api/wizards/{draftID}/goto", user(db.GoToDraftStep))
	mux.HandleFunc("POST /api/wizards/{draftID}/finalize", user(db.FinalizeDraft))

	// Strategies
	mux.HandleFunc("GET /api/strategies", db.ListStrategies)
	mux.HandleFunc("GET /api/strategies/{strategyID}", db.GetStrategyByID)
	mux.HandleFunc("POST /api/strategies", admin(db.CreateStrategy))
	mux.HandleFunc("DELETE /api/strategies/{strategyID}", user(db.DeleteStrategyByID))
	mux.HandleFunc("PUT /api/strategies/{strategyID}/wishlist", user(db.SetWishlist))
	mux.HandleFunc("POST /api/strategies/{strategyID}/unlock", user(db.UnlockStrategy))
	mux.HandleFunc("POST /api/strategies/{strategyID}/deploy", user(db.DeployStrategy))
	mux.HandleFunc("POST /api/strategies/{strategyID}/stop", user(db.StopStrategy))

	// Backtests
	mux.HandleFunc("GET /api/strategies/{strategyID}/backtests", db.ListBacktests)
	mux.HandleFunc("POST /api/strategies/{strategyID}/backtests", admin(db.CreateBacktest))
	mux.HandleFunc("GET /api/backtests/{reportID}", db.GetBacktestByID)

	// Brokers
	mux.HandleFunc("GET /api/brokers", db.ListBrokers)
	mux.HandleFunc("GET /api/me/brokers", user(db.ListMyBrokers))
	mux.HandleFunc("PUT /api/me/brokers/{code}", user(db.ConnectBroker))
	mux.HandleFunc("DELETE /api/me/brokers/{code}", user(db.DisconnectBroker))
	mux.HandleFunc("POST /api/me/brokers/{code}/verify", user(db.VerifyBroker))

	// Plans and subscriptions
	mux.HandleFunc("GET /api/plans", db.ListPlans)
	mux.HandleFunc("POST /api/plans", admin(db.CreatePlan))
	mux.HandleFunc("POST /api/subscriptions", user(db.Subscribe))
	mux.HandleFunc("GET /api/me/subscription", user(db.GetMySubscription))
	mux.HandleFunc("DELETE /api/me/subscription", user(db.CancelSubscription))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   db.Cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", "X-Request-ID", "Accept", "Origin"},
		AllowCredentials: true,
		MaxAge:           86400,
	}).Handler(authMiddleware(mux))

	return middleware.RequestLogger(db.Log)(corsHandler), nil
}
