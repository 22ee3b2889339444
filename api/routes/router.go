package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/geonmarket-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/geonmarket-backend/api/controllers/cart"
	listingcontrollers "github.com/angelmondragon/geonmarket-backend/api/controllers/listings"
	paymentcontrollers "github.com/angelmondragon/geonmarket-backend/api/controllers/payments"
	tokencontrollers "github.com/angelmondragon/geonmarket-backend/api/controllers/tokens"
	"github.com/angelmondragon/geonmarket-backend/api/middleware"
	"github.com/angelmondragon/geonmarket-backend/internal/accounts"
	"github.com/angelmondragon/geonmarket-backend/internal/auth"
	"github.com/angelmondragon/geonmarket-backend/internal/cart"
	"github.com/angelmondragon/geonmarket-backend/internal/chat"
	"github.com/angelmondragon/geonmarket-backend/internal/ledger"
	"github.com/angelmondragon/geonmarket-backend/internal/listings"
	"github.com/angelmondragon/geonmarket-backend/internal/localstore"
	"github.com/angelmondragon/geonmarket-backend/internal/profiles"
	"github.com/angelmondragon/geonmarket-backend/internal/ranking"
	"github.com/angelmondragon/geonmarket-backend/pkg/auth/session"
	"github.com/angelmondragon/geonmarket-backend/pkg/config"
	"github.com/angelmondragon/geonmarket-backend/pkg/logger"
	"github.com/angelmondragon/geonmarket-backend/pkg/metrics"
	"github.com/angelmondragon/geonmarket-backend/pkg/redis"
)

const confirmPath = "/api/v1/payments/confirm"

type redisStore interface {
	redis.IdempotencyStore
	middleware.WindowLimiter
}

// Dependencies are the services the HTTP surface is built on.
type Dependencies struct {
	DB       controllers.Pinger
	Redis    redisStore
	Sessions session.AccessSessionChecker
	Gatherer prometheus.Gatherer

	Auth     auth.Service
	Listings listings.Service
	Ranking  ranking.Service
	Cart     cart.Service
	Ledger   ledger.Service
	Profiles profiles.Service
	Accounts accounts.Service
	Chat     chat.Service
	Local    localstore.Store

	Gateway        paymentcontrollers.Confirmer
	GatewayMetrics *metrics.GatewayMetrics
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS, confirmPath),
	)

	idempotency := middleware.Idempotency(deps.Redis, cfg.Idempotency, logg)
	requireAuth := middleware.Auth(cfg.JWT, deps.Sessions, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readinessDeps(deps), logg))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(middleware.SignInPolicy(cfg.AuthRateLimit), deps.Redis, logg)).Post("/signin", controllers.AuthSignIn(deps.Auth, logg))
			r.With(middleware.AuthRateLimit(middleware.SignUpPolicy(cfg.AuthRateLimit), deps.Redis, logg)).Post("/signup", controllers.AuthSignUp(deps.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
			r.With(requireAuth).Post("/signout", controllers.AuthSignOut(deps.Auth, logg))
			r.With(requireAuth).Get("/me", controllers.AuthMe(deps.Auth, logg))
		})

		// open CORS, answers its own preflight
		r.HandleFunc("/payments/confirm", paymentcontrollers.Confirm(deps.Gateway, deps.GatewayMetrics, logg))

		r.Get("/listings", listingcontrollers.ListingSearch(deps.Listings, logg))
		r.Get("/listings/popular", listingcontrollers.ListingPopular(deps.Ranking, logg))
		r.Get("/listings/{id}", listingcontrollers.ListingGet(deps.Listings, logg))
		r.Get("/tokens/quote", tokencontrollers.TokenQuote(deps.Ledger))
		r.Get("/local/tokens", controllers.LocalTokensGet(deps.Local, logg))
		r.Put("/local/tokens", controllers.LocalTokensPut(deps.Local, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Patch("/listings/{id}", listingcontrollers.ListingUpdate(deps.Listings, logg))
			r.Delete("/listings/{id}", listingcontrollers.ListingDelete(deps.Listings, logg))
			r.Post("/listings/{id}/status", listingcontrollers.ListingUpdateStatus(deps.Listings, logg))
			r.Post("/listings/{id}/like", listingcontrollers.ListingToggleLike(deps.Listings, logg))

			r.Get("/cart", cartcontrollers.CartFetch(deps.Cart, logg))
			r.Post("/cart", cartcontrollers.CartAdd(deps.Cart, deps.Listings, logg))
			r.Delete("/cart", cartcontrollers.CartClear(deps.Cart, logg))
			r.Delete("/cart/items/{id}", cartcontrollers.CartRemove(deps.Cart, logg))

			r.Get("/profile", controllers.ProfileGet(deps.Profiles, logg))
			r.Put("/profile", controllers.ProfileUpdate(deps.Profiles, logg))
			r.Get("/profile/dashboard", controllers.ProfileDashboard(deps.Profiles, logg))

			r.Get("/accounts", controllers.AccountsList(deps.Accounts, logg))

			r.Get("/tokens/history", tokencontrollers.TokenTradeHistory(deps.Local, logg))
			r.Get("/tokens/verify", tokencontrollers.TokenVerify(deps.Ledger, logg))
			r.Get("/ledger/history", tokencontrollers.LedgerHistory(deps.Ledger, logg))

			r.Post("/payments/return", paymentcontrollers.Return(deps.Cart, deps.Ledger, logg))

			r.Get("/chat/rooms", controllers.ChatRooms(deps.Chat, logg))
			r.Get("/chat/{listingId}", controllers.ChatMessages(deps.Chat, logg))
			r.Post("/chat/{listingId}", controllers.ChatSend(deps.Chat, logg))

			// replayed on a repeated Idempotency-Key
			r.Group(func(r chi.Router) {
				r.Use(idempotency)
				r.Post("/listings", listingcontrollers.ListingCreate(deps.Listings, logg))
				r.Post("/listings/{id}/buy-now", listingcontrollers.ListingBuyNow(deps.Listings, deps.Cart, logg))
				r.Post("/listings/{id}/purchase", listingcontrollers.ListingPurchase(deps.Ledger, logg))
				r.Post("/cart/checkout", cartcontrollers.CartCheckout(deps.Cart, logg))
				r.Post("/accounts", controllers.AccountsAdd(deps.Accounts, logg))
				r.Post("/tokens/buy", tokencontrollers.TokenBuy(deps.Ledger, logg))
				r.Post("/tokens/sell", tokencontrollers.TokenSell(deps.Ledger, logg))
			})
		})
	})

	return r
}

func readinessDeps(deps Dependencies) map[string]controllers.Pinger {
	out := map[string]controllers.Pinger{}
	if deps.DB != nil {
		out["database"] = deps.DB
	}
	if p, ok := deps.Redis.(controllers.Pinger); ok && p != nil {
		out["redis"] = p
	}
	return out
}
