package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BigDeckClub/BigDeckAppV3-sub000/api/controllers"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/api/middleware"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/internal/autobuy"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/internal/decks"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/internal/folders"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/internal/inventory"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/internal/reservation"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/internal/undo"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/config"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/db"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/logger"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/metrics"
	pkgredis "github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       *pkgredis.Client
	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer

	Inventory    *inventory.Service
	Folders      *folders.Service
	Decks        *decks.Service
	Reservations *reservation.Engine
	Autobuy      *autobuy.Service
	Undo         *undo.Manager
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Session(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
	)

	var redisPinger pkgredis.Pinger
	if deps.Redis != nil {
		redisPinger = deps.Redis
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, redisPinger))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		var idempotencyStore pkgredis.IdempotencyStore
		if deps.Redis != nil {
			idempotencyStore = deps.Redis
		}
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", controllers.InventoryList(deps.Inventory, logg))
			r.Post("/", controllers.InventoryCreate(deps.Inventory, logg))
			r.Get("/trash", controllers.InventoryTrashList(deps.Inventory, logg))
			r.Delete("/trash", controllers.InventoryEmptyTrash(deps.Inventory, logg))
			r.Get("/{itemId}", controllers.InventoryGet(deps.Inventory, logg))
			r.Put("/{itemId}", controllers.InventoryUpdate(deps.Inventory, logg))
			r.Delete("/{itemId}", controllers.InventoryTrash(deps.Inventory, logg))
			r.Delete("/{itemId}/permanent", controllers.InventoryDelete(deps.Inventory, logg))
			r.Post("/{itemId}/restore", controllers.InventoryRestore(deps.Inventory, logg))
			r.Post("/{itemId}/move", controllers.FolderMoveItem(deps.Folders, logg))
		})

		r.Route("/folders", func(r chi.Router) {
			r.Get("/", controllers.FolderList(deps.Folders, logg))
			r.Post("/", controllers.FolderCreate(deps.Folders, logg))
			r.Post("/move", controllers.FolderMoveItems(deps.Folders, logg))
			r.Put("/{folderName}", controllers.FolderRename(deps.Folders, logg))
			r.Delete("/{folderName}", controllers.FolderDelete(deps.Folders, logg))
		})

		r.Route("/decks", func(r chi.Router) {
			r.Route("/templates", func(r chi.Router) {
				r.Get("/", controllers.TemplateList(deps.Decks, logg))
				r.Post("/", controllers.TemplateCreate(deps.Decks, logg))
				r.Post("/import", controllers.TemplateImport(deps.Decks, logg))
				r.Get("/{templateId}", controllers.TemplateGet(deps.Decks, logg))
				r.Delete("/{templateId}", controllers.TemplateDelete(deps.Decks, logg))
				r.Post("/{templateId}/build", controllers.TemplateBuild(deps.Decks, logg))
			})

			r.Get("/", controllers.DeckList(deps.Decks, logg))
			r.Post("/move-card", controllers.DeckMoveCard(deps.Reservations, logg))
			r.Route("/{deckId}", func(r chi.Router) {
				r.Get("/", controllers.DeckDetails(deps.Decks, logg))
				r.Delete("/", controllers.DeckRelease(deps.Reservations, logg))
				r.Post("/cards", controllers.DeckAddCard(deps.Reservations, logg))
				r.Delete("/cards/{reservationId}", controllers.DeckRemoveCard(deps.Reservations, logg))
				r.Post("/reoptimize", controllers.DeckReoptimize(deps.Reservations, logg))
				r.Post("/auto-fill", controllers.DeckAutoFill(deps.Reservations, logg))
			})
		})

		r.Route("/autobuy", func(r chi.Router) {
			r.Get("/accuracy", controllers.AutobuyAccuracy(deps.Autobuy, logg))
			r.Get("/sell-through", controllers.AutobuySellThrough(deps.Autobuy, logg))
			r.Get("/suggestions", controllers.AutobuySuggestions(deps.Autobuy, logg))
			r.Post("/score", controllers.AutobuyScore(deps.Autobuy, logg))
			r.Route("/runs", func(r chi.Router) {
				r.Get("/", controllers.AutobuyRunList(deps.Autobuy, logg))
				r.Post("/", controllers.AutobuyRunCreate(deps.Autobuy, logg))
				r.Get("/{runId}", controllers.AutobuyRunGet(deps.Autobuy, logg))
				r.Put("/{runId}", controllers.AutobuyRunUpdate(deps.Autobuy, logg))
			})
			r.Route("/weights", func(r chi.Router) {
				r.Get("/", controllers.AutobuyWeights(deps.Autobuy, logg))
				r.Put("/", controllers.AutobuyWeightsUpdate(deps.Autobuy, logg))
			})
			r.Route("/substitution-groups", func(r chi.Router) {
				r.Get("/", controllers.SubstitutionGroupList(deps.Autobuy, logg))
				r.Post("/", controllers.SubstitutionGroupCreate(deps.Autobuy, logg))
				r.Delete("/{groupId}", controllers.SubstitutionGroupDelete(deps.Autobuy, logg))
				r.Post("/{groupId}/cards", controllers.SubstitutionGroupAddCard(deps.Autobuy, logg))
				r.Delete("/{groupId}/cards/{scryfallId}", controllers.SubstitutionGroupRemoveCard(deps.Autobuy, logg))
			})
		})

		r.Post("/undo", controllers.UndoApply(deps.Undo, logg))
		r.Post("/redo", controllers.RedoApply(deps.Undo, logg))
		r.Get("/history", controllers.UndoHistory(deps.Undo, logg))
	})

	return r
}
