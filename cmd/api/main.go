package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/BigDeckClub/BigDeckAppV3-sub000/api/routes"
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
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/migrate"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	httpMetrics := metrics.NewHTTPMetrics(registry)
	engineMetrics := metrics.NewEngineMetrics(registry)

	undoManager, err := undo.NewManager(undo.ManagerParams{
		Logger:       logg,
		HistoryLimit: cfg.Undo.HistoryLimit,
		SessionTTL:   cfg.Undo.SessionTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create undo manager", err)
		os.Exit(1)
	}

	inventoryRepo := inventory.NewRepository(dbClient.DB())
	reservationRepo := reservation.NewRepository(dbClient.DB())

	inventoryService, err := inventory.NewService(inventory.ServiceParams{
		DB:       dbClient,
		Repo:     inventoryRepo,
		Logger:   logg,
		Recorder: undoManager,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	folderService, err := folders.NewService(folders.ServiceParams{
		DB:            dbClient,
		Repo:          folders.NewRepository(dbClient.DB()),
		InventoryRepo: inventoryRepo,
		Logger:        logg,
		Recorder:      undoManager,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create folder service", err)
		os.Exit(1)
	}

	reservationEngine, err := reservation.NewEngine(reservation.EngineParams{
		DB:       dbClient,
		Repo:     reservationRepo,
		Items:    inventoryRepo,
		Logger:   logg,
		Recorder: undoManager,
		Metrics:  engineMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reservation engine", err)
		os.Exit(1)
	}

	deckService, err := decks.NewService(decks.ServiceParams{
		DB:           dbClient,
		Repo:         decks.NewRepository(dbClient.DB()),
		Reservations: reservationRepo,
		Items:        inventoryRepo,
		Logger:       logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create deck service", err)
		os.Exit(1)
	}

	autobuyService, err := autobuy.NewService(autobuy.ServiceParams{
		DB:     dbClient,
		Repo:   autobuy.NewRepository(dbClient.DB()),
		Items:  inventoryRepo,
		Logger: logg,
		Config: cfg.Autobuy,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create autobuy service", err)
		os.Exit(1)
	}

	registerUndoOps(undoManager, inventoryService, folderService, reservationEngine)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Redis:        redisClient,
			HTTPMetrics:  httpMetrics,
			Gatherer:     registry,
			Inventory:    inventoryService,
			Folders:      folderService,
			Decks:        deckService,
			Reservations: reservationEngine,
			Autobuy:      autobuyService,
			Undo:         undoManager,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// registerUndoOps binds every declarative payload op to the service call that
// replays it. Undo entries are recorded with these names, so the set here must
// cover everything the services emit.
func registerUndoOps(
	manager *undo.Manager,
	inventoryService *inventory.Service,
	folderService *folders.Service,
	engine *reservation.Engine,
) {
	manager.RegisterOp("inventory.apply_patch", func(ctx context.Context, args map[string]any) error {
		id, err := undo.UUIDArg(args, "item_id")
		if err != nil {
			return err
		}
		patch, _ := args["patch"].(map[string]any)
		return inventoryService.ApplyPatch(ctx, id, patch)
	})

	manager.RegisterOp("inventory.trash", func(ctx context.Context, args map[string]any) error {
		id, err := undo.UUIDArg(args, "item_id")
		if err != nil {
			return err
		}
		_, err = inventoryService.MoveToTrash(ctx, id)
		return err
	})

	manager.RegisterOp("inventory.restore", func(ctx context.Context, args map[string]any) error {
		id, err := undo.UUIDArg(args, "item_id")
		if err != nil {
			return err
		}
		folder, err := undo.StringArg(args, "folder")
		if err != nil {
			return err
		}
		_, err = inventoryService.Restore(ctx, id, folder)
		return err
	})

	manager.RegisterOp("folders.move_item", func(ctx context.Context, args map[string]any) error {
		id, err := undo.UUIDArg(args, "item_id")
		if err != nil {
			return err
		}
		folder, err := undo.StringArg(args, "folder")
		if err != nil {
			return err
		}
		_, err = folderService.MoveItem(ctx, id, folder)
		return err
	})

	manager.RegisterOp("folders.restore_folders", func(ctx context.Context, args map[string]any) error {
		mapping, _ := args["folders"].(map[string]any)
		return folderService.RestoreFolders(ctx, mapping)
	})

	manager.RegisterOp("reservation.add", func(ctx context.Context, args map[string]any) error {
		deckID, err := undo.UUIDArg(args, "deck_id")
		if err != nil {
			return err
		}
		itemID, err := undo.UUIDArg(args, "item_id")
		if err != nil {
			return err
		}
		qty, err := undo.IntArg(args, "qty")
		if err != nil {
			return err
		}
		exact, _ := args["exact"].(bool)
		_, err = engine.AddCardToDeck(ctx, deckID, itemID, qty, exact)
		return err
	})

	manager.RegisterOp("reservation.remove", func(ctx context.Context, args map[string]any) error {
		deckID, err := undo.UUIDArg(args, "deck_id")
		if err != nil {
			return err
		}
		reservationID, err := undo.UUIDArg(args, "reservation_id")
		if err != nil {
			return err
		}
		qty, err := undo.IntArg(args, "qty")
		if err != nil {
			return err
		}
		return engine.RemoveCardFromDeck(ctx, deckID, reservationID, qty)
	})
}
