package main

import (
	"github.com/hltapp/hlt-server/config"
	"github.com/hltapp/hlt-server/routes"
	"github.com/hltapp/hlt-server/store"
	"github.com/hltapp/hlt-server/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	kv, err := openStore(cfg)
	if err != nil {
		utils.Sugar.Fatalf("open store: %v", err)
	}

	r := routes.SetupRouter(kv)

	utils.Sugar.Infof("Starting server on port %s (backend=%s)", cfg.AppPort, cfg.StoreBackend)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

// openStore selects the document store backend from configuration.
func openStore(cfg config.AppConfig) (store.Store, error) {
	switch cfg.StoreBackend {
	case "mysql":
		return store.NewSQLStore(config.InitDatabase())
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return store.NewRedisStore(utils.GetRedis()), nil
	}
}
