package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/hltapp/hlt-server/config"
	"github.com/hltapp/hlt-server/models"
	"github.com/hltapp/hlt-server/services"
	"github.com/hltapp/hlt-server/store"
	"github.com/hltapp/hlt-server/utils"
)

// grantrole grants or revokes a role on an existing account, addressed by
// username. Bootstrapping the first superadmin happens here, since the HTTP
// role endpoints themselves require a superadmin caller.
func main() {
	username := flag.String("username", "", "username of the target account")
	role := flag.String("role", models.RoleSuperAdmin, "role to grant or revoke")
	revoke := flag.Bool("revoke", false, "revoke the role instead of granting it")
	flag.Parse()

	if *username == "" {
		log.Fatal("usage: grantrole -username <name> [-role <role>] [-revoke]")
	}

	cfg := config.Load()
	if err := utils.InitLogger(cfg); err != nil {
		log.Fatalf("init logger: %v", err)
	}

	kv, err := openStore(cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	accounts := services.NewAccounts(kv)
	userID, err := resolveUsername(ctx, kv, *username)
	if err != nil {
		log.Fatalf("resolve username %s: %v", *username, err)
	}

	var acct *models.UserAccount
	if *revoke {
		acct, err = accounts.RevokeRole(ctx, userID, *role)
	} else {
		acct, err = accounts.GrantRole(ctx, userID, *role)
	}
	if err != nil {
		log.Fatalf("update roles: %v", err)
	}

	fmt.Printf("user %s (%s) now has roles %v\n", acct.Username, acct.ID, acct.Roles)
}

func openStore(cfg config.AppConfig) (store.Store, error) {
	switch cfg.StoreBackend {
	case "mysql":
		return store.NewSQLStore(config.InitDatabase())
	case "memory":
		return nil, fmt.Errorf("memory backend holds no persistent accounts")
	default:
		return store.NewRedisStore(utils.GetRedis()), nil
	}
}

func resolveUsername(ctx context.Context, kv store.Store, username string) (string, error) {
	cred, err := services.CredentialByUsername(ctx, kv, username)
	if err != nil {
		return "", err
	}
	return cred.UserID, nil
}
