package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/marchkov/internal/auth"
	"github.com/example/marchkov/internal/creds"
	"github.com/example/marchkov/internal/crypto"
	"github.com/example/marchkov/internal/db"
	"github.com/example/marchkov/internal/metrics"
	"github.com/example/marchkov/internal/portal"
	"github.com/example/marchkov/internal/rides"
	"github.com/example/marchkov/internal/web"
)

func newServerCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the web UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfigAndLogger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			d, err := db.Open(ctx, cfg.Database.URL)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := d.Ping(ctx); err != nil {
				return fmt.Errorf("db ping: %w", err)
			}
			if migrateUp {
				if err := db.Migrate(ctx, d); err != nil {
					return err
				}
			}

			hashKey, err := decodeRequiredKey(cfg.Web.CookieHashKey, "web.cookie_hash_key")
			if err != nil {
				return err
			}
			blockKey, err := decodeRequiredKey(cfg.Web.CookieBlockKey, "web.cookie_block_key")
			if err != nil {
				return err
			}
			credKey, err := decodeRequiredKey(cfg.Crypto.CredentialsKey, "crypto.credentials_key")
			if err != nil {
				return err
			}
			aead, err := crypto.New(credKey)
			if err != nil {
				return fmt.Errorf("crypto.credentials_key: %w", err)
			}

			client := portal.New(portal.Options{
				IAAABase:  cfg.Portal.IAAABase,
				WprocBase: cfg.Portal.WprocBase,
				Timeout:   cfg.Portal.Timeout,
				Logger:    log,
			})

			ws := &web.Server{
				Auth:    auth.NewStore(d, hashKey, blockKey),
				Creds:   creds.NewRepo(d, aead),
				Rides:   rides.NewRepo(d),
				Portal:        client,
				Timing:        cfg.Timing.Shuttle(),
				TempResources: cfg.Timing.TempResourceMap(),
				Metrics:       metrics.NewCollector(),
				Log:           log,
			}
			return web.Start(ctx, cfg.Server.Addr, ws.Routes(), log)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
