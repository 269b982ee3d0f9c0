package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/marchkov/internal/auth"
	"github.com/example/marchkov/internal/db"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage local web accounts",
	}
	cmd.AddCommand(newUserAddCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	var username, password string

	c := &cobra.Command{
		Use:   "add",
		Short: "Add a local user (username/password)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfigAndLogger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx := context.Background()
			d, err := db.Open(ctx, cfg.Database.URL)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := db.Migrate(ctx, d); err != nil {
				return err
			}

			hashKey, err := decodeRequiredKey(cfg.Web.CookieHashKey, "web.cookie_hash_key")
			if err != nil {
				return err
			}
			blockKey, err := decodeRequiredKey(cfg.Web.CookieBlockKey, "web.cookie_block_key")
			if err != nil {
				return err
			}

			store := auth.NewStore(d, hashKey, blockKey)
			id, err := store.CreateUser(ctx, username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "created user %q (id %d)\n", username, id)
			return nil
		},
	}

	c.Flags().StringVar(&username, "username", "", "username")
	c.Flags().StringVar(&password, "password", "", "password")
	_ = c.MarkFlagRequired("username")
	_ = c.MarkFlagRequired("password")
	return c
}
