package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/marchkov/internal/config"
	"github.com/example/marchkov/internal/logging"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "marchkov",
		Short: "自动预约燕园和新校区之间的班车，并直接给出乘车码",
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newKeysCmd())
	root.AddCommand(newServerCmd())
	root.AddCommand(newUserCmd())
	root.AddCommand(newReserveCmd())
	root.AddCommand(newHistoryCmd())

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfigAndLogger is the shared startup path of every subcommand that
// talks to the portal or the database.
func loadConfigAndLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func decodeRequiredKey(b64, name string) ([]byte, error) {
	key, err := config.DecodeKey(b64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w (run `marchkov keys` to generate)", name, err)
	}
	return key, nil
}
