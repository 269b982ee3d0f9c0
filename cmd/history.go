package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/marchkov/internal/db"
	"github.com/example/marchkov/internal/portal"
	"github.com/example/marchkov/internal/rides"
	"github.com/example/marchkov/internal/shuttle"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Sync and analyze ride history",
	}
	cmd.AddCommand(newHistorySyncCmd())
	cmd.AddCommand(newHistoryStatsCmd())
	return cmd
}

func newHistorySyncCmd() *cobra.Command {
	var (
		username string
		password string
		userID   int64
	)

	c := &cobra.Command{
		Use:   "sync",
		Short: "Fetch the full ride history from the portal and store it",
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

			client := portal.New(portal.Options{
				IAAABase:  cfg.Portal.IAAABase,
				WprocBase: cfg.Portal.WprocBase,
				Timeout:   cfg.Portal.Timeout,
				Logger:    log,
			})
			session := client.NewSession()
			if err := session.Authenticate(ctx, username, password, func(msg string) {
				fmt.Fprintln(os.Stdout, msg)
			}); err != nil {
				return err
			}
			records, err := session.RideHistory(ctx)
			if err != nil {
				return err
			}
			if err := rides.NewRepo(d).Replace(ctx, userID, records); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "synced %d records for user %d\n", len(records), userID)
			return nil
		},
	}

	c.Flags().StringVar(&username, "username", "", "portal username (student id)")
	c.Flags().StringVar(&password, "password", "", "portal password")
	c.Flags().Int64Var(&userID, "user-id", 0, "local user id owning the snapshot")
	_ = c.MarkFlagRequired("username")
	_ = c.MarkFlagRequired("password")
	_ = c.MarkFlagRequired("user-id")
	return c
}

func newHistoryStatsCmd() *cobra.Command {
	var userID int64

	c := &cobra.Command{
		Use:   "stats",
		Short: "Print ride statistics from the stored snapshot",
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

			records, err := rides.NewRepo(d).List(ctx, userID)
			if err != nil {
				return err
			}
			printStats(shuttle.Analyze(records))
			return nil
		},
	}

	c.Flags().Int64Var(&userID, "user-id", 0, "local user id owning the snapshot")
	_ = c.MarkFlagRequired("user-id")
	return c
}

func printStats(a shuttle.Analytics) {
	fmt.Printf("有效乘车 %d 次，覆盖 %d 天，爽约率 %.1f%%\n", a.ValidRides, len(a.CalendarDays), a.NoShowRate*100)

	if len(a.Routes) > 0 {
		fmt.Println("\n路线:")
		for _, r := range a.Routes {
			fmt.Printf("  %-20s %d\n", r.Name, r.Count)
		}
	}
	if len(a.Hourly) > 0 {
		fmt.Println("\n出发时段:")
		for _, h := range a.Hourly {
			fmt.Printf("  %02d:00  去燕园 %-3d 去昌平 %d\n", h.Hour, h.ToYanyuan, h.ToChangping)
		}
	}
	if len(a.SignInDeltas) > 0 {
		fmt.Printf("\n签到时间差（分钟，%d..%d）:\n", a.DeltaRange[0], a.DeltaRange[1])
		for _, b := range a.SignInDeltas {
			fmt.Printf("  %+4d  %d\n", b.Minutes, b.Count)
		}
	}
}
