package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/marchkov/internal/pipeline"
	"github.com/example/marchkov/internal/portal"
	"github.com/example/marchkov/internal/shuttle"
)

func newReserveCmd() *cobra.Command {
	var (
		username  string
		password  string
		direction string
	)

	c := &cobra.Command{
		Use:   "reserve",
		Short: "Run one reservation attempt and print the boarding code",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfigAndLogger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			var dir shuttle.Direction
			switch direction {
			case "":
			case "yanyuan", string(shuttle.ToYanyuan):
				dir = shuttle.ToYanyuan
			case "changping", string(shuttle.ToChangping):
				dir = shuttle.ToChangping
			default:
				return fmt.Errorf("unknown direction %q (want yanyuan or changping)", direction)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			client := portal.New(portal.Options{
				IAAABase:  cfg.Portal.IAAABase,
				WprocBase: cfg.Portal.WprocBase,
				Timeout:   cfg.Portal.Timeout,
				Logger:    log,
			})

			res, err := pipeline.Run(ctx, client, username, password, pipeline.Options{
				Direction:     dir,
				Timing:        cfg.Timing.Shuttle(),
				TempResources: cfg.Timing.TempResourceMap(),
				Progress:      func(msg string) { fmt.Fprintln(os.Stdout, msg) },
				Logger:        log,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(os.Stdout)
			if res.QR.IsTemp {
				fmt.Fprintf(os.Stdout, "临时码（%s %s）\n", res.Summary.ResourceName, res.Summary.StartTime)
			} else {
				fmt.Fprintf(os.Stdout, "乘车码（%s %s）\n", res.Summary.ResourceName, res.Summary.StartTime)
			}
			fmt.Fprintln(os.Stdout, res.QR.Code)
			return nil
		},
	}

	c.Flags().StringVar(&username, "username", "", "portal username (student id)")
	c.Flags().StringVar(&password, "password", "", "portal password")
	c.Flags().StringVar(&direction, "direction", "", "yanyuan or changping; empty decides by the critical time")
	_ = c.MarkFlagRequired("username")
	_ = c.MarkFlagRequired("password")
	return c
}
