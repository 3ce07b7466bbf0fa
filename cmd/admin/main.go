package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"os"

	postgresadapter "clipledger/contexts/finance-core/earnings-reconciliation/adapters/postgres"
	earningshttp "clipledger/contexts/finance-core/earnings-reconciliation/transport/http"
	"clipledger/internal/app/bootstrap"
	"clipledger/internal/platform/config"
	"clipledger/internal/platform/db"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "clipledger-admin",
		Usage: "operator commands for campaign spend, completion and payments",
		Commands: []*cli.Command{
			commandMigrate(),
			commandSyncSpend(),
			commandSyncStatus(),
			commandComplete(),
			commandTrackViews(),
			commandRunPipeline(),
			commandPendingPayments(),
			commandMarkPaid(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandMigrate() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "create or extend the earnings tables",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			pg, err := db.Connect(cfg.PostgresDSN)
			if err != nil {
				return err
			}
			defer pg.Close()
			if err := postgresadapter.Migrate(c.Context, pg.DB); err != nil {
				return err
			}
			log.Println("earnings tables migrated")
			return nil
		},
	}
}

func commandSyncSpend() *cli.Command {
	return &cli.Command{
		Name:  "sync-spend",
		Usage: "recompute campaign spend from clip earnings (all campaigns when --campaign is empty)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "campaign"},
		},
		Action: withRuntime(func(c *cli.Context, rt *bootstrap.Runtime) error {
			resp, err := rt.Module.Handler.SyncSpendHandler(c.Context, earningshttp.SyncSpendRequest{
				CampaignID: c.String("campaign"),
			})
			if err != nil {
				return err
			}
			return printJSON(resp)
		}),
	}
}

func commandSyncStatus() *cli.Command {
	return &cli.Command{
		Name:  "sync-status",
		Usage: "report stored versus actual spend without writing",
		Action: withRuntime(func(c *cli.Context, rt *bootstrap.Runtime) error {
			resp, err := rt.Module.Handler.SyncStatusHandler(c.Context)
			if err != nil {
				return err
			}
			return printJSON(resp)
		}),
	}
}

func commandComplete() *cli.Command {
	return &cli.Command{
		Name:  "complete",
		Usage: "complete an active or paused campaign",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "campaign", Required: true},
			&cli.StringFlag{Name: "reason"},
			&cli.StringFlag{Name: "actor", Value: "admin-cli"},
		},
		Action: withRuntime(func(c *cli.Context, rt *bootstrap.Runtime) error {
			resp, err := rt.Module.Handler.CompleteCampaignHandler(c.Context, c.String("actor"), earningshttp.CompleteCampaignRequest{
				CampaignID:       c.String("campaign"),
				CompletionReason: c.String("reason"),
			})
			if err != nil {
				return err
			}
			return printJSON(resp)
		}),
	}
}

func commandTrackViews() *cli.Command {
	return &cli.Command{
		Name:  "track-views",
		Usage: "scrape one batch of tracked clips",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "batch", Usage: "clips to scrape, 0 uses VIEW_TRACKING_BATCH_SIZE"},
		},
		Action: withRuntime(func(c *cli.Context, rt *bootstrap.Runtime) error {
			resp, err := rt.Module.Handler.TrackViewsHandler(c.Context, earningshttp.TrackViewsRequest{
				BatchSize: c.Int("batch"),
			})
			if err != nil {
				return err
			}
			return printJSON(resp)
		}),
	}
}

func commandRunPipeline() *cli.Command {
	return &cli.Command{
		Name:  "run-pipeline",
		Usage: "track views, calculate earnings, reconcile and evaluate completion once",
		Action: withRuntime(func(c *cli.Context, rt *bootstrap.Runtime) error {
			resp, err := rt.Module.Handler.RunPipelineHandler(c.Context)
			if err != nil {
				return err
			}
			return printJSON(resp)
		}),
	}
}

func commandPendingPayments() *cli.Command {
	return &cli.Command{
		Name:  "pending-payments",
		Usage: "list users whose payable balance meets the minimum payout",
		Action: withRuntime(func(c *cli.Context, rt *bootstrap.Runtime) error {
			resp, err := rt.Module.Handler.PendingPaymentsHandler(c.Context)
			if err != nil {
				return err
			}
			return printJSON(resp)
		}),
	}
}

func commandMarkPaid() *cli.Command {
	return &cli.Command{
		Name:  "mark-paid",
		Usage: "mark every approved submission of the given users paid",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "user", Required: true},
			&cli.StringFlag{Name: "method", Required: true},
			&cli.StringFlag{Name: "notes"},
		},
		Action: withRuntime(func(c *cli.Context, rt *bootstrap.Runtime) error {
			resp, err := rt.Module.Handler.MarkPaymentsPaidHandler(c.Context, earningshttp.MarkPaymentsPaidRequest{
				UserIDs:       c.StringSlice("user"),
				PaymentMethod: c.String("method"),
				Notes:         c.String("notes"),
			})
			if err != nil {
				return err
			}
			return printJSON(resp)
		}),
	}
}

func withRuntime(action func(*cli.Context, *bootstrap.Runtime) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil)).With("service", cfg.ServiceName, "process", "admin")
		ctx := c.Context
		if ctx == nil {
			ctx = context.Background()
		}
		rt, err := bootstrap.BuildRuntime(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer rt.Close()
		return action(c, rt)
	}
}

func printJSON(payload any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}
