// Command migrate creates or updates the tables one service owns.
//
//	migrate --service order
//	migrate --service payment --dsn "user:pass@tcp(localhost:3306)/payments?parseTime=true"
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/config"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/database"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/events"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/modules/orders"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/modules/payments"
)

func modelsFor(service string) ([]any, error) {
	switch service {
	case "order":
		return append(orders.Models(), &events.ProcessedEvent{}), nil
	case "payment":
		return payments.Models(), nil
	case "notifier":
		return []any{&events.ProcessedEvent{}}, nil
	default:
		return nil, fmt.Errorf("unknown service %q (order, payment, notifier)", service)
	}
}

func main() {
	app := &cli.App{
		Name:  "migrate",
		Usage: "apply schema migrations for a MicroShop service",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "service", Aliases: []string{"s"}, Required: true, Usage: "order | payment | notifier"},
			&cli.StringFlag{Name: "driver", Usage: "override DB_DRIVER"},
			&cli.StringFlag{Name: "dsn", Usage: "override DB_DSN"},
			&cli.BoolFlag{Name: "dry-run", Usage: "list the tables without touching the database"},
		},
		Action: func(c *cli.Context) error {
			models, err := modelsFor(c.String("service"))
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if v := c.String("driver"); v != "" {
				cfg.DB.Driver = v
			}
			if v := c.String("dsn"); v != "" {
				cfg.DB.DSN = v
			}

			if c.Bool("dry-run") {
				for _, m := range models {
					fmt.Fprintf(c.App.Writer, "%T\n", m)
				}
				return nil
			}
			if err := cfg.RequireDB(); err != nil {
				return err
			}

			db, err := database.Open(cfg.DB, nil)
			if err != nil {
				return err
			}
			defer database.Close(db) //nolint:errcheck

			if err := database.Migrate(db, models...); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "migrated %d tables for %s\n", len(models), c.String("service"))
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
