// Command publish sends one event through the configured backend, for
// exercising the notifier and the order reconciler by hand.
//
//	publish --type payment.succeeded --payload '{"order_id":1,"user_id":1,"email":"a@b.c","total":"9.99"}'
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/config"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/events"
)

func main() {
	app := &cli.App{
		Name:  "publish",
		Usage: "publish a {type, payload} event",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Required: true},
			&cli.StringFlag{Name: "payload", Aliases: []string{"p"}, Value: "{}", Usage: "JSON object"},
			&cli.StringFlag{Name: "backend", Usage: "override EVENT_BACKEND"},
			&cli.DurationFlag{Name: "timeout", Value: 10 * time.Second},
			&cli.BoolFlag{Name: "dry-run", Usage: "print the envelope only"},
		},
		Action: func(c *cli.Context) error {
			var payload map[string]any
			if err := json.Unmarshal([]byte(c.String("payload")), &payload); err != nil {
				return fmt.Errorf("--payload must be a JSON object: %w", err)
			}

			if c.Bool("dry-run") {
				body, err := events.Encode(c.String("type"), payload)
				if err != nil {
					return err
				}
				fmt.Fprintln(c.App.Writer, string(body))
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if v := c.String("backend"); v != "" {
				cfg.Event.Backend = v
			}

			ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
			defer cancel()

			logger := zap.NewExample()
			pub, err := events.FromConfig(ctx, cfg.Event, cfg.AWSRegion, logger)
			if err != nil {
				return err
			}
			defer pub.Close() //nolint:errcheck

			if err := pub.Publish(ctx, c.String("type"), payload); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "published %s via %s\n", c.String("type"), cfg.Event.Backend)
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
