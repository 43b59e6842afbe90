// Command devtoken mints an HS256 bearer token for local testing.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/auth"
)

func main() {
	app := &cli.App{
		Name:  "devtoken",
		Usage: "print a signed JWT for the order and payment services",
		Flags: []cli.Flag{
			&cli.Uint64Flag{Name: "user", Aliases: []string{"u"}, Value: 1, Usage: "subject user id"},
			&cli.StringFlag{Name: "email", Value: "dev@microshop.local"},
			&cli.BoolFlag{Name: "admin"},
			&cli.DurationFlag{Name: "ttl", Value: 0, Usage: "token lifetime (default 1h)"},
			&cli.StringFlag{Name: "secret", EnvVars: []string{"JWT_SECRET"}, Required: true},
		},
		Action: func(c *cli.Context) error {
			tok, err := auth.NewIssuer(c.String("secret"), c.Duration("ttl")).
				Issue(c.Uint64("user"), c.String("email"), c.Bool("admin"))
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, tok)
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
