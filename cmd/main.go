package main

import (
	"context"
	"fmt"
	"os"

	"dualdial/cmd/connect"
	"dualdial/cmd/listen"
	"dualdial/cmd/version"

	"github.com/urfave/cli/v3"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "[!] Error: %s\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	app := &cli.Command{
		Name:  "dualdial",
		Usage: "dual-stack connect and listen tool",
		Commands: []*cli.Command{
			connect.GetCommand(),
			listen.GetCommand(),
			version.GetCommand(),
		},
	}

	return app.Run(context.Background(), args)
}
