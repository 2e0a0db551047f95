// Package connect implements the CLI command for outbound connections.
package connect

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"

	"dualdial/cmd/shared"
	"dualdial/pkg/config"
	"dualdial/pkg/format"
	"dualdial/pkg/log"
	"dualdial/pkg/pipeio"
	"dualdial/pkg/race"
	"dualdial/pkg/resolve"
)

const categoryConnect = "connect"

const hostFlag = "host"
const portFlag = "port"

// GetCommand returns the connect command: resolve the target, race an
// IPv4 and an IPv6 connect, and pipe stdio to the winner.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:  "connect",
		Usage: "Connect to a remote host, racing IPv4 against IPv6",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := &config.Shared{
				Host:    cmd.String(hostFlag),
				Port:    int(cmd.Int(portFlag)),
				UDP:     cmd.Bool(shared.UDPFlag),
				LogFile: cmd.String(shared.LogFileFlag),
				Timeout: time.Duration(cmd.Int(shared.TimeoutFlag)) * time.Millisecond,
				Verbose: cmd.Bool(shared.VerboseFlag),
			}
			cfg.Logger = log.NewLogger(cfg.Verbose)

			if errors := config.Validate(cfg); len(errors) > 0 {
				cfg.Logger.ErrorMsg("Argument validation errors:\n")
				for _, err := range errors {
					cfg.Logger.ErrorMsg(" - %s\n", err)
				}
				return fmt.Errorf("exiting")
			}

			return run(ctx, cfg)
		},
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     hostFlag,
				Usage:    "Remote host (name or IP)",
				Category: categoryConnect,
				Required: true,
			},
			&cli.IntFlag{
				Name:     portFlag,
				Aliases:  []string{"p"},
				Usage:    "Remote port",
				Category: categoryConnect,
				Required: true,
			},
		}, shared.GetCommonFlags()...),
	}
}

func run(ctx context.Context, cfg *config.Shared) error {
	logger := cfg.Logger
	logger.InfoMsg("Connecting to %s\n", format.Addr(cfg.Host, cfg.Port))

	lookupCtx, cancel := shared.LookupContext(ctx, cfg)
	defer cancel()

	candidates, err := resolve.ClientLookup(lookupCtx, cfg.Host, strconv.Itoa(cfg.Port), shared.SockType(cfg))
	if err != nil {
		return fmt.Errorf("resolving %s: %w", format.Addr(cfg.Host, cfg.Port), err)
	}
	for _, c := range candidates {
		logger.VerboseMsg("Candidate %s", format.AddrPort(c.AddrPort()))
	}

	fd, err := race.Connect(candidates)
	if err != nil {
		return fmt.Errorf("connecting: %w", err)
	}

	conn, err := race.AsConn(fd)
	if err != nil {
		return fmt.Errorf("adopting connection: %w", err)
	}
	defer func() { conn.Close() }()

	if cfg.LogFile != "" {
		logger.VerboseMsg("Logging traffic to %s", cfg.LogFile)
		conn, err = log.NewLoggedConn(conn, cfg.LogFile)
		if err != nil {
			return fmt.Errorf("enabling traffic log: %w", err)
		}
	}

	logger.InfoMsg("Connected to %s\n", conn.RemoteAddr())
	relay(conn, logger)

	return nil
}

func relay(conn net.Conn, logger *log.Logger) {
	stdio := pipeio.NewStdio()
	pipeio.Pipe(conn, stdio, func(err error) {
		logger.VerboseMsg("Relaying: %s", err)
	})
	logger.InfoMsg("Connection closed\n")
}
