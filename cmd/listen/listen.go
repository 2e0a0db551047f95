// Package listen implements the CLI command for dual-stack listening.
package listen

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"

	"dualdial/cmd/shared"
	"dualdial/pkg/bind"
	"dualdial/pkg/config"
	"dualdial/pkg/format"
	"dualdial/pkg/log"
	"dualdial/pkg/pipeio"
	"dualdial/pkg/resolve"
)

const categoryListen = "listen"

const hostFlag = "host"
const portFlag = "port"

// GetCommand returns the listen command: bind one socket per address
// family, take the first inbound connection, and pipe stdio to it.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:  "listen",
		Usage: "Listen for a connection on IPv4 and IPv6",
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
				Usage:    "Local interface, leave empty for all interfaces",
				Category: categoryListen,
				Value:    "",
				Required: false,
			},
			&cli.IntFlag{
				Name:     portFlag,
				Aliases:  []string{"p"},
				Usage:    "Local port",
				Category: categoryListen,
				Required: true,
			},
		}, shared.GetCommonFlags()...),
	}
}

func run(ctx context.Context, cfg *config.Shared) error {
	logger := cfg.Logger

	lookupCtx, cancel := shared.LookupContext(ctx, cfg)
	defer cancel()

	candidates, err := resolve.ServerLookup(lookupCtx, cfg.Host, strconv.Itoa(cfg.Port), shared.SockType(cfg))
	if err != nil {
		return fmt.Errorf("resolving %s: %w", format.Addr(cfg.Host, cfg.Port), err)
	}

	fds, err := bind.Listen(candidates)
	if err != nil {
		return fmt.Errorf("binding: %w", err)
	}
	for _, fd := range fds {
		if ap, err := bind.Addr(fd); err == nil {
			logger.InfoMsg("Listening on %s\n", format.AddrPort(ap))
		}
	}

	if cfg.UDP {
		return servePacket(fds, logger)
	}
	return serveStream(fds, cfg, logger)
}

// serveStream accepts the first inbound connection on either family and
// relays stdio to it, netcat style.
func serveStream(fds []int, cfg *config.Shared, logger *log.Logger) error {
	listeners, err := bind.AsListeners(fds)
	if err != nil {
		return fmt.Errorf("adopting listeners: %w", err)
	}

	conn, err := bind.AcceptFirst(listeners)
	for _, ln := range listeners {
		ln.Close()
	}
	if err != nil {
		return fmt.Errorf("accepting: %w", err)
	}
	defer func() { conn.Close() }()

	if cfg.LogFile != "" {
		logger.VerboseMsg("Logging traffic to %s", cfg.LogFile)
		conn, err = log.NewLoggedConn(conn, cfg.LogFile)
		if err != nil {
			return fmt.Errorf("enabling traffic log: %w", err)
		}
	}

	logger.InfoMsg("New connection from %s\n", conn.RemoteAddr())

	stdio := pipeio.NewStdio()
	pipeio.Pipe(conn, stdio, func(err error) {
		logger.VerboseMsg("Relaying: %s", err)
	})
	logger.InfoMsg("Connection closed\n")

	return nil
}

// servePacket reads datagrams from the first bound socket and writes
// their payloads to stdout. Remaining sockets are closed.
func servePacket(fds []int, logger *log.Logger) error {
	pc, err := bind.AsPacketConn(fds[0])
	if err != nil {
		return fmt.Errorf("adopting packet socket: %w", err)
	}
	defer pc.Close()

	for _, fd := range fds[1:] {
		bind.Close(fd)
	}

	buf := make([]byte, 64*1024)
	var peer net.Addr
	for {
		n, from, err := pc.ReadFrom(buf)
		if err != nil {
			return fmt.Errorf("reading datagram: %w", err)
		}
		if peer == nil || peer.String() != from.String() {
			peer = from
			logger.InfoMsg("Receiving from %s\n", from)
		}
		if _, err := os.Stdout.Write(buf[:n]); err != nil {
			return fmt.Errorf("writing to stdout: %w", err)
		}
	}
}
