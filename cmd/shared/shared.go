// Package shared provides common CLI flag definitions and helpers used
// across dualdial's command-line interface.
package shared

import (
	"context"

	"github.com/urfave/cli/v3"

	"dualdial/pkg/config"
	"dualdial/pkg/resolve"
)

const categoryCommon = "common"

// UDPFlag is the name of the flag selecting datagram sockets.
const UDPFlag = "udp"

// VerboseFlag is the name of the flag to enable verbose logging.
const VerboseFlag = "verbose"

// TimeoutFlag is the name of the flag to specify the name resolution
// timeout in milliseconds.
const TimeoutFlag = "timeout"

// LogFileFlag is the name of the flag to specify a traffic log file.
const LogFileFlag = "log"

// GetCommonFlags returns the CLI flags used by both connect and listen.
func GetCommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:     UDPFlag,
			Aliases:  []string{"u"},
			Usage:    "Use UDP instead of TCP",
			Category: categoryCommon,
			Value:    false,
			Required: false,
		},
		&cli.BoolFlag{
			Name:     VerboseFlag,
			Aliases:  []string{"v"},
			Usage:    "Verbose logging",
			Category: categoryCommon,
			Value:    false,
			Required: false,
		},
		&cli.IntFlag{
			Name:     TimeoutFlag,
			Aliases:  []string{"t"},
			Usage:    "Name resolution timeout in milliseconds, 0 to disable",
			Category: categoryCommon,
			Value:    10000, // 10 seconds default
			Required: false,
		},
		&cli.StringFlag{
			Name:     LogFileFlag,
			Aliases:  []string{"l"},
			Usage:    "Write all relayed traffic to this file",
			Category: categoryCommon,
			Value:    "",
			Required: false,
		},
	}
}

// SockType maps a configuration to the socket type the resolver expects.
func SockType(cfg *config.Shared) int {
	if cfg.UDP {
		return resolve.Datagram
	}
	return resolve.Stream
}

// LookupContext derives the context for name resolution, applying the
// configured timeout when one is set.
func LookupContext(ctx context.Context, cfg *config.Shared) (context.Context, context.CancelFunc) {
	if cfg.Timeout > 0 {
		return context.WithTimeout(ctx, cfg.Timeout)
	}
	return context.WithCancel(ctx)
}
