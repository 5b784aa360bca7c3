package main

import (
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ovchat/internal/chat"
	"github.com/samcharles93/ovchat/internal/genai"
)

type options struct {
	device       string
	maxNewTokens int64
	backend      string
	tpsScope     string
	keepGoing    bool
	configPath   string
	logLevel     string
	logFormat    string
	debug        bool
}

func runtimeFlags(o *options) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "device",
			Aliases:     []string{"d"},
			Usage:       "inference device passed to the runtime (CPU, GPU, NPU)",
			Value:       chat.DefaultDevice,
			Destination: &o.device,
		},
		&cli.Int64Flag{
			Name:        "max-new-tokens",
			Aliases:     []string{"n"},
			Usage:       "generation limit per turn",
			Value:       genai.DefaultMaxNewTokens,
			Destination: &o.maxNewTokens,
		},
		&cli.StringFlag{
			Name:        "backend",
			Usage:       "runtime backend (openvino, echo)",
			Value:       "openvino",
			Destination: &o.backend,
		},
	}
}

func chatFlags(o *options) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "tps-scope",
			Usage:       "tokens/sec window (turn, session)",
			Value:       string(chat.ScopeTurn),
			Destination: &o.tpsScope,
		},
		&cli.BoolFlag{
			Name:        "keep-going",
			Usage:       "report generation errors and keep chatting instead of exiting",
			Destination: &o.keepGoing,
		},
	}
}

func loggingFlags(o *options) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default: user config dir)",
			Destination: &o.configPath,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &o.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &o.logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &o.debug,
		},
	}
}
