package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ovchat/internal/lineedit"
	"github.com/samcharles93/ovchat/internal/logger"
)

type app struct {
	opts options
	cfg  Config

	stdin  *os.File
	stdout io.Writer
	stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin *os.File, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	if err := a.command().Run(ctx, args); err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func (a *app) command() *cli.Command {
	flags := append(runtimeFlags(&a.opts), chatFlags(&a.opts)...)
	flags = append(flags, loggingFlags(&a.opts)...)
	return &cli.Command{
		Name:      "ovchat",
		Usage:     "Chat with a local OpenVINO GenAI model",
		ArgsUsage: "<modelPath> [nostream]",
		Flags:     flags,
		Writer:    a.stdout,
		ErrWriter: a.stderr,
		Before:    a.before,
		Action:    a.chat,
		Commands: []*cli.Command{
			a.serveCmd(),
			versionCmd(),
		},
	}
}

// before loads the config file and installs the logger on ctx for every
// command.
func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := loadConfig(a.opts.configPath)
	if err != nil {
		return ctx, err
	}
	a.cfg = cfg
	applyConfig(cmd, cfg, &a.opts)

	level := a.opts.logLevel
	if a.opts.debug {
		level = "debug"
	}
	color := false
	if f, ok := a.stderr.(*os.File); ok {
		color = lineedit.IsTerminal(f)
	}
	log, err := logger.Setup(a.stderr, level, a.opts.logFormat, color)
	if err != nil {
		return ctx, err
	}
	return logger.WithContext(ctx, log), nil
}
