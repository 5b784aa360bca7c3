package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ovchat/internal/chat"
	"github.com/samcharles93/ovchat/internal/genai"
	"github.com/samcharles93/ovchat/internal/lineedit"
	"github.com/samcharles93/ovchat/internal/logger"
)

const usageLine = "usage: ovchat [flags] <modelPath> [nostream]"

func (a *app) chat(ctx context.Context, cmd *cli.Command) error {
	log := logger.FromContext(ctx)

	opts, err := a.parseArgs(cmd.Args().Slice())
	if err != nil {
		return err
	}
	scope, err := chat.ParseScope(a.opts.tpsScope)
	if err != nil {
		return err
	}
	rt, err := genai.New(a.opts.backend)
	if err != nil {
		return err
	}

	in := lineedit.New(a.stdin, a.stdout)
	defer func() { _ = in.Close() }()

	sess, err := chat.Bootstrap(ctx, rt, chat.Config{
		Options:      opts,
		MaxNewTokens: int(a.opts.maxNewTokens),
		Scope:        scope,
		KeepGoing:    a.opts.keepGoing,
		Input:        in,
		Out:          a.stdout,
		Logger:       log.With("backend", a.opts.backend),
	})
	if err != nil {
		return err
	}
	return sess.Run(ctx)
}

// parseArgs resolves the positional arguments and applies the device flag.
func (a *app) parseArgs(args []string) (chat.Options, error) {
	opts, err := chat.ParseArgs(args)
	if err != nil {
		return chat.Options{}, fmt.Errorf("%w\n%s", err, usageLine)
	}
	if a.opts.device != "" {
		opts.Device = a.opts.device
	}
	return opts, nil
}
