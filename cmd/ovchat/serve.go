package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ovchat/internal/api"
	"github.com/samcharles93/ovchat/internal/genai"
	"github.com/samcharles93/ovchat/internal/logger"
	"github.com/samcharles93/ovchat/internal/metrics"
)

func (a *app) serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
	)

	return &cli.Command{
		Name:      "serve",
		Usage:     "Serve the loaded model over HTTP",
		ArgsUsage: "<modelPath>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyServeConfig(cmd, a.cfg, &addr)

			opts, err := a.parseArgs(cmd.Args().Slice())
			if err != nil {
				return err
			}
			rt, err := genai.New(a.opts.backend)
			if err != nil {
				return err
			}
			log.Info("loading model", "model", opts.ModelPath, "device", opts.Device, "backend", a.opts.backend)
			if err := rt.Initialize(ctx, genai.Config{
				ModelPath:    opts.ModelPath,
				Device:       opts.Device,
				Streaming:    true,
				MaxNewTokens: int(a.opts.maxNewTokens),
			}); err != nil {
				return fmt.Errorf("initialize runtime: %w", err)
			}
			defer func() {
				if err := rt.Cleanup(); err != nil {
					log.Warn("cleanup failed", "error", err)
				}
			}()

			server := api.NewServer(rt, api.Info{
				Model:   opts.ModelPath,
				Device:  opts.Device,
				Backend: a.opts.backend,
			}, metrics.New(), log)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			if err := sc.Start(ctx, e); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}
