package main

import (
	"context"

	"github.com/nvr-ai/go-alpr/detector"
	"github.com/nvr-ai/go-alpr/logger"
	"github.com/nvr-ai/go-alpr/server"
)

// serve exposes the pipeline over HTTP until interrupted.
func (a *app) serve(ctx context.Context, args []string) error {
	fs := a.flagSet("serve")
	path := fs.String("config", "", "YAML configuration file")
	addr := fs.String("addr", "", "listen address, empty keeps the configured value")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := expectArgs(fs, 0); err != nil {
		return err
	}
	cfg, err := setup(*path)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	p, err := detector.NewPipeline(cfg, logger.Log())
	if err != nil {
		return err
	}
	defer p.Close()

	return server.New(p, logger.Log(), server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes)).Run(ctx, cfg.Server.Addr)
}
