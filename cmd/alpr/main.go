// Command alpr reads license plates and prepares plate datasets.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-alpr/config"
	"github.com/nvr-ai/go-alpr/logger"
)

// app holds the process streams so commands can be driven from tests.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	name  string
	usage string
	run   func(a *app, ctx context.Context, args []string) error
}

var commands = []command{
	{"split", "split [-ratio 0.8] [-indent n] dataset.json", (*app).split},
	{"yolo2coco", "yolo2coco [-indent n] [-alphabet s] [-strict] labels images src_box dst_box dir", (*app).yolo2coco},
	{"detect", "detect [-config f] [-batch n] [-thresh t] draw|label|crop src dst", (*app).detect},
	{"recognize", "recognize [-config f] [-batch n] [-thresh t] draw|label src dst", (*app).recognize},
	{"read", "read [-config f] [-out plate.png] dir", (*app).read},
	{"correct", "correct src dst", (*app).correct},
	{"serve", "serve [-config f] [-addr a]", (*app).serve},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	err := a.run(ctx, os.Args[1:])
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "alpr:", err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.usage()
		return errors.New("missing command")
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(a, ctx, args[1:])
		}
	}
	a.usage()
	return errors.Errorf("unknown command %q", args[0])
}

func (a *app) usage() {
	fmt.Fprintln(a.stderr, "usage: alpr <command> [flags] [args]")
	for _, c := range commands {
		fmt.Fprintln(a.stderr, "  alpr", c.usage)
	}
}

// flagSet returns a flag set that reports errors instead of exiting.
func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// setup loads the configuration and installs the process logger from it.
func setup(path string) (config.Config, error) {
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return config.Config{}, err
	}
	if cfg.Log.Development {
		err = logger.InitDevelopment(cfg.Log.Level)
	} else {
		err = logger.InitProduction(cfg.Log.Level)
	}
	if err != nil {
		return config.Config{}, errors.Wrap(err, "init logger")
	}
	return cfg, nil
}

// expectArgs checks the positional argument count of fs.
func expectArgs(fs *flag.FlagSet, n int) error {
	if fs.NArg() != n {
		fs.Usage()
		return errors.Errorf("%s: expected %d arguments, got %d", fs.Name(), n, fs.NArg())
	}
	return nil
}
