package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/O-Isaac/kamihama-server/internal/app"
	"github.com/O-Isaac/kamihama-server/internal/config"
	"github.com/O-Isaac/kamihama-server/internal/logger"
	"github.com/O-Isaac/kamihama-server/pkg/assets"
)

const usage = `usage: kamihama [flags] <command> [args]

commands:
  master <endpoint>      print a master JSON document
  additional <item>      print an auxiliary JSON document
  asset <item>           download resource/<item> (use -o to write to a file)
  version                check the latest app version and notify publishers
  watch                  poll the app version until interrupted
  prefetch <manifest>    warm the local cache from a YAML/JSON manifest

flags:
`

func main() {
	err := run(os.Args[1:], os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kamihama: %v\n", err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps a run error to the process status. A missing asset is 2.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, assets.ErrAssetNotFound):
		return 2
	default:
		return 1
	}
}

func run(args []string, stdout io.Writer) error {
	flags := pflag.NewFlagSet("kamihama", pflag.ContinueOnError)
	flags.String("config", "", "path to an appsettings file")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	output := flags.StringP("output", "o", "", "write the downloaded asset to this file instead of stdout")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	rest := flags.Args()
	if len(rest) == 0 {
		flags.Usage()
		return errors.New("missing command")
	}
	command, params := rest[0], rest[1:]

	cfg, err := config.LoadWithFlags(flags)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg.LogLevel, os.Stderr)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mirror, err := app.NewMirror(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize mirror", "error", err)
		return err
	}
	defer mirror.Close()

	switch command {
	case "master":
		endpoint, err := singleArg(command, params)
		if err != nil {
			return err
		}
		doc, err := mirror.MasterJSON(ctx, endpoint)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, string(doc))
		return err

	case "additional":
		item, err := singleArg(command, params)
		if err != nil {
			return err
		}
		text, err := mirror.AdditionalJSON(ctx, item)
		if text != "" {
			if _, werr := fmt.Fprintln(stdout, text); werr != nil {
				return werr
			}
		}
		return err

	case "asset":
		item, err := singleArg(command, params)
		if err != nil {
			return err
		}
		res := mirror.Asset(ctx, item)
		if !res.OK() {
			return fmt.Errorf("asset %s: %w", item, res.Err)
		}
		return writeAsset(stdout, *output, res)

	case "version":
		check, err := mirror.CheckVersion(ctx)
		if err != nil {
			return err
		}
		if check.Changed && check.Previous != "" {
			_, err = fmt.Fprintf(stdout, "%s (was %s)\n", check.Latest, check.Previous)
			return err
		}
		_, err = fmt.Fprintln(stdout, check.Latest)
		return err

	case "watch":
		return mirror.Watch(ctx)

	case "prefetch":
		path, err := singleArg(command, params)
		if err != nil {
			return err
		}
		items, err := app.LoadManifest(path)
		if err != nil {
			return err
		}
		summary, err := mirror.Prefetch(ctx, items)
		fmt.Fprintf(stdout, "requested=%d succeeded=%d cached=%d not_found=%d failed=%d\n",
			summary.Requested, summary.Succeeded, summary.Cached, summary.NotFound, summary.Failed)
		if len(summary.FailedItems) > 0 {
			fmt.Fprintf(stdout, "failed: %s\n", strings.Join(summary.FailedItems, ", "))
		}
		return err

	default:
		flags.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func singleArg(command string, params []string) (string, error) {
	if len(params) != 1 || strings.TrimSpace(params[0]) == "" {
		return "", fmt.Errorf("%s expects exactly one argument", command)
	}
	return params[0], nil
}

func writeAsset(stdout io.Writer, path string, res assets.Result) error {
	if path == "" {
		_, err := io.Copy(stdout, res.Reader())
		return err
	}
	if err := os.WriteFile(path, res.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
