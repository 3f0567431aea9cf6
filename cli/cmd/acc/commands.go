package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/aicommandcenter/aicc/pkg/probe"
	"github.com/aicommandcenter/aicc/pkg/routing"
	"github.com/aicommandcenter/aicc/pkg/tail"
	"github.com/aicommandcenter/aicc/pkg/types"
)

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("acc "+name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func (a *app) health(ctx context.Context, args []string) int {
	fs := a.flags("health")
	asJSON := fs.Bool("json", false, "print the aggregate as JSON")
	timeout := fs.Duration("timeout", probe.DefaultTimeout, "per-probe timeout")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	agg := a.newHealth(probe.Options{Timeout: *timeout}).GetAll(ctx)

	if *asJSON {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(agg); err != nil {
			return a.fail(err)
		}
	} else if err := a.printer().Health(agg); err != nil {
		return a.fail(err)
	}

	if !agg.AllHealthy() {
		return exitFail
	}
	return exitOK
}

func (a *app) logs(ctx context.Context, args []string) int {
	fs := a.flags("logs")
	lines := fs.IntP("lines", "n", 100, "number of trailing lines")
	follow := fs.BoolP("follow", "f", false, "keep printing appended lines")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		return a.usageErr("logs: expected one service")
	}
	if *lines < 1 {
		return a.usageErr("logs: --lines must be at least 1")
	}

	id, err := types.ParseServiceID(fs.Arg(0))
	if err != nil {
		return a.fail(err)
	}
	path, err := tail.LogPath(a.layout.LogsDir(), id)
	if err != nil {
		return a.fail(err)
	}

	out, err := tail.Tail(path, *lines)
	if err != nil {
		return a.fail(err)
	}
	if err := a.printer().Lines(out); err != nil {
		return a.fail(err)
	}
	if !*follow {
		return exitOK
	}

	err = tail.Follow(ctx, path, func(line string) error {
		_, err := fmt.Fprintln(a.stdout, line)
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return a.fail(err)
	}
	return exitOK
}

func (a *app) config(args []string) int {
	if len(args) != 1 {
		return a.usageErr("config: expected show or validate")
	}
	store := routing.NewStore(a.layout)
	cfg, err := store.LoadConfig()
	if err != nil {
		return a.fail(err)
	}

	switch args[0] {
	case "show":
		return a.yaml(cfg)
	case "validate":
		res := routing.Validate(cfg)
		if err := a.printer().Validation(res); err != nil {
			return a.fail(err)
		}
		if !res.Valid {
			return exitFail
		}
		return exitOK
	default:
		return a.usageErr("config: unknown subcommand %q", args[0])
	}
}

func (a *app) policy(args []string) int {
	if len(args) != 1 || args[0] != "show" {
		return a.usageErr("policy: expected show")
	}
	p, err := routing.NewStore(a.layout).LoadPolicy()
	if err != nil {
		return a.fail(err)
	}
	return a.yaml(p)
}

func (a *app) yaml(doc any) int {
	enc := yaml.NewEncoder(a.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return a.fail(err)
	}
	if err := enc.Close(); err != nil {
		return a.fail(err)
	}
	return exitOK
}

const modelTimeout = 30 * time.Minute

func (a *app) modelsCmd(ctx context.Context, args []string) int {
	if len(args) == 0 {
		return a.usageErr("models: expected list, pull or rm")
	}
	sub, rest := args[0], args[1:]

	// Pulls can be slow; bound them anyway so a wedged runner does not hang acc.
	ctx, cancel := context.WithTimeout(ctx, modelTimeout)
	defer cancel()

	switch sub {
	case "list", "ls":
		models, err := a.models.List(ctx)
		if err != nil {
			return a.fail(err)
		}
		if err := a.printer().Models(models); err != nil {
			return a.fail(err)
		}
		return exitOK
	case "pull", "rm":
		if len(rest) != 1 {
			return a.usageErr("models %s: expected one model name", sub)
		}
		op, verb := a.models.Pull, "pulled"
		if sub == "rm" {
			op, verb = a.models.Remove, "removed"
		}
		if err := op(ctx, rest[0]); err != nil {
			return a.fail(err)
		}
		fmt.Fprintf(a.stdout, "%s %s\n", verb, rest[0])
		return exitOK
	default:
		return a.usageErr("models: unknown subcommand %q", sub)
	}
}
