// Command acc is the terminal client for the AI command center. It probes the
// managed services, tails their logs and edits the routing configuration
// directly, without needing accd.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/aicommandcenter/aicc/cli/internal/render"
	"github.com/aicommandcenter/aicc/pkg/health"
	"github.com/aicommandcenter/aicc/pkg/ollama"
	"github.com/aicommandcenter/aicc/pkg/paths"
	"github.com/aicommandcenter/aicc/pkg/probe"
	"github.com/aicommandcenter/aicc/pkg/types"
)

// Exit codes.
const (
	exitOK    = 0
	exitFail  = 1 // unhealthy service, invalid config or command error
	exitUsage = 2
)

const usage = `usage: acc [--config-dir DIR] <command> [args]

commands:
  health [--json] [--timeout D]     probe all services
  logs <service> [-n N] [-f]        print a service log (router, litellm)
  config show|validate              print or validate config.yaml
  policy show                       print routing/policy.yaml
  models list|pull <name>|rm <name> manage model runner models
`

// HealthSource probes the managed services.
type HealthSource interface {
	GetAll(ctx context.Context) types.AggregateHealth
}

// ModelManager manages the model runner inventory.
type ModelManager interface {
	List(ctx context.Context) ([]ollama.Model, error)
	Pull(ctx context.Context, name string) error
	Remove(ctx context.Context, name string) error
}

type app struct {
	stdout io.Writer
	stderr io.Writer
	color  bool
	layout paths.Layout

	// newHealth builds the health source for the given probe options.
	newHealth func(opts probe.Options) HealthSource
	models    ModelManager
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a := &app{
		stdout: os.Stdout,
		stderr: os.Stderr,
		color:  render.IsTerminal(os.Stdout),
		newHealth: func(opts probe.Options) HealthSource {
			return health.New(probe.DefaultTargets(), opts)
		},
		models: ollama.New(nil),
	}
	os.Exit(a.run(ctx, os.Args[1:]))
}

func (a *app) run(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("acc", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.SetInterspersed(false)
	fs.Usage = func() { fmt.Fprint(a.stderr, usage) }
	configDir := fs.String("config-dir", "", "base directory (default $AICC_CONFIG_DIR or ~/.config/ai-command-center)")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return exitOK
		}
		return exitUsage
	}

	if *configDir != "" {
		a.layout = paths.Layout{Dir: *configDir}
	} else {
		layout, err := paths.Default()
		if err != nil {
			return a.fail(err)
		}
		a.layout = layout
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return exitUsage
	}

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "health":
		return a.health(ctx, cmdArgs)
	case "logs":
		return a.logs(ctx, cmdArgs)
	case "config":
		return a.config(cmdArgs)
	case "policy":
		return a.policy(cmdArgs)
	case "models":
		return a.modelsCmd(ctx, cmdArgs)
	case "help":
		fs.Usage()
		return exitOK
	default:
		fmt.Fprintf(a.stderr, "acc: unknown command %q\n", cmd)
		fs.Usage()
		return exitUsage
	}
}

func (a *app) printer() *render.Printer {
	return render.New(a.stdout, a.color)
}

func (a *app) fail(err error) int {
	fmt.Fprintf(a.stderr, "acc: %v\n", err)
	return exitFail
}

func (a *app) usageErr(format string, args ...any) int {
	fmt.Fprintf(a.stderr, "acc: "+format+"\n", args...)
	fmt.Fprint(a.stderr, usage)
	return exitUsage
}
