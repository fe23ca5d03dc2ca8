// Command jobsctl triggers and inspects background jobs by hand.
//
//	jobsctl stats
//	jobsctl trigger rebuild [quiz_id]
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/campusquiz/campusquiz/internal/app"
	"github.com/campusquiz/campusquiz/internal/platform/cache"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	opts := cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}.QueueOpts()
	client := asynq.NewClient(opts)
	inspector := asynq.NewInspector(opts)
	defer func() {
		_ = client.Close()
		_ = inspector.Close()
	}()

	code := run(context.Background(), &JobsCLI{client: client, inspector: inspector}, os.Args[1:], os.Stdout, os.Stderr)
	if code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, cli *JobsCLI, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: jobsctl stats | trigger <job> [args]")
		return 2
	}
	switch args[0] {
	case "stats":
		stats, err := cli.InspectQueue()
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintf(stdout, "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return 0
	case "trigger":
		if len(args) < 2 {
			fmt.Fprintln(stderr, "usage: jobsctl trigger <job> [args]")
			return 2
		}
		info, err := cli.Trigger(ctx, args[1], args[2:])
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintf(stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		return 2
	}
}
