// Command cronflow runs shell commands on cron, interval and one-shot
// schedules, and inspects cron expressions.
//
// Usage:
//
//	cronflow next [-n 5] [-from 2024-01-01T00:00:00Z] [-tz UTC] [-compare] "30 9 * * mon-fri"
//	cronflow run [-config cronflow.yaml]
//	cronflow init [-config cronflow.yaml] [-force]
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

const usage = `usage: cronflow <command> [flags]

commands:
  next   print the next occurrences of a cron expression
  run    run the jobs of a configuration file until interrupted
  init   write a sample configuration file
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "cronflow:", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("no command given")
	}

	switch args[0] {
	case "next":
		return cmdNext(args[1:], stdout, stderr)
	case "run":
		return cmdRun(ctx, args[1:], stdout, stderr)
	case "init":
		return cmdInit(args[1:], stdout, stderr)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}
