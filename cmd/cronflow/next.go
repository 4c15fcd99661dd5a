package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vnykmshr/cronflow/pkg/cronexpr"
)

func cmdNext(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("next", flag.ContinueOnError)
	fs.SetOutput(stderr)
	n := fs.Int("n", 5, "number of occurrences to print")
	from := fs.String("from", "", "start instant, RFC 3339 (default now)")
	tz := fs.String("tz", "Local", "time zone the expression is evaluated in")
	compare := fs.Bool("compare", false, "print robfig/cron's answer beside each occurrence")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("next: missing cron expression")
	}
	text := strings.Join(fs.Args(), " ")

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		return fmt.Errorf("next: %w", err)
	}
	start := time.Now().In(loc)
	if *from != "" {
		if start, err = time.Parse(time.RFC3339, *from); err != nil {
			return fmt.Errorf("next: -from: %w", err)
		}
		start = start.In(loc)
	}

	expr, err := cronexpr.Parse(text)
	if err != nil {
		return err
	}
	times, err := expr.NextN(start, *n)
	if err != nil && len(times) == 0 {
		return err
	}

	fmt.Fprintf(stdout, "%s\t%s\n", expr, expr.Text())

	var oracle cron.Schedule
	if *compare {
		if oracle, err = cron.ParseStandard(text); err != nil {
			fmt.Fprintf(stdout, "robfig/cron rejects %q: %v\n", text, err)
		}
	}

	prev := start
	for _, t := range times {
		line := t.Format(time.RFC3339)
		if oracle != nil {
			want := oracle.Next(prev)
			line += "\t" + want.Format(time.RFC3339)
			if !want.Equal(t) {
				line += "\tMISMATCH"
			}
		}
		fmt.Fprintln(stdout, line)
		prev = t
	}
	if len(times) < *n {
		fmt.Fprintln(stdout, "no further occurrences")
	}
	return nil
}
