package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/vnykmshr/cronflow/internal/config"
)

func cmdInit(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("config", config.DefaultConfigPath, "where to write the configuration")
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := os.Stat(*path); err == nil && !*force {
		return fmt.Errorf("%s already exists, use -force to overwrite", *path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := config.Save(*path, config.Sample()); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s\n", *path)
	return nil
}
