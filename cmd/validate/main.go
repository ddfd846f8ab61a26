// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// validate is a CLI tool to validate event bus YAML configuration files.
//
// Usage:
//
//	validate -f eventbus.yaml
//	validate --file eventbus.yaml
//
// Exit codes:
//   - 0: Configuration is valid
//   - 1: Configuration is invalid (parse or validation error)
//   - 2: Usage error (missing required flag)
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ManuGH/eventbus/internal/config"
	"github.com/ManuGH/eventbus/internal/validate"
	"github.com/ManuGH/eventbus/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file string
	var showVersion bool
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if showVersion {
		fmt.Fprintln(stdout, version.String())
		return 0
	}

	if file == "" {
		fmt.Fprintln(stderr, "Error: --file is required")
		fmt.Fprintln(stderr, "")
		fmt.Fprintln(stderr, "Usage:")
		fmt.Fprintln(stderr, "  validate -f eventbus.yaml")
		fmt.Fprintln(stderr, "  validate --file eventbus.yaml")
		return 2
	}

	// Load applies strict YAML parsing, env overrides and validation
	cfg, err := config.NewLoader(file).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n", file)
		if verr, ok := asValidationError(err); ok {
			for _, e := range verr.Errors() {
				fmt.Fprintf(stderr, "  - %s: %s\n", e.Field, e.Message)
			}
		} else {
			fmt.Fprintf(stderr, "  %v\n", err)
		}
		return 1
	}

	fmt.Fprintf(stdout, "✓ %s is valid (type_matching=%s)\n", file, cfg.Bus.TypeMatching)
	return 0
}

func asValidationError(err error) (validate.ValidationError, bool) {
	var verr validate.ValidationError
	ok := errors.As(err, &verr)
	return verr, ok
}
