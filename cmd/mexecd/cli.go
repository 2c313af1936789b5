package main

import "flag"

// Options holds CLI options for the daemon.
type Options struct {
	ConfigPath string
}

// ParseFlags parses CLI flags from args and returns Options.
func ParseFlags(args []string) Options {
	fs := flag.NewFlagSet("mexecd", flag.ExitOnError)
	var opts Options
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to YAML config file (default: $MEXEC_CONFIG or ./mexecd.yaml)")
	_ = fs.Parse(args)
	return opts
}
