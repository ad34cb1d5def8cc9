// Command dali imports stipple resources and renders dali paintings.
//
// Usage:
//
//	dali import [-resource name] [-size 512] [-format png] paths...
//	dali list [-resource name] [-stream name]
//	dali render [-device software|gpu] [-width 900 -height 900] [-out dali.png]
//	dali preview [-frames 60] [-out last.png]
//
// Every subcommand accepts -config file.json for defaults and -v for debug
// logging.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/dali"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("dali: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "import":
		runImport(args)
	case "list":
		runList(args)
	case "render":
		runRender(args)
	case "preview":
		runPreview(args)
	case "help", "-h", "-help", "--help":
		usage()
	default:
		log.Fatalf("unknown command %q (run 'dali help')", cmd)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: dali <command> [flags]

commands:
  import   copy images into a resource, skipping files already stored
  list     list resource entries, or the entries a stream has not seen
  render   render the demo painting offscreen to an image file
  preview  run the preview loop on a surface and save the last frame

run 'dali <command> -h' for the flags of a command`)
}

// parseConfig parses args with the common flags plus those added by
// define, merges the -config file and resolves defaults. It returns the
// positional arguments.
func parseConfig(name string, args []string, define func(fs *flag.FlagSet, f *Config)) (Config, []string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	var (
		flags      Config
		configPath string
	)
	fs.StringVar(&configPath, "config", "", "JSON config file with defaults")
	fs.BoolVar(&flags.Verbose, "v", false, "debug logging")
	define(fs, &flags)
	if err := fs.Parse(args); err != nil {
		log.Fatal(err)
	}

	var cfg Config
	if configPath != "" {
		var err error
		if cfg, err = LoadConfig(configPath); err != nil {
			log.Fatal(err)
		}
	}
	cfg.Override(flags)
	if err := cfg.Resolve(); err != nil {
		log.Fatalf("%s: %v", name, err)
	}
	if cfg.Verbose {
		dali.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	return cfg, fs.Args()
}
