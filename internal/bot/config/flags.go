package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/profilebot/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// Only the flags listed here are parsed; -c and -e belong to earlier
// layers.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:],
		[]string{"-w", "-t", "-db", "-p", "-d", "-dry-run", "-log-json", "-log-level"},
		"-dry-run", "-log-json")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.WorkDir, "w", cfg.WorkDir, "work directory")
	fs.StringVar(&cfg.TemplatesDir, "t", cfg.TemplatesDir, "printer template directory")
	fs.StringVar(&cfg.CatalogPath, "db", cfg.CatalogPath, "catalog store path")
	fs.IntVar(&cfg.MaxPages, "p", cfg.MaxPages, "trending pages to scan")
	delay := fs.Int("d", int(cfg.UploadDelay.Seconds()), "delay between variant uploads (in seconds)")
	fs.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "repackage only, skip uploads")
	fs.BoolVar(&cfg.LogJSON, "log-json", cfg.LogJSON, "log as JSON")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "d" {
			cfg.UploadDelay = time.Duration(*delay) * time.Second
		}
	})
}
