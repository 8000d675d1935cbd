package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/goliatone/go-freeze"
)

// Global carries state shared by every command.
type Global struct {
	CLI    *CLI
	Stdout io.Writer
	Stderr io.Writer
}

// CLI is the command line grammar.
type CLI struct {
	Config  string `short:"c" help:"Configuration file path (YAML)." type:"path"`
	EnvFile string `name:"env-file" help:"Dotenv file loaded before FREEZE_* overrides are applied." default:".env"`
	Verbose bool   `short:"v" help:"Enable debug logging."`

	Publish PublishCmd `cmd:"" help:"Render every route into the output directory."`
	Serve   ServeCmd   `cmd:"" help:"Serve the site in live mode."`
	Posts   PostsCmd   `cmd:"" help:"Print the index of a collection."`
}

// PublishCmd implements 'freeze publish'.
type PublishCmd struct {
	Output string `short:"o" help:"Output directory, overrides publish.output_dir."`
	Origin string `help:"Public origin used for canonical URLs, sitemap and feeds."`
	Force  bool   `short:"f" help:"Reload every collection from disk before rendering."`
	DryRun bool   `name:"dry-run" help:"Render without writing files."`
}

// ServeCmd implements 'freeze serve'.
type ServeCmd struct {
	Addr string `short:"a" help:"Listen address, overrides server.addr."`
}

// PostsCmd implements 'freeze posts'.
type PostsCmd struct {
	Collection string `arg:"" optional:"" help:"Collection name." default:"news"`
	Force      bool   `short:"f" help:"Reload the collection before listing."`
	JSON       bool   `name:"json" help:"Print entries as JSON."`
}

// Run publishes the site.
func (c *PublishCmd) Run(g *Global) error {
	module, err := g.module(func(cfg *freeze.Config) {
		if c.Output != "" {
			cfg.Publish.OutputDir = c.Output
		}
		if c.Origin != "" {
			cfg.Site.Origin = c.Origin
		}
	})
	if err != nil {
		return err
	}

	result, err := module.Publish(context.Background(), freeze.PublishOptions{Force: c.Force, DryRun: c.DryRun})
	if result != nil {
		verb := "published"
		if result.DryRun {
			verb = "planned"
		}
		writeLine(g.Stdout, "%s %d pages (%d failed, %d assets) to %s in %s",
			verb,
			result.PagesBuilt,
			result.PagesFailed,
			result.Assets,
			module.Config().Publish.OutputDir,
			result.Duration.Round(time.Millisecond),
		)
	}
	return err
}

// Run serves the site until interrupted.
func (c *ServeCmd) Run(g *Global) error {
	module, err := g.module(nil)
	if err != nil {
		return err
	}
	srv, err := module.Server(c.Addr)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// Run prints the collection index.
func (c *PostsCmd) Run(g *Global) error {
	module, err := g.module(nil)
	if err != nil {
		return err
	}
	entries, err := module.Index(context.Background(), c.Collection, c.Force)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(g.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	tw := tabwriter.NewWriter(g.Stdout, 0, 4, 2, ' ', 0)
	for _, entry := range entries {
		date := entry.DateDisplay
		if date == "" {
			date = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", date, entry.Title, entry.URL)
	}
	return tw.Flush()
}

// module loads the dotenv file and the config, applies flag overrides and
// builds the module.
func (g *Global) module(override func(*freeze.Config)) (*freeze.Module, error) {
	if err := loadEnvFile(g.CLI.EnvFile); err != nil {
		return nil, err
	}
	cfg, err := freeze.LoadConfig(g.CLI.Config)
	if err != nil {
		return nil, err
	}
	if g.CLI.Verbose {
		cfg.Logging.Level = "debug"
	}
	if override != nil {
		override(&cfg)
	}
	return freeze.New(cfg)
}

func loadEnvFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func writeLine(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
}
