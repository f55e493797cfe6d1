// Command gitribute edits one file stored in a GitHub or GitLab repository
// and submits the change as a new branch plus a merge/pull request.
package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/byte4ever/gitribute/gitribute/config"
	"github.com/byte4ever/gitribute/gitribute/submit"
)

const httpTimeout = 30 * time.Second

// Global carries the state shared by every command.
type Global struct {
	Ctx context.Context //nolint:containedctx // kong binding
	Out io.Writer
	// HTTPClient carries every provider call.
	HTTPClient *http.Client
}

// CLI is the command line model.
type CLI struct {
	Config     string   `short:"c" help:"Configuration file path" default:"gitribute.yaml" type:"path"`
	Token      string   `short:"t" help:"Provider API token" env:"GITRIBUTE_TOKEN"`
	Verbose    bool     `short:"v" help:"Enable verbose logging"`
	DryRun     bool     `name:"dry-run" help:"Build requests without sending any write"`
	GitLabHost []string `name:"gitlab-host" help:"Self-managed GitLab host (repeatable)"`

	Parse  ParseCmd  `cmd:"" help:"Print what a file URL points at"`
	User   UserCmd   `cmd:"" help:"Print the user owning the token"`
	Fetch  FetchCmd  `cmd:"" help:"Print the current content of a file"`
	Submit SubmitCmd `cmd:"" help:"Submit new content for a file"`
	Edit   EditCmd   `cmd:"" help:"Edit a file in $EDITOR and submit the change"`
	Init   InitCmd   `cmd:"" help:"Write a default configuration file"`
}

// AfterApply runs after flag parsing; sets up logging
// once.
//
//nolint:unparam // kong hook signature
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(
		os.Stderr, &slog.HandlerOptions{Level: level},
	)))

	return nil
}

// submitConfig merges the configuration file and the
// global flags into a submit.Config for url.
func (c *CLI) submitConfig(g *Global, url string) (submit.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return submit.Config{}, err //nolint:wrapcheck // carries context
	}

	cfg.GitLabHosts = append(cfg.GitLabHosts, c.GitLabHost...)

	parser, err := cfg.Parser()
	if err != nil {
		return submit.Config{}, err //nolint:wrapcheck // carries context
	}

	return submit.Config{
		URL:        url,
		Token:      c.Token,
		Author:     cfg.Author,
		Templates:  cfg.Templates,
		DryRun:     c.DryRun,
		HTTPClient: g.HTTPClient,
		Parser:     parser,
	}, nil
}

func newKong(cli *CLI, g *Global, opts ...kong.Option) (*kong.Kong, error) {
	return kong.New( //nolint:wrapcheck // kong errors are user facing
		cli,
		append([]kong.Option{
			kong.Name("gitribute"),
			kong.Description(
				"Edit a file of a GitHub or GitLab repository and "+
					"submit it as a merge request.",
			),
			kong.UsageOnError(),
			kong.Bind(g, cli),
		}, opts...)...,
	)
}

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	var cli CLI

	parser, err := newKong(&cli, &Global{
		Ctx:        ctx,
		Out:        os.Stdout,
		HTTPClient: &http.Client{Timeout: httpTimeout},
	})
	if err != nil {
		return err
	}

	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	return kctx.Run() //nolint:wrapcheck // command errors carry context
}
