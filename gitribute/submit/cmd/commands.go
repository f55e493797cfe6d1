package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/byte4ever/gitribute/gitribute/config"
	"github.com/byte4ever/gitribute/gitribute/digester"
	"github.com/byte4ever/gitribute/gitribute/exec"
	"github.com/byte4ever/gitribute/gitribute/submit"
)

// ParseCmd implements the 'parse' command.
type ParseCmd struct {
	URL string `arg:"" help:"File URL (blob or raw)"`
}

// Run prints the descriptor as YAML.
func (c *ParseCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err //nolint:wrapcheck // carries context
	}

	cfg.GitLabHosts = append(cfg.GitLabHosts, root.GitLabHost...)

	parser, err := cfg.Parser()
	if err != nil {
		return err //nolint:wrapcheck // carries context
	}

	d, err := parser.Parse(c.URL)
	if err != nil {
		return err //nolint:wrapcheck // carries context
	}

	out, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("printing descriptor: %w", err)
	}

	_, err = g.Out.Write(out)

	return err //nolint:wrapcheck // plain write
}

// UserCmd implements the 'user' command.
type UserCmd struct {
	URL string `arg:"" help:"Any file URL on the provider"`
}

// Run prints the login owning the token.
func (c *UserCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.submitConfig(g, c.URL)
	if err != nil {
		return err
	}

	user, err := submit.User(g.Ctx, cfg)
	if err != nil {
		return err //nolint:wrapcheck // carries context
	}

	_, err = fmt.Fprintln(g.Out, user)

	return err //nolint:wrapcheck // plain write
}

// FetchCmd implements the 'fetch' command.
type FetchCmd struct {
	URL    string `arg:"" help:"File URL (blob or raw)"`
	Output string `short:"o" help:"Write the content to this file instead of stdout" type:"path"`
}

// Run prints or saves the current file content.
func (c *FetchCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.submitConfig(g, c.URL)
	if err != nil {
		return err
	}

	content, err := submit.Fetch(g.Ctx, cfg)
	if err != nil {
		return err //nolint:wrapcheck // carries context
	}

	if c.Output != "" {
		if err := os.WriteFile(c.Output, []byte(content), 0o600); err != nil {
			return fmt.Errorf("saving content: %w", err)
		}

		return nil
	}

	_, err = fmt.Fprint(g.Out, content)

	return err //nolint:wrapcheck // plain write
}

// SubmitCmd implements the 'submit' command.
type SubmitCmd struct {
	URL     string `arg:"" help:"File URL (blob or raw)"`
	File    string `short:"f" required:"" help:"File holding the new content" type:"existingfile"`
	Message string `short:"m" help:"Note added to the commit message"`
	Branch  string `short:"b" help:"Working branch (default: generated)"`
	Source  string `short:"s" help:"Branch to merge into (default: the URL branch)"`
}

// Run submits the content of c.File.
func (c *SubmitCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.submitConfig(g, c.URL)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("reading content: %w", err)
	}

	cfg.Content = string(content)
	cfg.Message = c.Message
	cfg.NewBranch = c.Branch
	cfg.SourceBranch = c.Source

	return report(g, cfg)
}

// EditCmd implements the 'edit' command.
type EditCmd struct {
	URL     string `arg:"" help:"File URL (blob or raw)"`
	Message string `short:"m" help:"Note added to the commit message"`
	Keep    bool   `help:"Keep the working copy after submitting"`
}

// Run fetches the file into a working copy, opens it
// in the editor and submits it when it changed.
func (c *EditCmd) Run(g *Global, root *CLI) error {
	const errCtx = "editing file"

	cfg, err := root.submitConfig(g, c.URL)
	if err != nil {
		return err
	}

	d, err := cfg.Parser.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if !d.HasFile() {
		return fmt.Errorf("%s: %s names no file", errCtx, c.URL)
	}

	original, err := submit.Fetch(g.Ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	dir, err := os.MkdirTemp("", "gitribute-")
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if !c.Keep {
		defer os.RemoveAll(dir) //nolint:errcheck
	}

	wc := filepath.Join(dir, d.File.FullName)

	if err := os.WriteFile(wc, []byte(original), 0o600); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := digester.Save(wc); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := exec.Edit(g.Ctx, wc); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	modified, err := digester.Modified(wc)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	// A kept working copy goes without its .digest.
	if c.Keep {
		if err := digester.Remove(wc); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	if !modified {
		_, err = fmt.Fprintln(g.Out, "no change, nothing submitted")

		return err //nolint:wrapcheck // plain write
	}

	edited, err := os.ReadFile(wc) //nolint:gosec // our working copy
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	cfg.Content = string(edited)
	cfg.Original = &original
	cfg.Message = c.Message

	return report(g, cfg)
}

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite an existing configuration file"`
}

// Run writes the default configuration.
func (c *InitCmd) Run(g *Global, root *CLI) error {
	if err := config.Default().Write(root.Config, c.Force); err != nil {
		return err //nolint:wrapcheck // carries context
	}

	_, err := fmt.Fprintf(g.Out, "configuration written to %s\n", root.Config)

	return err //nolint:wrapcheck // plain write
}

// report runs the submission and prints its result.
func report(g *Global, cfg submit.Config) error {
	res, err := submit.Run(g.Ctx, cfg)
	if errors.Is(err, submit.ErrUnchanged) {
		_, err = fmt.Fprintln(g.Out, "no change, nothing submitted")

		return err //nolint:wrapcheck // plain write
	}

	if err != nil {
		return err //nolint:wrapcheck // carries context
	}

	out, err := yaml.Marshal(res)
	if err != nil {
		return fmt.Errorf("printing result: %w", err)
	}

	_, err = g.Out.Write(out)

	return err //nolint:wrapcheck // plain write
}
