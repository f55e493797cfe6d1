package submit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/byte4ever/gitribute/gitribute/commitmsg"
	"github.com/byte4ever/gitribute/gitribute/digester"
	"github.com/byte4ever/gitribute/gitribute/git"
	"github.com/byte4ever/gitribute/gitribute/giturl"
)

// BranchPrefix starts every generated branch name.
const BranchPrefix = "gitribute-"

// ErrUnchanged is returned by Run when the content
// matches Config.Original.
var ErrUnchanged = errors.New("content is unchanged")

// Config holds all settings for one contribution.
// Use a Config struct instead of many arguments.
type Config struct {
	// URL is the pasted file URL (blob or raw form).
	URL string

	// Token authenticates against the provider API.
	Token string

	// SourceBranch is the branch the merge request
	// targets. Empty means the URL branch.
	SourceBranch string

	// NewBranch is the working branch. Empty means a
	// generated gitribute-<hex> name.
	NewBranch string

	// Content is the edited file content.
	Content string

	// Original is the content the edit started from.
	// When set, an identical Content fails with
	// ErrUnchanged.
	Original *string

	// Message is the author's optional note, added to
	// the commit message.
	Message string

	// Author signs the commit.
	Author git.Author

	// Templates renders the generated texts.
	Templates commitmsg.Templates

	// DryRun builds every request and sends none of
	// the writes.
	DryRun bool

	// HTTPClient carries every call. Nil means
	// http.DefaultClient.
	HTTPClient *http.Client

	// Parser parses URL. Nil means the default parser.
	Parser *giturl.Parser
}

// Result reports what Run did.
type Result struct {
	// Descriptor is the parsed URL.
	Descriptor *giturl.Descriptor `yaml:"descriptor"`

	// SourceBranch is the merge request target.
	SourceBranch string `yaml:"source_branch"`

	// NewBranch is the working branch.
	NewBranch string `yaml:"new_branch"`

	// BranchCreated is false when the working branch
	// already existed or on a dry run.
	BranchCreated bool `yaml:"branch_created"`

	// MergeRequestURL is the web page of the created
	// merge/pull request. Empty on a dry run.
	MergeRequestURL string `yaml:"merge_request_url,omitempty"`

	// Requests lists the built write requests, in
	// order: branch, commit, merge request.
	Requests []*git.Request `yaml:"-"`
}

// Run creates the working branch, commits the content
// on it and opens the merge request.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	const errCtx = "submitting contribution"

	if cfg.Original != nil && !digester.Changed(*cfg.Original, cfg.Content) {
		return nil, fmt.Errorf("%s: %w", errCtx, ErrUnchanged)
	}

	d, pv, err := resolve(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if !d.HasFile() {
		return nil, fmt.Errorf("%s: %w", errCtx, git.ErrNoFile)
	}

	res := &Result{
		Descriptor:   d,
		SourceBranch: cfg.SourceBranch,
		NewBranch:    cfg.NewBranch,
	}

	if res.SourceBranch == "" {
		res.SourceBranch = d.Branch
	}

	if res.NewBranch == "" {
		res.NewBranch = NewBranchName()
	}

	slog.Info(
		"submitting contribution",
		"provider", d.Provider,
		"repo", d.ProjectPath(),
		"file", d.FilePath,
		"family", d.Family(),
		"source", res.SourceBranch,
		"branch", res.NewBranch,
		"dry_run", cfg.DryRun,
	)

	// Step 1: Create the working branch.
	if err := createBranch(ctx, cfg, pv, res); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	// Step 2: Commit the content on it.
	if err := commit(ctx, cfg, pv, res); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	// Step 3: Open the merge request.
	if err := openMergeRequest(ctx, cfg, pv, res); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return res, nil
}

// Fetch returns the current content of the file named
// by cfg.URL on its branch.
func Fetch(ctx context.Context, cfg Config) (string, error) {
	const errCtx = "fetching file"

	d, pv, err := resolve(cfg)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	if !d.HasFile() {
		return "", fmt.Errorf("%s: %w", errCtx, git.ErrNoFile)
	}

	body, err := git.Do(ctx, doer(cfg), pv.FileRequest(cfg.Token))
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return string(body), nil
}

// User returns the login (GitHub) or username
// (GitLab) owning cfg.Token.
func User(ctx context.Context, cfg Config) (string, error) {
	const errCtx = "reading user"

	_, pv, err := resolve(cfg)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	body, err := git.Do(ctx, doer(cfg), pv.UserInfoRequest(cfg.Token))
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	var user struct {
		Login    string `json:"login"`
		Username string `json:"username"`
	}

	if err := json.Unmarshal(body, &user); err != nil {
		return "", fmt.Errorf(
			"%s: decode user: %w", errCtx, err,
		)
	}

	if user.Login != "" {
		return user.Login, nil
	}

	return user.Username, nil
}

// NewBranchName returns a fresh working branch name.
func NewBranchName() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")

	return BranchPrefix + id[:8]
}

func resolve(cfg Config) (*giturl.Descriptor, git.Provider, error) {
	p := cfg.Parser
	if p == nil {
		p = &giturl.Parser{}
	}

	d, err := p.Parse(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse url: %w", err)
	}

	pv, err := NewProvider(d, cfg.HTTPClient, cfg.Templates)
	if err != nil {
		return nil, nil, err
	}

	return d, pv, nil
}

func createBranch(
	ctx context.Context,
	cfg Config,
	pv git.Provider,
	res *Result,
) error {
	const errCtx = "creating branch"

	r, err := pv.CreateBranch(
		ctx, cfg.Token, res.SourceBranch, res.NewBranch,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	res.Requests = append(res.Requests, r)

	if err := r.Err(); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if r.NewBranchAlreadyExists {
		slog.Info(
			"branch already exists, reusing it",
			"branch", res.NewBranch,
		)

		return nil
	}

	if cfg.DryRun {
		slog.Info(
			"dry run: skipping branch creation",
			"branch", res.NewBranch,
		)

		return nil
	}

	if _, err := git.Do(ctx, doer(cfg), r); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	res.BranchCreated = true

	return nil
}

func commit(
	ctx context.Context,
	cfg Config,
	pv git.Provider,
	res *Result,
) error {
	const errCtx = "committing content"

	msg := cfg.Templates.CommitMessage(commitmsg.Vars{
		Source:  res.NewBranch,
		Target:  res.SourceBranch,
		File:    res.Descriptor.FilePath,
		Author:  cfg.Author.FullName(),
		Message: cfg.Message,
	})

	r, err := pv.CommitRequest(
		ctx, cfg.Token, res.NewBranch, cfg.Content, msg, cfg.Author,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	res.Requests = append(res.Requests, r)

	if cfg.DryRun {
		// The working branch does not exist yet, so the
		// reads it needs may have failed.
		slog.Info(
			"dry run: skipping commit",
			"branch", res.NewBranch,
			"read_errors", len(r.Errors),
		)

		return nil
	}

	if err := r.Err(); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if _, err := git.Do(ctx, doer(cfg), r); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

func openMergeRequest(
	ctx context.Context,
	cfg Config,
	pv git.Provider,
	res *Result,
) error {
	const errCtx = "opening merge request"

	r, err := pv.CreateMergeRequest(
		ctx, cfg.Token, res.SourceBranch, res.NewBranch,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	res.Requests = append(res.Requests, r)

	if err := r.Err(); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if cfg.DryRun {
		slog.Info(
			"dry run: skipping merge request",
			"source", res.NewBranch,
			"target", res.SourceBranch,
		)

		return nil
	}

	body, err := git.Do(ctx, doer(cfg), r)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	var created struct {
		HTMLURL string `json:"html_url"`
		WebURL  string `json:"web_url"`
	}

	if err := json.Unmarshal(body, &created); err != nil {
		return fmt.Errorf(
			"%s: decode response: %w", errCtx, err,
		)
	}

	res.MergeRequestURL = created.HTMLURL
	if res.MergeRequestURL == "" {
		res.MergeRequestURL = created.WebURL
	}

	slog.Info(
		"merge request opened",
		"url", res.MergeRequestURL,
	)

	return nil
}

// doer avoids handing Do a typed nil client.
func doer(cfg Config) git.Doer {
	if cfg.HTTPClient == nil {
		return nil
	}

	return cfg.HTTPClient
}
