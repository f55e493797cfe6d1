package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	gh "github.com/google/go-github/v68/github"

	"github.com/byte4ever/gitribute/gitribute/commitmsg"
	"github.com/byte4ever/gitribute/gitribute/git"
	"github.com/byte4ever/gitribute/gitribute/giturl"
)

const (
	acceptJSON = "application/vnd.github.v3+json"
	acceptRaw  = "application/vnd.github.raw+json"
)

// Config holds the settings needed to build GitHub
// requests for one file.
type Config struct {
	// Descriptor is the parsed file URL. Its provider
	// must be giturl.GitHub.
	Descriptor *giturl.Descriptor
	// HTTPClient carries the preliminary reads. Nil
	// means a default client.
	HTTPClient *http.Client
	// Templates renders pull request texts.
	Templates commitmsg.Templates
}

// Provider builds GitHub request descriptors.
//
// Pattern: Strategy -- implements git.Provider.
type Provider struct {
	desc       *giturl.Descriptor
	httpClient *http.Client
	baseURL    *url.URL
	templates  commitmsg.Templates
}

var _ git.Provider = (*Provider)(nil)

// NewProvider validates cfg and returns a Provider.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating github provider"

	d := cfg.Descriptor
	if d == nil {
		return nil, fmt.Errorf(
			"%s: descriptor must be set", errCtx,
		)
	}

	if d.Provider != giturl.GitHub {
		return nil, fmt.Errorf(
			"%s: descriptor provider is %q",
			errCtx, d.Provider,
		)
	}

	if d.Org == "" || d.Repo == "" {
		return nil, fmt.Errorf(
			"%s: repo owner and repo must be set", errCtx,
		)
	}

	baseURL, err := url.Parse(d.API + "/")
	if err != nil {
		return nil, fmt.Errorf(
			"%s: api url: %w", errCtx, err,
		)
	}

	return &Provider{
		desc:       d,
		httpClient: cfg.HTTPClient,
		baseURL:    baseURL,
		templates:  cfg.Templates,
	}, nil
}

// UserInfoRequest describes GET /user.
func (p *Provider) UserInfoRequest(token string) *git.Request {
	return newRequest(http.MethodGet, p.desc.API+"/user", token)
}

// FileRequest describes a raw read of the file on the
// descriptor branch.
func (p *Provider) FileRequest(token string) *git.Request {
	r := newRequest(http.MethodGet, p.desc.APIFile, token)
	r.Header.Set("Accept", acceptRaw)

	return r
}

// CreateBranch reads the source branch head and
// describes POST /git/refs creating newBranch at that
// revision.
func (p *Provider) CreateBranch(
	ctx context.Context,
	token string,
	source string,
	newBranch string,
) (*git.Request, error) {
	const (
		errCtx   = "building github branch request"
		function = "CreateBranch"
	)

	client := p.client(token)

	r := newRequest(
		http.MethodPost, p.desc.APIRepo+"/git/refs", token,
	)

	slog.Debug(
		"reading source branch",
		"provider", giturl.GitHub,
		"branch", source,
	)

	var sha string

	ref, resp, err := client.Git.GetRef(
		ctx, p.desc.Org, p.desc.Repo, "refs/heads/"+source,
	)
	if err != nil {
		if err := record(r, function, resp, err); err != nil {
			return nil, fmt.Errorf(
				"%s: read %s: %w", errCtx, source, err,
			)
		}
	} else {
		sha = ref.GetObject().GetSHA()
	}

	exists, err := p.branchExists(ctx, client, newBranch)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: read %s: %w", errCtx, newBranch, err,
		)
	}

	r.NewBranchAlreadyExists = exists
	r.Body = createRef{
		Ref: "refs/heads/" + newBranch,
		SHA: sha,
	}

	return r, nil
}

// CreateMergeRequest resolves the token owner's login
// and describes POST /pulls.
func (p *Provider) CreateMergeRequest(
	ctx context.Context,
	token string,
	target string,
	newBranch string,
) (*git.Request, error) {
	const (
		errCtx   = "building github pull request"
		function = "CreateMergeRequest"
	)

	r := newRequest(
		http.MethodPost, p.desc.APIRepo+"/pulls", token,
	)

	var login string

	user, resp, err := p.client(token).Users.Get(ctx, "")
	if err != nil {
		if err := record(r, function, resp, err); err != nil {
			return nil, fmt.Errorf(
				"%s: read user: %w", errCtx, err,
			)
		}
	} else {
		login = user.GetLogin()
	}

	title, body := p.templates.MergeRequest(commitmsg.Vars{
		User:   login,
		Source: newBranch,
		Target: target,
		File:   p.desc.FilePath,
	})

	r.Body = &gh.NewPullRequest{
		Title: gh.Ptr(title),
		Body:  gh.Ptr(body),
		Head:  gh.Ptr(newBranch),
		Base:  gh.Ptr(target),
	}

	return r, nil
}

// CommitRequest reads the current blob SHA of the
// file on branch and describes PUT /contents with the
// new content. GitHub rejects the write without the
// prior SHA; the content is base64 encoded through the
// []byte JSON encoding of RepositoryContentFileOptions.
// The committer name is author.FullName(), name and
// surname joined, as on GitLab.
func (p *Provider) CommitRequest(
	ctx context.Context,
	token string,
	branch string,
	content string,
	message string,
	author git.Author,
) (*git.Request, error) {
	const (
		errCtx   = "building github commit request"
		function = "CommitRequest"
	)

	if !p.desc.HasFile() {
		return nil, fmt.Errorf("%s: %w", errCtx, git.ErrNoFile)
	}

	r := newRequest(http.MethodPut, p.desc.APIFileBase, token)

	var sha string

	file, _, resp, err := p.client(token).Repositories.GetContents(
		ctx,
		p.desc.Org,
		p.desc.Repo,
		p.desc.FilePath,
		&gh.RepositoryContentGetOptions{Ref: branch},
	)

	switch {
	case err != nil:
		if err := record(r, function, resp, err); err != nil {
			return nil, fmt.Errorf(
				"%s: read %s: %w",
				errCtx, p.desc.FilePath, err,
			)
		}
	case file == nil:
		r.AddError(
			function, resp.StatusCode,
			p.desc.FilePath+" is a directory",
		)
	default:
		sha = file.GetSHA()
	}

	opts := &gh.RepositoryContentFileOptions{
		Message: gh.Ptr(message),
		Content: []byte(content),
		Branch:  gh.Ptr(branch),
	}

	if sha != "" {
		opts.SHA = gh.Ptr(sha)
	}

	if name := author.FullName(); name != "" || author.Email != "" {
		opts.Committer = &gh.CommitAuthor{
			Name:  gh.Ptr(name),
			Email: gh.Ptr(author.Email),
		}
	}

	r.Body = opts

	return r, nil
}

// createRef is the body of POST /git/refs.
type createRef struct {
	Ref string `json:"ref"`
	SHA string `json:"sha,omitempty"`
}

func (p *Provider) client(token string) *gh.Client {
	client := gh.NewClient(p.httpClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	client.BaseURL = p.baseURL

	return client
}

// branchExists reads heads/branch. A 404 means the
// branch is free; other HTTP failures are logged and
// treated the same way.
func (p *Provider) branchExists(
	ctx context.Context,
	client *gh.Client,
	branch string,
) (bool, error) {
	_, resp, err := client.Git.GetRef(
		ctx, p.desc.Org, p.desc.Repo, "refs/heads/"+branch,
	)
	if err == nil {
		return true, nil
	}

	if resp == nil || resp.Response == nil {
		return false, err
	}

	if resp.StatusCode != http.StatusNotFound {
		slog.Debug(
			"cannot check new branch",
			"branch", branch,
			"status", resp.StatusCode,
		)
	}

	return false, nil
}

// record turns an HTTP failure into an entry of
// r.Errors. Failures without a response are returned.
func record(
	r *git.Request,
	function string,
	resp *gh.Response,
	err error,
) error {
	if resp == nil || resp.Response == nil {
		return err
	}

	msg := err.Error()

	var er *gh.ErrorResponse
	if errors.As(err, &er) {
		msg = er.Message
	}

	r.AddError(function, resp.StatusCode, msg)

	return nil
}

func newRequest(method string, u string, token string) *git.Request {
	r := git.NewRequest(method, u)
	r.Header.Set("Accept", acceptJSON)

	if token != "" {
		r.Header.Set("Authorization", "Token "+token)
	}

	if method != http.MethodGet {
		r.Header.Set("Content-Type", "application/json")
	}

	return r
}
