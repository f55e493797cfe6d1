package gitlab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/go-querystring/query"
	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/byte4ever/gitribute/gitribute/commitmsg"
	"github.com/byte4ever/gitribute/gitribute/git"
	"github.com/byte4ever/gitribute/gitribute/giturl"
)

// Config holds the settings needed to build GitLab
// requests for one file.
type Config struct {
	// Descriptor is the parsed file URL. Its provider
	// must be giturl.GitLab.
	Descriptor *giturl.Descriptor
	// HTTPClient carries the preliminary reads. Nil
	// means the library defaults.
	HTTPClient *http.Client
	// Templates renders merge request texts.
	Templates commitmsg.Templates
}

// Provider builds GitLab request descriptors.
//
// Pattern: Strategy -- implements git.Provider.
type Provider struct {
	desc       *giturl.Descriptor
	httpClient *http.Client
	templates  commitmsg.Templates
}

var _ git.Provider = (*Provider)(nil)

// NewProvider validates cfg and returns a Provider.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating gitlab provider"

	d := cfg.Descriptor
	if d == nil {
		return nil, fmt.Errorf(
			"%s: descriptor must be set", errCtx,
		)
	}

	if d.Provider != giturl.GitLab {
		return nil, fmt.Errorf(
			"%s: descriptor provider is %q",
			errCtx, d.Provider,
		)
	}

	if d.Org == "" || d.Repo == "" {
		return nil, fmt.Errorf(
			"%s: repo must be set", errCtx,
		)
	}

	return &Provider{
		desc:       d,
		httpClient: cfg.HTTPClient,
		templates:  cfg.Templates,
	}, nil
}

// UserInfoRequest describes GET /user.
func (p *Provider) UserInfoRequest(token string) *git.Request {
	r := newRequest(http.MethodGet, p.desc.API+"/user", token)
	r.Header.Set("Content-Type", "application/json")

	return r
}

// FileRequest describes a raw read of the file on the
// descriptor branch.
func (p *Provider) FileRequest(token string) *git.Request {
	return newRequest(http.MethodGet, p.desc.APIFileRaw, token)
}

// CreateBranch checks the source branch (recording an
// error when it cannot be read) and the new branch
// (flagging it when it already exists), then describes
// POST /repository/branches. The branch reads go
// through git.Do so the GitLab error body survives;
// client-go drops it for 404 responses.
func (p *Provider) CreateBranch(
	ctx context.Context,
	token string,
	source string,
	newBranch string,
) (*git.Request, error) {
	const (
		errCtx   = "building gitlab branch request"
		function = "CreateBranch"
	)

	opts := gl.CreateBranchOptions{
		Branch: gl.Ptr(newBranch),
		Ref:    gl.Ptr(source),
	}

	qs, err := query.Values(opts)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: encode query: %w", errCtx, err,
		)
	}

	r := newRequest(
		http.MethodPost,
		p.desc.APIRepo+"/repository/branches?"+qs.Encode(),
		token,
	)

	slog.Debug(
		"reading source branch",
		"provider", giturl.GitLab,
		"branch", source,
	)

	if _, err := p.readBranch(ctx, token, source); err != nil {
		var se *git.StatusError
		if !errors.As(err, &se) {
			return nil, fmt.Errorf(
				"%s: read %s: %w", errCtx, source, err,
			)
		}

		r.AddError(function, se.Code, se.Message)
	}

	_, err = p.readBranch(ctx, token, newBranch)

	var se *git.StatusError

	switch {
	case err == nil:
		r.NewBranchAlreadyExists = true
	case errors.As(err, &se):
		if se.Code != http.StatusNotFound {
			slog.Debug(
				"cannot check new branch",
				"branch", newBranch,
				"status", se.Code,
			)
		}
	default:
		return nil, fmt.Errorf(
			"%s: read %s: %w", errCtx, newBranch, err,
		)
	}

	return r, nil
}

// readBranch issues GET /repository/branches/:branch
// once.
func (p *Provider) readBranch(
	ctx context.Context,
	token string,
	branch string,
) ([]byte, error) {
	var doer git.Doer
	if p.httpClient != nil {
		doer = p.httpClient
	}

	return git.Do( //nolint:wrapcheck // carries context
		ctx,
		doer,
		newRequest(
			http.MethodGet,
			p.desc.APIRepo+"/repository/branches/"+
				url.PathEscape(branch),
			token,
		),
	)
}

// CreateMergeRequest resolves the token owner's
// username and describes POST /merge_requests.
func (p *Provider) CreateMergeRequest(
	ctx context.Context,
	token string,
	target string,
	newBranch string,
) (*git.Request, error) {
	const (
		errCtx   = "building gitlab merge request"
		function = "CreateMergeRequest"
	)

	client, err := p.client(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	r := newRequest(
		http.MethodPost, p.desc.APIRepo+"/merge_requests", token,
	)
	r.Header.Set("Content-Type", "application/json")

	var username string

	user, resp, err := client.Users.CurrentUser(gl.WithContext(ctx))
	if err != nil {
		if err := record(r, function, resp, err); err != nil {
			return nil, fmt.Errorf(
				"%s: read user: %w", errCtx, err,
			)
		}
	} else {
		username = user.Username
	}

	title, body := p.templates.MergeRequest(commitmsg.Vars{
		User:   username,
		Source: newBranch,
		Target: target,
		File:   p.desc.FilePath,
	})

	r.Body = &gl.CreateMergeRequestOptions{
		Title:        gl.Ptr(title),
		Description:  gl.Ptr(body),
		SourceBranch: gl.Ptr(newBranch),
		TargetBranch: gl.Ptr(target),
	}

	return r, nil
}

// CommitRequest describes PUT /repository/files with
// the plain-text content. GitLab needs no prior read.
func (p *Provider) CommitRequest(
	_ context.Context,
	token string,
	branch string,
	content string,
	message string,
	author git.Author,
) (*git.Request, error) {
	const errCtx = "building gitlab commit request"

	if !p.desc.HasFile() {
		return nil, fmt.Errorf("%s: %w", errCtx, git.ErrNoFile)
	}

	r := newRequest(http.MethodPut, p.desc.APIFileBase, token)

	opts := &gl.UpdateFileOptions{
		Branch:        gl.Ptr(branch),
		Content:       gl.Ptr(content),
		CommitMessage: gl.Ptr(message),
	}

	if author.Email != "" {
		opts.AuthorEmail = gl.Ptr(author.Email)
	}

	if name := author.FullName(); name != "" {
		opts.AuthorName = gl.Ptr(name)
	}

	r.Body = opts

	return r, nil
}

// client returns a client-go client that sends every
// request once.
func (p *Provider) client(token string) (*gl.Client, error) {
	opts := []gl.ClientOptionFunc{
		gl.WithBaseURL(p.desc.API),
		gl.WithCustomRetryMax(0),
		gl.WithoutRetries(),
	}
	if p.httpClient != nil {
		opts = append(opts, gl.WithHTTPClient(p.httpClient))
	}

	client, err := gl.NewClient(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("new client: %w", err)
	}

	return client, nil
}

// record turns an HTTP failure into an entry of
// r.Errors. Failures without a response are returned.
func record(
	r *git.Request,
	function string,
	resp *gl.Response,
	err error,
) error {
	if resp == nil || resp.Response == nil {
		return err
	}

	msg := err.Error()

	// client-go reformats messages; decode the raw body.
	var er *gl.ErrorResponse
	if errors.As(err, &er) && len(er.Body) > 0 {
		msg = git.MessageOf(er.Body)
	}

	r.AddError(function, resp.StatusCode, msg)

	return nil
}

func newRequest(method string, u string, token string) *git.Request {
	r := git.NewRequest(method, u)

	if token != "" {
		r.Header.Set("PRIVATE-TOKEN", token)
	}

	if method == http.MethodPut {
		r.Header.Set("Content-Type", "application/json")
	}

	return r
}
