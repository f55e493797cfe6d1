package submit_test

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/gitribute/gitribute/commitmsg"
	"github.com/byte4ever/gitribute/gitribute/git"
	"github.com/byte4ever/gitribute/gitribute/giturl"
	"github.com/byte4ever/gitribute/gitribute/submit"
)

const (
	ghRepo     = "/repos/acme/docs"
	ghContents = ghRepo + "/contents/texts/readme.md"
	ghFileURL  = "https://github.com/acme/docs/blob/main/texts/readme.md"
	original   = "# Readme\n"
	edited     = "# Readme\n\nÉdité ✓\n"
)

// fakeGitHub is a stateful stand-in for the GitHub
// REST API, enough for one contribution.
type fakeGitHub struct {
	mu     sync.Mutex
	refs   map[string]string
	writes []string
	commit map[string]any
	pull   map[string]any
}

func newFakeGitHub() *fakeGitHub {
	return &fakeGitHub{refs: map[string]string{"main": "abc123"}}
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := strings.Replace(r.URL.Path, "/git/refs/", "/git/ref/", 1)

	switch {
	case r.Method == http.MethodGet &&
		strings.HasPrefix(p, ghRepo+"/git/ref/heads/"):
		sha, ok := f.refs[strings.TrimPrefix(p, ghRepo+"/git/ref/heads/")]
		if !ok {
			reply(w, http.StatusNotFound, `{"message":"Not Found"}`)

			return
		}

		reply(w, http.StatusOK, `{"object":{"sha":"`+sha+`"}}`)

	case r.Method == http.MethodPost && p == ghRepo+"/git/refs":
		var body struct {
			Ref string `json:"ref"`
			SHA string `json:"sha"`
		}

		decode(r, &body)
		f.writes = append(f.writes, "branch")
		f.refs[strings.TrimPrefix(body.Ref, "refs/heads/")] = body.SHA
		reply(w, http.StatusCreated, `{"ref":"`+body.Ref+`"}`)

	case r.Method == http.MethodGet && p == ghContents:
		if strings.Contains(r.Header.Get("Accept"), "raw") {
			reply(w, http.StatusOK, original)

			return
		}

		if _, ok := f.refs[r.URL.Query().Get("ref")]; !ok {
			reply(w, http.StatusNotFound, `{"message":"No commit found"}`)

			return
		}

		reply(w, http.StatusOK, `{"type":"file","sha":"blob1"}`)

	case r.Method == http.MethodPut && p == ghContents:
		f.commit = map[string]any{}
		decode(r, &f.commit)
		f.writes = append(f.writes, "commit")
		reply(w, http.StatusOK, `{}`)

	case r.Method == http.MethodGet && p == "/user":
		reply(w, http.StatusOK, `{"login":"octocat"}`)

	case r.Method == http.MethodPost && p == ghRepo+"/pulls":
		f.pull = map[string]any{}
		decode(r, &f.pull)
		f.writes = append(f.writes, "pull")
		reply(
			w, http.StatusCreated,
			`{"html_url":"https://github.com/acme/docs/pull/7"}`,
		)

	default:
		reply(w, http.StatusNotFound, `{"message":"Not Found"}`)
	}
}

func reply(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = io.WriteString(w, body)
}

func decode(r *http.Request, v any) {
	_ = json.NewDecoder(r.Body).Decode(v)
}

func githubConfig(t *testing.T, fake *fakeGitHub) submit.Config {
	t.Helper()

	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)

	return submit.Config{
		URL:        ghFileURL,
		Token:      "tok",
		NewBranch:  "gitribute-0badcafe",
		Content:    edited,
		Message:    "fixed the title",
		Author:     git.Author{Name: "Ada", Surname: "Lovelace", Email: "ada@example.com"},
		HTTPClient: ts.Client(),
		Parser:     &giturl.Parser{GitHubAPI: ts.URL},
	}
}

func TestRun_github(t *testing.T) {
	t.Parallel()

	fake := newFakeGitHub()
	cfg := githubConfig(t, fake)

	res, err := submit.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.True(t, res.BranchCreated)
	assert.Equal(t, "main", res.SourceBranch)
	assert.Equal(t, "gitribute-0badcafe", res.NewBranch)
	assert.Equal(t, "https://github.com/acme/docs/pull/7", res.MergeRequestURL)
	assert.Len(t, res.Requests, 3)

	fake.mu.Lock()
	defer fake.mu.Unlock()

	assert.Equal(t, []string{"branch", "commit", "pull"}, fake.writes)
	assert.Equal(t, "abc123", fake.refs["gitribute-0badcafe"])

	assert.Equal(t, "gitribute-0badcafe", fake.commit["branch"])
	assert.Equal(t, "blob1", fake.commit["sha"])
	assert.Equal(
		t,
		"Update texts/readme.md\n\nfixed the title",
		fake.commit["message"],
	)

	decoded, err := base64.StdEncoding.DecodeString(
		fake.commit["content"].(string),
	)
	require.NoError(t, err)
	assert.Equal(t, edited, string(decoded))

	assert.Equal(t, "gitribute-0badcafe", fake.pull["head"])
	assert.Equal(t, "main", fake.pull["base"])
	assert.Equal(
		t, "Gitribute ... Contribution from : octocat", fake.pull["title"],
	)
}

func TestRun_dry_run(t *testing.T) {
	t.Parallel()

	fake := newFakeGitHub()
	cfg := githubConfig(t, fake)
	cfg.DryRun = true

	res, err := submit.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.False(t, res.BranchCreated)
	assert.Empty(t, res.MergeRequestURL)
	require.Len(t, res.Requests, 3)
	assert.Equal(t, http.MethodPost, res.Requests[0].Method)
	assert.Equal(t, http.MethodPut, res.Requests[1].Method)
	assert.Equal(t, http.MethodPost, res.Requests[2].Method)

	fake.mu.Lock()
	defer fake.mu.Unlock()

	assert.Empty(t, fake.writes)
}

func TestRun_reuses_existing_branch(t *testing.T) {
	t.Parallel()

	fake := newFakeGitHub()
	fake.refs["gitribute-0badcafe"] = "def456"
	cfg := githubConfig(t, fake)

	res, err := submit.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.False(t, res.BranchCreated)
	assert.True(t, res.Requests[0].NewBranchAlreadyExists)

	fake.mu.Lock()
	defer fake.mu.Unlock()

	assert.Equal(t, []string{"commit", "pull"}, fake.writes)
	assert.Equal(t, "def456", fake.refs["gitribute-0badcafe"])
}

func TestRun_missing_source_branch(t *testing.T) {
	t.Parallel()

	fake := newFakeGitHub()
	cfg := githubConfig(t, fake)
	cfg.SourceBranch = "nope"

	res, err := submit.Run(context.Background(), cfg)

	assert.Nil(t, res)
	assert.ErrorContains(t, err, "CreateBranch: status 404")

	fake.mu.Lock()
	defer fake.mu.Unlock()

	assert.Empty(t, fake.writes)
}

func TestRun_unchanged(t *testing.T) {
	t.Parallel()

	orig := edited

	_, err := submit.Run(context.Background(), submit.Config{
		URL:      ghFileURL,
		Content:  edited,
		Original: &orig,
	})

	assert.ErrorIs(t, err, submit.ErrUnchanged)
}

func TestRun_repo_root(t *testing.T) {
	t.Parallel()

	_, err := submit.Run(context.Background(), submit.Config{
		URL:     "https://github.com/acme/docs",
		Content: edited,
	})

	assert.ErrorIs(t, err, git.ErrNoFile)
}

func TestRun_unsupported_host(t *testing.T) {
	t.Parallel()

	_, err := submit.Run(context.Background(), submit.Config{
		URL:     "https://bitbucket.org/acme/docs/src/main/a.md",
		Content: edited,
	})

	assert.ErrorIs(t, err, giturl.ErrUnsupportedHost)
}

func TestRun_generates_branch_name(t *testing.T) {
	t.Parallel()

	fake := newFakeGitHub()
	cfg := githubConfig(t, fake)
	cfg.NewBranch = ""
	cfg.DryRun = true

	res, err := submit.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Regexp(t, `^gitribute-[0-9a-f]{8}$`, res.NewBranch)
}

func TestNewBranchName(t *testing.T) {
	t.Parallel()

	a, b := submit.NewBranchName(), submit.NewBranchName()

	assert.Regexp(t, `^gitribute-[0-9a-f]{8}$`, a)
	assert.NotEqual(t, a, b)
}

func TestFetch_github(t *testing.T) {
	t.Parallel()

	cfg := githubConfig(t, newFakeGitHub())

	got, err := submit.Fetch(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestUser_github(t *testing.T) {
	t.Parallel()

	cfg := githubConfig(t, newFakeGitHub())

	got, err := submit.User(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, "octocat", got)
}

func TestNewProvider_unknown_kind(t *testing.T) {
	t.Parallel()

	pv, err := submit.NewProvider(
		&giturl.Descriptor{Provider: "bitbucket"}, nil, commitmsg.Templates{},
	)

	assert.Nil(t, pv)
	assert.ErrorIs(t, err, giturl.ErrUnsupportedHost)
}

// fakeGitLab is a stateful stand-in for the GitLab
// REST API, enough for one contribution.
type fakeGitLab struct {
	mu       sync.Mutex
	branches map[string]bool
	writes   []string
	query    url.Values
	commit   map[string]any
	merge    map[string]any
}

const glProject = "/api/v4/projects/acme/docs"

func (f *fakeGitLab) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := r.URL.Path

	switch {
	case r.Method == http.MethodGet &&
		strings.HasPrefix(p, glProject+"/repository/branches/"):
		name := strings.TrimPrefix(p, glProject+"/repository/branches/")
		if !f.branches[name] {
			reply(w, http.StatusNotFound, `{"message":"404 Branch Not Found"}`)

			return
		}

		reply(w, http.StatusOK, `{"name":"`+name+`"}`)

	case r.Method == http.MethodPost && p == glProject+"/repository/branches":
		f.query = r.URL.Query()
		f.branches[f.query.Get("branch")] = true
		f.writes = append(f.writes, "branch")
		reply(w, http.StatusCreated, `{}`)

	case r.Method == http.MethodGet &&
		p == glProject+"/repository/files/texts/readme.md/raw":
		reply(w, http.StatusOK, original)

	case r.Method == http.MethodPut &&
		p == glProject+"/repository/files/texts/readme.md":
		f.commit = map[string]any{}
		decode(r, &f.commit)
		f.writes = append(f.writes, "commit")
		reply(w, http.StatusOK, `{}`)

	case r.Method == http.MethodGet && p == "/api/v4/user":
		reply(w, http.StatusOK, `{"id":1,"username":"ada"}`)

	case r.Method == http.MethodPost && p == glProject+"/merge_requests":
		f.merge = map[string]any{}
		decode(r, &f.merge)
		f.writes = append(f.writes, "merge")
		reply(
			w, http.StatusCreated,
			`{"web_url":"https://gitlab.example/acme/docs/-/merge_requests/3"}`,
		)

	default:
		reply(w, http.StatusNotFound, `{"message":"404 Not Found"}`)
	}
}

func gitlabConfig(t *testing.T, fake *fakeGitLab) submit.Config {
	t.Helper()

	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)

	return submit.Config{
		URL:        ts.URL + "/acme/docs/-/blob/main/texts/readme.md",
		Token:      "tok",
		NewBranch:  "gitribute-0badcafe",
		Content:    edited,
		Author:     git.Author{Name: "Ada", Surname: "Lovelace", Email: "ada@example.com"},
		HTTPClient: ts.Client(),
		Parser:     &giturl.Parser{GitLabHosts: []string{u.Host}},
	}
}

func TestRun_gitlab(t *testing.T) {
	t.Parallel()

	fake := &fakeGitLab{branches: map[string]bool{"main": true}}
	cfg := gitlabConfig(t, fake)

	res, err := submit.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.True(t, res.BranchCreated)
	assert.Equal(
		t,
		"https://gitlab.example/acme/docs/-/merge_requests/3",
		res.MergeRequestURL,
	)

	fake.mu.Lock()
	defer fake.mu.Unlock()

	assert.Equal(t, []string{"branch", "commit", "merge"}, fake.writes)
	assert.Equal(t, "gitribute-0badcafe", fake.query.Get("branch"))
	assert.Equal(t, "main", fake.query.Get("ref"))

	assert.Equal(t, edited, fake.commit["content"])
	assert.Equal(t, "gitribute-0badcafe", fake.commit["branch"])
	assert.Equal(t, "Update texts/readme.md", fake.commit["commit_message"])
	assert.Equal(t, "Ada Lovelace", fake.commit["author_name"])

	assert.Equal(t, "gitribute-0badcafe", fake.merge["source_branch"])
	assert.Equal(t, "main", fake.merge["target_branch"])
	assert.Equal(
		t, "Gitribute ... Contribution from : ada", fake.merge["title"],
	)
}

func TestFetch_gitlab(t *testing.T) {
	t.Parallel()

	cfg := gitlabConfig(t, &fakeGitLab{branches: map[string]bool{}})

	got, err := submit.Fetch(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestUser_gitlab(t *testing.T) {
	t.Parallel()

	cfg := gitlabConfig(t, &fakeGitLab{branches: map[string]bool{}})

	got, err := submit.User(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, "ada", got)
}
