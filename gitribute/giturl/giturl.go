package giturl

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Kind names a git hosting provider.
type Kind string

// Supported providers.
const (
	GitHub Kind = "github"
	GitLab Kind = "gitlab"
)

const (
	// DefaultBranch is used when the URL names no
	// branch.
	DefaultBranch = "master"

	// DefaultGitHubAPI is the public GitHub REST root.
	DefaultGitHubAPI = "https://api.github.com"

	githubHost    = "github.com"
	githubRawHost = "raw.githubusercontent.com"
	gitlabHost    = "gitlab.com"
	gitlabAPIPath = "/api/v4"
)

var (
	// ErrUnsupportedHost is returned for hosts that are
	// neither GitHub nor a configured GitLab instance.
	ErrUnsupportedHost = errors.New("unsupported git host")

	// ErrMalformedURL is returned when the URL cannot
	// name an organisation and a repository.
	ErrMalformedURL = errors.New("malformed repository url")
)

// File is the identity of the file a URL points at.
type File struct {
	FullName string `json:"fullName" yaml:"full_name"`
	Name     string `json:"name"     yaml:"name"`
	Type     string `json:"type"     yaml:"type"`
	Family   Family `json:"family"   yaml:"family"`
}

// Descriptor is the structured identity of a pasted
// repository or file URL.
type Descriptor struct {
	// ID is the URL as pasted.
	ID       string `json:"id"       yaml:"id"`
	Provider Kind   `json:"provider" yaml:"provider"`
	// Host is the host of the pasted URL.
	Host string `json:"host" yaml:"host"`
	// Raw reports whether the pasted URL was a
	// raw-content URL.
	Raw    bool   `json:"raw"    yaml:"raw"`
	Org    string `json:"orga"   yaml:"orga"`
	Repo   string `json:"repo"   yaml:"repo"`
	Branch string `json:"branch" yaml:"branch"`

	// FilePath is empty when the URL points at the
	// repository root, and File is nil.
	FilePath string `json:"filepath"       yaml:"filepath"`
	File     *File  `json:"file,omitempty" yaml:"file,omitempty"`

	RepoURL    string `json:"repoUrl"    yaml:"repo_url"`
	PublicRoot string `json:"publicRoot" yaml:"public_root"`
	RawRoot    string `json:"rawRoot"    yaml:"raw_root"`
	FileRaw    string `json:"fileraw"    yaml:"file_raw"`

	API         string `json:"api"         yaml:"api"`
	APIRepo     string `json:"apiRepo"     yaml:"api_repo"`
	APIFileBase string `json:"apiFileBase" yaml:"api_file_base"`
	APIFile     string `json:"apiFile"     yaml:"api_file"`
	APIFileRaw  string `json:"apiFileRaw"  yaml:"api_file_raw"`
}

// ProjectPath returns "org/repo", the GitLab project
// id form.
func (d *Descriptor) ProjectPath() string {
	return d.Org + "/" + d.Repo
}

// HasFile reports whether the URL named a file.
func (d *Descriptor) HasFile() bool {
	return d.FilePath != ""
}

// Family returns the family of the named file, or
// FamilyOther when there is none.
func (d *Descriptor) Family() Family {
	if d.File == nil {
		return FamilyOther
	}

	return d.File.Family
}

// Parser holds the host and classification settings
// used by Parse. The zero value knows github.com and
// gitlab.com with the built-in family table.
type Parser struct {
	// GitLabHosts lists self-managed GitLab hosts
	// (host[:port]) accepted in addition to
	// gitlab.com.
	GitLabHosts []string
	// GitHubAPI overrides the GitHub REST root, e.g.
	// for GitHub Enterprise.
	GitHubAPI string
	// Families overrides the built-in extension table.
	Families Families
}

var defaultParser = &Parser{}

// Parse parses raw with the default Parser.
func Parse(raw string) (*Descriptor, error) {
	return defaultParser.Parse(raw)
}

// Parse turns a GitHub or GitLab blob, raw or
// repository URL into a Descriptor.
func (p *Parser) Parse(raw string) (*Descriptor, error) {
	const errCtx = "parsing repository url"

	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %w: %w", errCtx, ErrMalformedURL, err,
		)
	}

	if (u.Scheme != "http" && u.Scheme != "https") ||
		u.Host == "" {
		return nil, fmt.Errorf(
			"%s: %w: %q", errCtx, ErrMalformedURL, raw,
		)
	}

	host := strings.ToLower(u.Host)
	segs := splitPath(u.Path)

	var d *Descriptor

	switch {
	case host == githubRawHost:
		d, err = parseGitHub(segs, true)
	case host == githubHost || host == "www."+githubHost:
		d, err = parseGitHub(segs, false)
	case p.isGitLab(host):
		d, err = parseGitLab(segs)
	default:
		return nil, fmt.Errorf(
			"%s: %w: %s", errCtx, ErrUnsupportedHost, host,
		)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %q: %w", errCtx, raw, err)
	}

	d.ID = raw
	d.Host = host

	if d.Branch == "" {
		d.Branch = DefaultBranch
	}

	if d.FilePath != "" {
		d.File = p.fileOf(d.FilePath)
	}

	switch d.Provider {
	case GitHub:
		p.deriveGitHub(d)
	case GitLab:
		deriveGitLab(d, u.Scheme)
	}

	return d, nil
}

func (p *Parser) isGitLab(host string) bool {
	if host == gitlabHost {
		return true
	}

	return slices.ContainsFunc(
		p.GitLabHosts,
		func(h string) bool {
			return strings.EqualFold(h, host)
		},
	)
}

func (p *Parser) fileOf(filePath string) *File {
	full := filePath[strings.LastIndex(filePath, "/")+1:]

	f := &File{FullName: full, Name: full}

	if idx := strings.LastIndex(full, "."); idx >= 0 {
		f.Name = full[:idx]
		f.Type = full[idx+1:]
	}

	fams := p.Families
	if fams == nil {
		fams = defaultFamilies
	}

	f.Family = fams.Lookup(f.Type)

	return f
}

// parseGitHub handles /{org}/{repo}/blob/{branch}/...
// and, for raw URLs, /{org}/{repo}/{branch}/....
func parseGitHub(segs []string, raw bool) (*Descriptor, error) {
	if len(segs) < 2 {
		return nil, ErrMalformedURL
	}

	rest := segs[2:]
	if !raw && len(rest) > 0 {
		// blob, tree or raw marker.
		rest = rest[1:]
	}

	branch, filePath := splitBranch(rest)

	return &Descriptor{
		Provider: GitHub,
		Raw:      raw,
		Org:      segs[0],
		Repo:     segs[1],
		Branch:   branch,
		FilePath: filePath,
	}, nil
}

// parseGitLab handles
// /{namespace...}/{repo}/-/{blob|raw|tree}/{branch}/...
// where namespace may hold subgroups.
func parseGitLab(segs []string) (*Descriptor, error) {
	var raw bool

	project, rest := segs, []string(nil)

	if dash := slices.Index(segs, "-"); dash >= 0 {
		project, rest = segs[:dash], segs[dash+1:]
	} else if kind := legacyMarker(segs); kind >= 0 {
		project, rest = segs[:kind], segs[kind:]
	}

	if len(rest) > 0 {
		// blob, raw or tree.
		raw = rest[0] == "raw"
		rest = rest[1:]
	}

	if len(project) < 2 {
		return nil, ErrMalformedURL
	}

	branch, filePath := splitBranch(rest)

	return &Descriptor{
		Provider: GitLab,
		Raw:      raw,
		Org:      strings.Join(project[:len(project)-1], "/"),
		Repo:     project[len(project)-1],
		Branch:   branch,
		FilePath: filePath,
	}, nil
}

// legacyMarker finds a blob/raw/tree segment in URLs
// predating GitLab's "/-/" separator.
func legacyMarker(segs []string) int {
	for i := 2; i < len(segs); i++ {
		switch segs[i] {
		case "blob", "raw", "tree":
			return i
		}
	}

	return -1
}

func (p *Parser) deriveGitHub(d *Descriptor) {
	api := p.GitHubAPI
	if api == "" {
		api = DefaultGitHubAPI
	}

	repoPath := d.Org + "/" + d.Repo
	filePath := escapePath(d.FilePath)

	d.RepoURL = "https://" + githubHost + "/" + repoPath
	d.PublicRoot = d.RepoURL + "/blob/" + d.Branch + "/"
	d.RawRoot = "https://" + githubRawHost + "/" +
		repoPath + "/" + d.Branch + "/"
	d.FileRaw = d.RawRoot + filePath

	// https://docs.github.com/en/rest/repos/contents
	d.API = strings.TrimSuffix(api, "/")
	d.APIRepo = d.API + "/repos/" + repoPath
	d.APIFileBase = d.APIRepo + "/contents/" + filePath
	d.APIFile = d.APIFileBase + "?ref=" + url.QueryEscape(d.Branch)
	d.APIFileRaw = d.FileRaw
}

func deriveGitLab(d *Descriptor, scheme string) {
	base := scheme + "://" + d.Host
	ref := "?ref=" + url.QueryEscape(d.Branch)

	d.RepoURL = base + "/" + d.ProjectPath()
	d.PublicRoot = d.RepoURL + "/-/blob/" + d.Branch + "/"
	d.RawRoot = d.RepoURL + "/-/raw/" + d.Branch + "/"
	d.FileRaw = d.RawRoot + escapePath(d.FilePath)

	// https://docs.gitlab.com/ee/api/repository_files.html
	d.API = base + gitlabAPIPath
	d.APIRepo = d.API + "/projects/" + url.PathEscape(d.ProjectPath())
	d.APIFileBase = d.APIRepo + "/repository/files/" +
		url.PathEscape(d.FilePath)
	d.APIFile = d.APIFileBase + ref
	d.APIFileRaw = d.APIFileBase + "/raw" + ref
}

// ParseAPIFileURL re-derives organisation, repository
// and file path from a GitHub contents URL or a GitLab
// repository files URL.
func ParseAPIFileURL(apiFile string) (org, repo, filePath string, err error) {
	const errCtx = "parsing api file url"

	u, err := url.Parse(apiFile)
	if err != nil {
		return "", "", "", fmt.Errorf("%s: %w", errCtx, err)
	}

	escaped := u.EscapedPath()

	if _, after, ok := strings.Cut(escaped, "/projects/"); ok {
		org, repo, filePath, err = splitGitLabAPIPath(after)
	} else if _, after, ok := strings.Cut(u.Path, "/repos/"); ok {
		org, repo, filePath, err = splitGitHubAPIPath(after)
	} else {
		err = ErrMalformedURL
	}

	if err != nil {
		return "", "", "", fmt.Errorf(
			"%s: %q: %w", errCtx, apiFile, err,
		)
	}

	return org, repo, filePath, nil
}

func splitGitHubAPIPath(p string) (string, string, string, error) {
	segs := strings.SplitN(p, "/", 4)
	if len(segs) < 3 || segs[2] != "contents" {
		return "", "", "", ErrMalformedURL
	}

	filePath := ""
	if len(segs) == 4 {
		filePath = segs[3]
	}

	return segs[0], segs[1], filePath, nil
}

func splitGitLabAPIPath(p string) (string, string, string, error) {
	segs := strings.Split(p, "/")
	if len(segs) < 3 ||
		segs[1] != "repository" || segs[2] != "files" {
		return "", "", "", ErrMalformedURL
	}

	project, err := url.PathUnescape(segs[0])
	if err != nil {
		return "", "", "", err
	}

	idx := strings.LastIndex(project, "/")
	if idx <= 0 {
		return "", "", "", ErrMalformedURL
	}

	filePath := ""
	if len(segs) > 3 {
		if filePath, err = url.PathUnescape(segs[3]); err != nil {
			return "", "", "", err
		}
	}

	return project[:idx], project[idx+1:], filePath, nil
}

func splitPath(p string) []string {
	var segs []string

	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}

	return segs
}

func splitBranch(rest []string) (string, string) {
	if len(rest) == 0 {
		return "", ""
	}

	return rest[0], strings.Join(rest[1:], "/")
}

func escapePath(p string) string {
	return (&url.URL{Path: p}).EscapedPath()
}
