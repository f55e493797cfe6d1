package submit

import (
	"fmt"
	"net/http"

	"github.com/byte4ever/gitribute/gitribute/commitmsg"
	"github.com/byte4ever/gitribute/gitribute/git"
	"github.com/byte4ever/gitribute/gitribute/git/github"
	"github.com/byte4ever/gitribute/gitribute/git/gitlab"
	"github.com/byte4ever/gitribute/gitribute/giturl"
)

// NewProvider returns the git.Provider serving d.
func NewProvider(
	d *giturl.Descriptor,
	hc *http.Client,
	tpl commitmsg.Templates,
) (git.Provider, error) {
	const errCtx = "selecting provider"

	if d == nil {
		return nil, fmt.Errorf(
			"%s: descriptor must be set", errCtx,
		)
	}

	switch d.Provider {
	case giturl.GitHub:
		p, err := github.NewProvider(github.Config{
			Descriptor: d,
			HTTPClient: hc,
			Templates:  tpl,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		return p, nil
	case giturl.GitLab:
		p, err := gitlab.NewProvider(gitlab.Config{
			Descriptor: d,
			HTTPClient: hc,
			Templates:  tpl,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		return p, nil
	default:
		return nil, fmt.Errorf(
			"%s: %w: %q",
			errCtx, giturl.ErrUnsupportedHost, d.Provider,
		)
	}
}
