package git

import (
	"context"
	"errors"
)

// ErrNoFile is returned by CommitRequest when the
// descriptor points at a repository root.
var ErrNoFile = errors.New("descriptor names no file")

// Pattern: Strategy -- one implementation per git
// hosting platform.

// Provider builds request descriptors for one
// repository file on a git hosting platform.
type Provider interface {
	// UserInfoRequest describes a read of the user
	// owning token. No network call is made.
	UserInfoRequest(token string) *Request

	// FileRequest describes a read of the current file
	// content. No network call is made.
	FileRequest(token string) *Request

	// CreateBranch reads the source branch (and the
	// new branch, to detect it already exists) and
	// describes the creation of newBranch from source.
	CreateBranch(
		ctx context.Context,
		token string,
		source string,
		newBranch string,
	) (*Request, error)

	// CreateMergeRequest resolves the acting user and
	// describes a merge/pull request from newBranch
	// into target.
	CreateMergeRequest(
		ctx context.Context,
		token string,
		target string,
		newBranch string,
	) (*Request, error)

	// CommitRequest describes a commit replacing the
	// file content on branch.
	CommitRequest(
		ctx context.Context,
		token string,
		branch string,
		content string,
		message string,
		author Author,
	) (*Request, error)
}

// Author identifies the person submitting an edit.
type Author struct {
	Name    string `yaml:"name"`
	Surname string `yaml:"surname"`
	Email   string `yaml:"email"`
}

// FullName joins name and surname.
func (a Author) FullName() string {
	switch {
	case a.Surname == "":
		return a.Name
	case a.Name == "":
		return a.Surname
	default:
		return a.Name + " " + a.Surname
	}
}
