// Package gitlab implements a git.Provider for gitlab.com and self-managed
// GitLab instances on top of gitlab.com/gitlab-org/api/client-go. The API root
// is derived from the host of the parsed file URL.
package gitlab
