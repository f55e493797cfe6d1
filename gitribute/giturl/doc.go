// Package giturl turns a pasted GitHub or GitLab file URL (blob or raw form)
// into a Descriptor: provider, organisation, repository, branch, file
// identity, and the public and API endpoints derived from them.
//
// Every derived URL is a pure function of provider, host, organisation,
// repository, branch and file path. A Descriptor is never mutated after
// Parse returns it.
package giturl
