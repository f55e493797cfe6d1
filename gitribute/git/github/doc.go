// Package github implements a git.Provider for GitHub (cloud or enterprise)
// on top of google/go-github. Preliminary reads go through a go-github client
// wrapping the injected *http.Client; write requests are returned as
// git.Request descriptors built from go-github request types.
package github
