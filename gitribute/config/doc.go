// Package config loads the gitribute YAML configuration: self-managed GitLab
// hosts, the GitHub API root, the commit author, the generated texts and
// extra file families. Values may reference environment variables.
package config
