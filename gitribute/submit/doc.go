// Package submit runs a gitribute contribution end to end. It parses the file
// URL, picks the hosting provider, creates a working branch, commits the
// edited content on it and opens a merge/pull request back into the source
// branch.
//
// The main entry point is Run, which accepts a Config struct with all
// parameters for the workflow. Fetch and User cover the read-only steps an
// edit session needs before submitting.
package submit
