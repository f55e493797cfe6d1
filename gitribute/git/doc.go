// Package git defines the provider contract shared by the GitHub and GitLab
// implementations in the sub-packages.
//
// A Provider builds Request descriptors for the four write-side operations
// of an edit submission (user info, branch creation, merge request, file
// commit). Builders may perform a preliminary read through the provider SDK,
// but they never issue the mutating request: the caller does, with Do.
//
// Failed preliminary reads that produced an HTTP response are accumulated in
// Request.Errors instead of being returned as Go errors.
package git
