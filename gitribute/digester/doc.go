// Package digester computes SHA256 digests of file content. A working copy
// fetched for editing gets a companion .digest file, so an edit session can
// tell whether the user changed anything before submitting.
package digester
