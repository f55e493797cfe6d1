// Package commitmsg renders the texts attached to an edit submission: the
// merge request title and description, and the commit message. Templates use
// {{name}} placeholders expanded with valyala/fasttemplate.
package commitmsg
