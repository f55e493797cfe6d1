package commitmsg

import (
	"fmt"
	"strings"

	"github.com/valyala/fasttemplate"
)

const (
	startTag = "{{"
	endTag   = "}}"
)

// Default templates.
const (
	DefaultTitle  = "Gitribute ... Contribution from : {{user}}"
	DefaultBody   = "{{user}} added some contributions on branch '{{source}}', to add to branch '{{target}}'"
	DefaultCommit = "Update {{file}}"
)

// Templates holds the placeholder templates. Empty
// fields fall back to the defaults.
//
// Placeholders: user, source, target, file, author,
// message.
type Templates struct {
	Title  string `yaml:"title"`
	Body   string `yaml:"body"`
	Commit string `yaml:"commit"`
}

// Vars are the values substituted into templates.
type Vars struct {
	// User is the provider login of the submitter.
	User string
	// Source is the branch carrying the edit.
	Source string
	// Target is the branch the edit is proposed to.
	Target string
	// File is the repository path of the edited file.
	File string
	// Author is the submitter's full name.
	Author string
	// Message is an optional free text from the
	// submitter.
	Message string
}

// Validate reports templates with unterminated tags.
func (t Templates) Validate() error {
	const errCtx = "validating templates"

	for name, tpl := range map[string]string{
		"title":  t.Title,
		"body":   t.Body,
		"commit": t.Commit,
	} {
		if _, err := fasttemplate.NewTemplate(
			tpl, startTag, endTag,
		); err != nil {
			return fmt.Errorf(
				"%s: %s: %w", errCtx, name, err,
			)
		}
	}

	return nil
}

// MergeRequest renders the merge request title and
// description.
func (t Templates) MergeRequest(v Vars) (string, string) {
	title := render(orDefault(t.Title, DefaultTitle), v)
	body := render(orDefault(t.Body, DefaultBody), v)

	return title, body
}

// CommitMessage renders the commit message. A
// non-empty v.Message is appended as a second
// paragraph unless the template already places it.
func (t Templates) CommitMessage(v Vars) string {
	tpl := orDefault(t.Commit, DefaultCommit)
	msg := render(tpl, v)

	if v.Message != "" &&
		!strings.Contains(tpl, startTag+"message"+endTag) {
		msg += "\n\n" + v.Message
	}

	return msg
}

func render(tpl string, v Vars) string {
	return fasttemplate.ExecuteStringStd(
		tpl, startTag, endTag,
		map[string]any{
			"user":    v.User,
			"source":  v.Source,
			"target":  v.Target,
			"file":    v.File,
			"author":  v.Author,
			"message": v.Message,
		},
	)
}

func orDefault(tpl string, def string) string {
	if tpl == "" {
		return def
	}

	return tpl
}
