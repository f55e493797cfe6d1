package commitmsg_test

import (
	"testing"

	"github.com/byte4ever/gitribute/gitribute/commitmsg"

	"github.com/stretchr/testify/assert"
)

func TestMergeRequest_defaults(t *testing.T) {
	t.Parallel()

	title, body := commitmsg.Templates{}.MergeRequest(commitmsg.Vars{
		User:   "octocat",
		Source: "gitribute-1a2b3c4d",
		Target: "main",
	})

	assert.Equal(t, "Gitribute ... Contribution from : octocat", title)
	assert.Equal(
		t,
		"octocat added some contributions on branch "+
			"'gitribute-1a2b3c4d', to add to branch 'main'",
		body,
	)
}

func TestMergeRequest_custom(t *testing.T) {
	t.Parallel()

	tpl := commitmsg.Templates{
		Title: "Edit of {{file}} by {{author}}",
		Body:  "{{message}}",
	}

	title, body := tpl.MergeRequest(commitmsg.Vars{
		File:    "texts/readme.md",
		Author:  "Ada Lovelace",
		Message: "fixed typos",
	})

	assert.Equal(t, "Edit of texts/readme.md by Ada Lovelace", title)
	assert.Equal(t, "fixed typos", body)
}

func TestCommitMessage_appends_message(t *testing.T) {
	t.Parallel()

	msg := commitmsg.Templates{}.CommitMessage(commitmsg.Vars{
		File:    "texts/readme.md",
		Message: "fixed typos",
	})

	assert.Equal(t, "Update texts/readme.md\n\nfixed typos", msg)
}

func TestCommitMessage_template_places_message(t *testing.T) {
	t.Parallel()

	tpl := commitmsg.Templates{Commit: "{{file}}: {{message}}"}

	msg := tpl.CommitMessage(commitmsg.Vars{
		File:    "a.md",
		Message: "typo",
	})

	assert.Equal(t, "a.md: typo", msg)
}

func TestCommitMessage_without_message(t *testing.T) {
	t.Parallel()

	msg := commitmsg.Templates{}.CommitMessage(commitmsg.Vars{
		File: "a.md",
	})

	assert.Equal(t, "Update a.md", msg)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, commitmsg.Templates{}.Validate())
	assert.NoError(t, commitmsg.Templates{Title: "{{user}}"}.Validate())
	assert.ErrorContains(
		t,
		commitmsg.Templates{Body: "by {{user"}.Validate(),
		"body",
	)
}
