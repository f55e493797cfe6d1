package giturl

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
)

// Family classifies how an editor renders a file.
type Family string

// Known file families. Unknown extensions classify
// as FamilyOther.
const (
	FamilyText  Family = "text"
	FamilyTable Family = "table"
	FamilyJSON  Family = "json"
	FamilyOther Family = "other"
)

//go:embed families.yaml
var defaultFamiliesYAML []byte

var defaultFamilies = mustLoadFamilies(defaultFamiliesYAML)

// Families maps lower-case file extensions (without
// the leading dot) to their family.
type Families map[string]Family

// DefaultFamilies returns a copy of the built-in
// extension table.
func DefaultFamilies() Families {
	return defaultFamilies.Merge(nil)
}

// LoadFamilies decodes a YAML document mapping family
// names to extension lists, e.g.
//
//	text: [md, txt]
//	table: [csv]
//
// An empty document yields an empty table.
func LoadFamilies(in io.Reader) (Families, error) {
	const errCtx = "loading file families"

	var raw map[string][]string

	if err := yaml.NewDecoder(in).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return Families{}, nil
		}

		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	fams, err := NewFamilies(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return fams, nil
}

// NewFamilies builds a table from family names mapped
// to extension lists.
func NewFamilies(raw map[string][]string) (Families, error) {
	fams := make(Families)

	for fam, exts := range raw {
		if fam == "" {
			return nil, errors.New("empty family name")
		}

		for _, ext := range exts {
			if ext = normalizeExt(ext); ext != "" {
				fams[ext] = Family(fam)
			}
		}
	}

	return fams, nil
}

// Merge returns a new table holding fs overridden by
// extra.
func (fs Families) Merge(extra Families) Families {
	out := make(Families, len(fs)+len(extra))

	for ext, fam := range fs {
		out[ext] = fam
	}

	for ext, fam := range extra {
		out[normalizeExt(ext)] = fam
	}

	return out
}

// Lookup classifies ext. Matching ignores case and a
// leading dot.
func (fs Families) Lookup(ext string) Family {
	if fam, ok := fs[normalizeExt(ext)]; ok {
		return fam
	}

	return FamilyOther
}

func normalizeExt(ext string) string {
	return strings.ToLower(
		strings.TrimPrefix(strings.TrimSpace(ext), "."),
	)
}

func mustLoadFamilies(raw []byte) Families {
	fams, err := LoadFamilies(bytes.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("embedded families: %v", err))
	}

	return fams
}
