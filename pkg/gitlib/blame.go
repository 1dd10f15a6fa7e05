package gitlib

import (
	"errors"
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrBlameGap is returned when blame hunks do not cover a file contiguously.
var ErrBlameGap = errors.New("blame hunks do not cover the file")

// UnknownAuthor stands in for commits whose signature has neither name nor
// e-mail.
const UnknownAuthor = "<unknown>"

// BlameLines returns the author of every line of path as of commit, with an
// empty sentinel at index 0.
func (r *Repository) BlameLines(path string, commit Hash) ([]string, error) {
	opts, err := git2go.DefaultBlameOptions()
	if err != nil {
		return nil, fmt.Errorf("blame options: %w", err)
	}

	opts.NewestCommit = commit.ToOid()

	blame, err := r.repo.BlameFile(path, &opts)
	if err != nil {
		return nil, fmt.Errorf("blame %s: %w", path, err)
	}
	defer blame.Free()

	authors := []string{""}

	for i := range blame.HunkCount() {
		hunk, err := blame.HunkByIndex(i)
		if err != nil {
			return nil, fmt.Errorf("blame %s: hunk %d: %w", path, i, err)
		}

		start := int(hunk.FinalStartLineNumber)
		if start != len(authors) {
			return nil, fmt.Errorf("%w: %s: hunk %d starts at line %d, want %d", ErrBlameGap, path, i, start, len(authors))
		}

		author := signatureAuthor(hunk.FinalSignature)

		for range int(hunk.LinesInHunk) {
			authors = append(authors, author)
		}
	}

	return authors, nil
}

func signatureAuthor(sig *git2go.Signature) string {
	switch {
	case sig == nil:
		return UnknownAuthor
	case sig.Name != "":
		return sig.Name
	case sig.Email != "":
		return sig.Email
	}

	return UnknownAuthor
}
