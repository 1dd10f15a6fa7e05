package gitlib

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/blamethrower/pkg/filter"
	"github.com/Sumatoshi-tech/blamethrower/pkg/record"
)

// BlameOptions configures BlameHead.
type BlameOptions struct {
	// Prefix limits blame to paths starting with it.
	Prefix string
	// SkipVendored skips files filter.Vendored rejects.
	SkipVendored bool
}

func (o BlameOptions) wants(path string) bool {
	if !strings.HasPrefix(path, o.Prefix) {
		return false
	}

	return !o.SkipVendored || !filter.Vendored(path)
}

// BlameHead yields the authorship of every text file in the tree at HEAD of
// the repository at repoPath, in tree order. Binary files are skipped.
// Cancelling ctx stops the walk between files.
func BlameHead(ctx context.Context, repoPath string, opts BlameOptions) iter.Seq2[record.FileAuthors, error] {
	return func(yield func(record.FileAuthors, error) bool) {
		repo, err := OpenRepository(repoPath)
		if err != nil {
			yield(record.FileAuthors{}, err)

			return
		}
		defer repo.Free()

		head, err := repo.Head()
		if err != nil {
			yield(record.FileAuthors{}, err)

			return
		}

		entries, err := headEntries(repo, head, opts)
		if err != nil {
			yield(record.FileAuthors{}, err)

			return
		}

		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				yield(record.FileAuthors{}, fmt.Errorf("blame %s: %w", repoPath, err))

				return
			}

			fa, ok, err := blameEntry(repo, head, entry)
			if err != nil {
				yield(record.FileAuthors{}, err)

				return
			}

			if ok && !yield(fa, nil) {
				return
			}
		}
	}
}

func headEntries(repo *Repository, head Hash, opts BlameOptions) ([]TreeEntry, error) {
	tree, err := repo.CommitTree(head)
	if err != nil {
		return nil, err
	}
	defer tree.Free()

	var entries []TreeEntry

	err = tree.WalkBlobs(func(entry TreeEntry) error {
		if opts.wants(entry.Path) {
			entries = append(entries, entry)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk tree: %w", err)
	}

	return entries, nil
}

func blameEntry(repo *Repository, head Hash, entry TreeEntry) (record.FileAuthors, bool, error) {
	blob, err := repo.LookupBlob(entry.Hash)
	if err != nil {
		return record.FileAuthors{}, false, err
	}

	binary := enry.IsBinary(blob.Contents())
	blob.Free()

	if binary {
		return record.FileAuthors{}, false, nil
	}

	authors, err := repo.BlameLines(entry.Path, head)
	if err != nil {
		return record.FileAuthors{}, false, err
	}

	return record.FileAuthors{Filename: entry.Path, Authors: authors}, true, nil
}
