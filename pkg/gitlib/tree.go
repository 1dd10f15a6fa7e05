package gitlib

import (
	git2go "github.com/libgit2/git2go/v34"
)

// Tree wraps a libgit2 tree.
type Tree struct {
	tree *git2go.Tree
	repo *Repository
}

// Free releases the tree resources.
func (t *Tree) Free() {
	if t.tree != nil {
		t.tree.Free()
		t.tree = nil
	}
}

// TreeEntry is a blob found while walking a tree.
type TreeEntry struct {
	Path string
	Hash Hash
}

// WalkBlobs calls cb for every blob reachable from the tree, depth first in
// tree order, with slash-separated paths. Submodules are skipped.
func (t *Tree) WalkBlobs(cb func(entry TreeEntry) error) error {
	return walkTree(t.repo, t, "", cb)
}

func walkTree(repo *Repository, tree *Tree, prefix string, cb func(entry TreeEntry) error) error {
	count := tree.tree.EntryCount()

	for i := range count {
		entry := tree.tree.EntryByIndex(i)
		if entry == nil {
			continue
		}

		err := processTreeEntry(repo, entry, prefix, cb)
		if err != nil {
			return err
		}
	}

	return nil
}

func processTreeEntry(repo *Repository, entry *git2go.TreeEntry, prefix string, cb func(entry TreeEntry) error) error {
	path := entry.Name
	if prefix != "" {
		path = prefix + "/" + path
	}

	switch entry.Type {
	case git2go.ObjectBlob:
		return cb(TreeEntry{Path: path, Hash: HashFromOid(entry.Id)})
	case git2go.ObjectTree:
	default:
		return nil
	}

	subtree, err := repo.LookupTree(HashFromOid(entry.Id))
	if err != nil {
		return err
	}
	defer subtree.Free()

	return walkTree(repo, subtree, path, cb)
}
