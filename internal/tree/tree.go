// Package tree builds recursive directory listings of the workspace.
package tree

import (
	"cmp"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/starford/tracker/internal/models"
)

// DirReader lists one directory relative to some root. storage.FS satisfies it.
type DirReader interface {
	ReadDir(rel string) ([]fs.DirEntry, error)
}

// Build lists dir recursively. Hidden entries are skipped, directories come
// before files and each group is sorted by name. Node paths are relative to
// dir and use forward slashes.
func Build(r DirReader, dir string) ([]models.FileTreeNode, error) {
	return build(r, dir, "")
}

func build(r DirReader, base, rel string) ([]models.FileTreeNode, error) {
	entries, err := r.ReadDir(filepath.Join(base, filepath.FromSlash(rel)))
	if err != nil {
		return nil, err
	}

	nodes := make([]models.FileTreeNode, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		node := models.FileTreeNode{
			Type: models.NodeFile,
			Name: e.Name(),
			Path: path.Join(rel, e.Name()),
		}
		if e.IsDir() {
			node.Type = models.NodeDirectory
			children, err := build(r, base, node.Path)
			if err != nil {
				return nil, err
			}
			node.Children = children
		}
		nodes = append(nodes, node)
	}

	slices.SortFunc(nodes, func(a, b models.FileTreeNode) int {
		if a.Type != b.Type {
			if a.Type == models.NodeDirectory {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return nodes, nil
}
