package scan

import "path"

// NodeType discriminates folders from recording files in a tree.
type NodeType string

const (
	TypeFolder NodeType = "folder"
	TypeFile   NodeType = "file"
)

// TreeNode is one entry of the recording tree served by /api/tree.
// Path is slash separated and relative to the root; the root itself has
// an empty Path.
type TreeNode struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Type     NodeType    `json:"type"`
	Children []*TreeNode `json:"children,omitempty"` // folders only
}

func newFolderNode(name, relPath string, children []*TreeNode) *TreeNode {
	return &TreeNode{Name: name, Path: relPath, Type: TypeFolder, Children: children}
}

func newFileNode(name, relPath string) *TreeNode {
	return &TreeNode{Name: name, Path: relPath, Type: TypeFile}
}

func (n *TreeNode) IsFolder() bool {
	return n.Type == TypeFolder
}

// FindByPath returns the node with the given root-relative path, or nil.
// Only children on the way to the target are descended into.
func (n *TreeNode) FindByPath(target string) *TreeNode {
	if n.Path == target {
		return n
	}
	for _, child := range n.Children {
		// Compare with a trailing slash so "a/b" never matches "a/bc".
		if child.Path == target || (child.IsFolder() && hasPathPrefix(target, child.Path)) {
			return child.FindByPath(target)
		}
	}
	return nil
}

func childPath(base, name string) string {
	if base == "" {
		return name
	}
	return path.Join(base, name)
}

func hasPathPrefix(target, prefix string) bool {
	return len(target) > len(prefix) && target[:len(prefix)] == prefix && target[len(prefix)] == '/'
}
