package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates every file in files (slash separated, relative to dir).
func writeTree(t *testing.T, dir string, files ...string) {
	t.Helper()
	for _, f := range files {
		full := filepath.Join(dir, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte("data"), 0644))
	}
}

func names(nodes []*TreeNode) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return out
}

func TestBuildTreePrunesHiddenAndEmptyBranches(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, "a/x.mcap", "a/.hidden/y.mcap", "b/readme.txt")

	tree := BuildTree(tmpDir, Options{})

	assert.Equal(t, filepath.Base(tmpDir), tree.Name)
	assert.Equal(t, "", tree.Path)
	assert.Equal(t, TypeFolder, tree.Type)
	require.Len(t, tree.Children, 1)

	a := tree.Children[0]
	assert.Equal(t, "a", a.Name)
	assert.Equal(t, "a", a.Path)
	assert.Equal(t, TypeFolder, a.Type)
	require.Len(t, a.Children, 1)

	x := a.Children[0]
	assert.Equal(t, "x.mcap", x.Name)
	assert.Equal(t, "a/x.mcap", x.Path)
	assert.Equal(t, TypeFile, x.Type)
	assert.Nil(t, x.Children)
}

func TestBuildTreeFoldersBeforeFilesSorted(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir,
		"zeta.mcap",
		"alpha.mcap",
		"Mid.mcap",
		"zz/one.mcap",
		"aa/two.mcap",
		"aa/nested/deep/three.mcap",
		"aa/b.mcap",
	)

	tree := BuildTree(tmpDir, Options{})

	assert.Equal(t, []string{"aa", "zz", "alpha.mcap", "Mid.mcap", "zeta.mcap"}, names(tree.Children))

	aa := tree.FindByPath("aa")
	require.NotNil(t, aa)
	assert.Equal(t, []string{"nested", "b.mcap", "two.mcap"}, names(aa.Children))

	deep := tree.FindByPath("aa/nested/deep/three.mcap")
	require.NotNil(t, deep)
	assert.Equal(t, TypeFile, deep.Type)
}

func TestBuildTreeExtensionIsCaseInsensitive(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, "upper.MCAP", "mixed.McAp", "plain.mcap", "other.bag", "mcap")

	tree := BuildTree(tmpDir, Options{})

	assert.ElementsMatch(t, []string{"upper.MCAP", "mixed.McAp", "plain.mcap"}, names(tree.Children))
}

func TestBuildTreeCustomExtension(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, "run.bag", "run.mcap")

	tree := BuildTree(tmpDir, Options{Extension: ".BAG"})

	assert.Equal(t, []string{"run.bag"}, names(tree.Children))
}

func TestBuildTreeHiddenNeverListed(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, ".secret.mcap", ".cache/a.mcap", "ok/.inner/b.mcap", "ok/c.mcap")

	tree := BuildTree(tmpDir, Options{})

	assert.Nil(t, tree.FindByPath(".secret.mcap"))
	assert.Nil(t, tree.FindByPath(".cache"))
	assert.Nil(t, tree.FindByPath("ok/.inner"))
	assert.NotNil(t, tree.FindByPath("ok/c.mcap"))
}

func TestBuildTreeSkipsSymlinks(t *testing.T) {
	tmpDir := t.TempDir()
	outside := t.TempDir()
	writeTree(t, outside, "target.mcap", "dir/inner.mcap")
	writeTree(t, tmpDir, "real.mcap")
	require.NoError(t, os.Symlink(filepath.Join(outside, "target.mcap"), filepath.Join(tmpDir, "link.mcap")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "dir"), filepath.Join(tmpDir, "linkdir")))

	tree := BuildTree(tmpDir, Options{})

	assert.Equal(t, []string{"real.mcap"}, names(tree.Children))
}

func TestBuildTreeMissingRootIsEmpty(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	tree, stats := BuildTreeStats(missing, Options{})

	assert.Equal(t, "does-not-exist", tree.Name)
	assert.Empty(t, tree.Children)
	assert.Equal(t, 1, stats.Unreadable)
}

func TestBuildTreeUnreadableDirectoryTreatedAsEmpty(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, "locked/a.mcap", "open/b.mcap")
	locked := filepath.Join(tmpDir, "locked")
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	tree, stats := BuildTreeStats(tmpDir, Options{})

	assert.Equal(t, []string{"open"}, names(tree.Children))
	assert.Equal(t, 1, stats.Unreadable)
}

func TestBuildTreeStatsCounts(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, "a/x.mcap", "a/y.mcap", "b/notes.txt", ".hidden")

	_, stats := BuildTreeStats(tmpDir, Options{})

	assert.Equal(t, 1, stats.Folders)
	assert.Equal(t, 2, stats.Files)
	// b/notes.txt, the pruned b folder and .hidden
	assert.Equal(t, 3, stats.Skipped)
	assert.Zero(t, stats.Unreadable)
}

func TestFindByPath(t *testing.T) {
	tree := newFolderNode("root", "", []*TreeNode{
		newFolderNode("a", "a", []*TreeNode{newFileNode("x.mcap", "a/x.mcap")}),
		newFolderNode("ab", "ab", []*TreeNode{newFileNode("y.mcap", "ab/y.mcap")}),
	})

	assert.Same(t, tree, tree.FindByPath(""))
	assert.Equal(t, "ab/y.mcap", tree.FindByPath("ab/y.mcap").Path)
	assert.Equal(t, "a/x.mcap", tree.FindByPath("a/x.mcap").Path)
	assert.Nil(t, tree.FindByPath("a/y.mcap"))
	assert.Nil(t, tree.FindByPath("missing"))
}
