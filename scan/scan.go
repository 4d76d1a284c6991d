package scan

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultExtension is the recording extension listed when Options leaves
// it empty.
const DefaultExtension = ".mcap"

type Options struct {
	// Extension selects which files are listed, matched case-insensitively
	// against the end of the file name. Defaults to DefaultExtension.
	Extension string
}

func (o Options) extension() string {
	if o.Extension == "" {
		return DefaultExtension
	}
	return strings.ToLower(o.Extension)
}

// BuildTree walks root and returns the folder node describing every
// recording below it. See BuildTreeStats.
func BuildTree(root string, opts Options) *TreeNode {
	tree, _ := BuildTreeStats(root, opts)
	return tree
}

// BuildTreeStats walks root depth first and returns the recording tree
// together with walk statistics.
//
// Hidden entries are skipped at every depth, folders without a recording
// somewhere below them are pruned, and every folder lists its subfolders
// before its files. A directory that cannot be read is treated as empty;
// the walk never fails.
func BuildTreeStats(root string, opts Options) (*TreeNode, Stats) {
	start := time.Now()
	w := &walker{
		ext:      opts.extension(),
		collator: collate.New(language.Und),
	}
	children := w.walk(root, "")
	w.stats.Elapsed = time.Since(start)
	return newFolderNode(filepath.Base(root), "", children), w.stats
}

type walker struct {
	ext      string
	collator *collate.Collator // not safe for concurrent use; one per walk
	stats    Stats
}

func (w *walker) walk(dir, relBase string) []*TreeNode {
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.stats.Unreadable++
		return nil
	}

	var folders, files []*TreeNode
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			w.stats.Skipped++
			continue
		}

		rel := childPath(relBase, name)

		// DirEntry does not follow symlinks, so links are never listed.
		if entry.IsDir() {
			children := w.walk(filepath.Join(dir, name), rel)
			if len(children) == 0 {
				w.stats.Skipped++
				continue
			}
			folders = append(folders, newFolderNode(name, rel, children))
			w.stats.Folders++
			continue
		}

		if entry.Type().IsRegular() && strings.HasSuffix(strings.ToLower(name), w.ext) {
			files = append(files, newFileNode(name, rel))
			w.stats.Files++
			continue
		}
		w.stats.Skipped++
	}

	w.sortByName(folders)
	w.sortByName(files)

	return append(folders, files...)
}

func (w *walker) sortByName(nodes []*TreeNode) {
	slices.SortFunc(nodes, func(a, b *TreeNode) int {
		if c := w.collator.CompareString(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
}
