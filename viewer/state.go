// Package viewer holds the browsing state of one UI session and derives
// the URL that drives the embedded Lichtblick viewer from it.
package viewer

import "slices"

// RootPath is the path of the tree root; it starts expanded.
const RootPath = ""

type pathSet map[string]struct{}

func newPathSet(paths ...string) pathSet {
	s := make(pathSet, len(paths))
	for _, p := range paths {
		s[p] = struct{}{}
	}
	return s
}

func (s pathSet) clone() pathSet {
	out := make(pathSet, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}

func (s pathSet) toggle(p string) {
	if _, ok := s[p]; ok {
		delete(s, p)
		return
	}
	s[p] = struct{}{}
}

func (s pathSet) sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// State is the expansion and selection of one UI session. It is a value:
// Update returns a new State and never modifies its input.
type State struct {
	expanded pathSet
	selected pathSet
}

// NewState returns the initial state: root expanded, nothing selected.
func NewState() State {
	return State{expanded: newPathSet(RootPath), selected: newPathSet()}
}

// Restore rebuilds a State from previously saved path lists.
func Restore(expanded, selected []string) State {
	return State{expanded: newPathSet(expanded...), selected: newPathSet(selected...)}
}

func (s State) IsExpanded(path string) bool {
	_, ok := s.expanded[path]
	return ok
}

func (s State) IsSelected(path string) bool {
	_, ok := s.selected[path]
	return ok
}

// ExpandedPaths returns the expanded folder paths in sorted order.
func (s State) ExpandedPaths() []string {
	return s.expanded.sorted()
}

// SelectedPaths returns the selected file paths in sorted order.
func (s State) SelectedPaths() []string {
	return s.selected.sorted()
}

// ViewerURL is the viewer URL for the current selection.
func (s State) ViewerURL(base, origin string) string {
	return BuildURL(base, origin, s.SelectedPaths())
}

// Msg is a user intent applied by Update.
type Msg interface {
	isMsg()
}

// ToggleFolder opens or closes a folder. The selection is left alone.
type ToggleFolder struct {
	Path string
}

// SelectFile is a click on a file. An additive click toggles only Path;
// a plain click replaces the selection with Path, or clears it when Path
// was already the only selected file.
type SelectFile struct {
	Path     string
	Additive bool
}

// ClearSelection drops every selected file.
type ClearSelection struct{}

func (ToggleFolder) isMsg()   {}
func (SelectFile) isMsg()     {}
func (ClearSelection) isMsg() {}

// Update applies msg to s and returns the resulting state.
func Update(s State, msg Msg) State {
	switch m := msg.(type) {
	case ToggleFolder:
		expanded := s.expanded.clone()
		expanded.toggle(m.Path)
		return State{expanded: expanded, selected: s.selected}
	case SelectFile:
		var next pathSet
		switch {
		case m.Additive:
			next = s.selected.clone()
		case len(s.selected) == 1 && s.IsSelected(m.Path):
			next = newPathSet(m.Path)
		default:
			next = newPathSet()
		}
		next.toggle(m.Path)
		return State{expanded: s.expanded, selected: next}
	case ClearSelection:
		return State{expanded: s.expanded, selected: newPathSet()}
	}
	return s
}
