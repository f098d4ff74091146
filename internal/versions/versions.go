// Package versions maintains the deployed-versions inventory consumed by the
// theme's version selector. The inventory lives in versions.json at the site
// root, newest release first.
package versions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	derrors "git.home.luguber.info/inful/docsite/internal/errors"
)

// DefaultFileName is the inventory filename at the deployed site root.
const DefaultFileName = "versions.json"

// Entry describes one deployed version of the documentation.
type Entry struct {
	Version string   `json:"version"`
	Title   string   `json:"title"`
	Aliases []string `json:"aliases"`
}

// Set is an ordered collection of deployed versions, newest first.
type Set struct {
	entries []Entry
}

// Load reads the inventory at path. A missing file yields an empty set.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Set{}, nil
		}
		return nil, derrors.WrapError(err, derrors.CategoryFileSystem, "failed to read version inventory")
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, derrors.Wrap(err, derrors.CategorySchema, derrors.SeverityFatal, "malformed version inventory").
			WithContext("path", path)
	}
	return &Set{entries: entries}, nil
}

// Save writes the inventory atomically via a temp file rename.
func (s *Set) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return derrors.WrapError(err, derrors.CategoryFileSystem, "failed to create inventory directory")
	}
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return derrors.InternalError("failed to marshal version inventory", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return derrors.WrapError(err, derrors.CategoryFileSystem, "failed to write version inventory")
	}
	if err := os.Rename(tmp, path); err != nil {
		return derrors.WrapError(err, derrors.CategoryFileSystem, "failed to replace version inventory")
	}
	return nil
}

// Entries returns a copy of the inventory in stored order.
func (s *Set) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of deployed versions.
func (s *Set) Len() int { return len(s.entries) }

// Find returns the entry for version.
func (s *Set) Find(version string) (Entry, bool) {
	for _, e := range s.entries {
		if e.Version == version {
			return e, true
		}
	}
	return Entry{}, false
}

// Add inserts a version in newest-first order. Adding an existing version
// updates its title and keeps its aliases.
func (s *Set) Add(version, title string) {
	if title == "" {
		title = version
	}
	for i := range s.entries {
		if s.entries[i].Version == version {
			s.entries[i].Title = title
			return
		}
	}
	entry := Entry{Version: version, Title: title}
	at := len(s.entries)
	for i := range s.entries {
		if compareVersions(version, s.entries[i].Version) > 0 {
			at = i
			break
		}
	}
	s.entries = append(s.entries, Entry{})
	copy(s.entries[at+1:], s.entries[at:])
	s.entries[at] = entry
}

// Alias points alias at version, moving it off any entry that held it before.
// Aliases such as "latest" and "stable" must resolve to exactly one version.
func (s *Set) Alias(version, alias string) error {
	target := -1
	for i := range s.entries {
		if s.entries[i].Version == version {
			target = i
			continue
		}
		s.entries[i].Aliases = removeString(s.entries[i].Aliases, alias)
	}
	if target == -1 {
		return fmt.Errorf("unknown version %q", version)
	}
	for _, a := range s.entries[target].Aliases {
		if a == alias {
			return nil
		}
	}
	s.entries[target].Aliases = append(s.entries[target].Aliases, alias)
	return nil
}

// Resolve maps a version or alias to its entry.
func (s *Set) Resolve(name string) (Entry, bool) {
	if e, ok := s.Find(name); ok {
		return e, true
	}
	for _, e := range s.entries {
		for _, a := range e.Aliases {
			if a == name {
				return e, true
			}
		}
	}
	return Entry{}, false
}

// Prune keeps the newest keep versions and returns the removed ones.
// Aliased entries are never pruned; a version carrying "latest" must stay
// reachable.
func (s *Set) Prune(keep int) []string {
	if keep < 0 {
		keep = 0
	}
	var kept []Entry
	var removed []string
	for i, e := range s.entries {
		if i < keep || len(e.Aliases) > 0 {
			kept = append(kept, e)
			continue
		}
		removed = append(removed, e.Version)
	}
	s.entries = kept
	return removed
}

// compareVersions orders release tags numerically field by field, so v1.10.0
// sorts above v1.9.2. Non-numeric suffixes end the comparison; fully
// non-numeric names sort oldest.
func compareVersions(a, b string) int {
	fa, fb := numericFields(a), numericFields(b)
	for i := 0; i < len(fa) || i < len(fb); i++ {
		va, vb := 0, 0
		if i < len(fa) {
			va = fa[i]
		}
		if i < len(fb) {
			vb = fb[i]
		}
		if va != vb {
			if va > vb {
				return 1
			}
			return -1
		}
	}
	return strings.Compare(b, a) // stable tiebreak: v1.0 vs 1.0
}

func numericFields(tag string) []int {
	tag = strings.TrimPrefix(tag, "v")
	parts := strings.Split(tag, ".")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return out
		}
		out = append(out, n)
	}
	return out
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

// sortNewestFirst is used after bulk imports.
func sortNewestFirst(tags []string) {
	sort.SliceStable(tags, func(i, j int) bool {
		return compareVersions(tags[i], tags[j]) > 0
	})
}
