package versions

import (
	"regexp"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	derrors "git.home.luguber.info/inful/docsite/internal/errors"
)

// versionTag matches release tags like v1.2, 1.2.3, v2.0.0.
var versionTag = regexp.MustCompile(`^v?\d+\.\d+(\.\d+)?$`)

// ScanTags reads release tags from the git repository at dir, newest first.
// Lightweight and annotated tags are both considered; anything that does not
// look like a release tag is skipped.
func ScanTags(dir string) ([]string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, derrors.TagScanError(err)
	}
	tags, err := repo.Tags()
	if err != nil {
		return nil, derrors.TagScanError(err)
	}
	var found []string
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		if name := ref.Name().Short(); versionTag.MatchString(name) {
			found = append(found, name)
		}
		return nil
	})
	if err != nil {
		return nil, derrors.TagScanError(err)
	}
	sortNewestFirst(found)
	return found, nil
}

// Scan merges the repository's release tags into the set and returns the
// versions that were not present before.
func (s *Set) Scan(dir string) ([]string, error) {
	tags, err := ScanTags(dir)
	if err != nil {
		return nil, err
	}
	var added []string
	for _, tag := range tags {
		if _, ok := s.Find(tag); ok {
			continue
		}
		s.Add(tag, tag)
		added = append(added, tag)
	}
	return added, nil
}
