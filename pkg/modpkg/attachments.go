// SPDX-License-Identifier: MPL-2.0

package modpkg

// AttachmentSet collects attachment source paths for a package being authored.
//
// Paths are unique by their exact input value: adding the same path twice is
// a no-op, while two different paths sharing a base filename are both kept
// (Build resolves that collision). The zero value is ready to use.
type AttachmentSet struct {
	paths []string
	seen  map[string]struct{}
}

// Add appends paths in order, skipping duplicates. Once the set holds
// MaxAttachments paths, the next new path is rejected with ErrAttachmentLimit
// and the remaining arguments are not considered. added counts the paths
// actually appended.
func (s *AttachmentSet) Add(paths ...string) (added int, err error) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	for _, p := range paths {
		if _, dup := s.seen[p]; dup {
			continue
		}
		if len(s.paths) >= MaxAttachments {
			return added, ErrAttachmentLimit
		}
		s.seen[p] = struct{}{}
		s.paths = append(s.paths, p)
		added++
	}
	return added, nil
}

// Paths returns a copy of the collected paths in insertion order.
func (s *AttachmentSet) Paths() []string {
	return append([]string(nil), s.paths...)
}

// Len returns the number of collected paths.
func (s *AttachmentSet) Len() int {
	return len(s.paths)
}

// Remaining returns how many more paths can be added.
func (s *AttachmentSet) Remaining() int {
	return MaxAttachments - len(s.paths)
}
