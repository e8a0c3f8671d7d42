// Package artifact holds the two generated files of a run, the program
// (SOURCE) and its test (TEST), and the revision history of their content.
package artifact

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Role names which of the two files an artifact is.
type Role string

const (
	RoleSource Role = "SOURCE"
	RoleTest   Role = "TEST"
)

func (r Role) Valid() bool { return r == RoleSource || r == RoleTest }

// Artifact is one generated file. Content is replaced wholesale on every
// patch; Revision counts replacements and has no effect on control flow.
type Artifact struct {
	Role     Role     `json:"role"`
	Filename string   `json:"filename"`
	Content  string   `json:"content"`
	Packages []string `json:"packages,omitempty"`
	Revision int      `json:"revision"`
}

// Module is the filename without directory and extension, the name other
// files import the artifact by.
func (a Artifact) Module() string {
	base := path.Base(strings.ReplaceAll(a.Filename, `\`, "/"))
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// Clone returns a copy that shares no slices with a.
func (a Artifact) Clone() Artifact {
	if a.Packages != nil {
		a.Packages = append([]string(nil), a.Packages...)
	}
	return a
}

var (
	ErrExists  = errors.New("artifact: role already has an artifact")
	ErrMissing = errors.New("artifact: no artifact for role")
)

// Store keeps at most one artifact per role. It is owned by a single run and
// is not safe for concurrent use.
type Store struct {
	items map[Role]Artifact
}

func NewStore() *Store {
	return &Store{items: make(map[Role]Artifact, 2)}
}

// Create adds the first revision of a role's artifact.
func (s *Store) Create(a Artifact) (Artifact, error) {
	if !a.Role.Valid() {
		return Artifact{}, fmt.Errorf("artifact: invalid role %q", a.Role)
	}
	if strings.TrimSpace(a.Filename) == "" {
		return Artifact{}, fmt.Errorf("artifact: %s has no filename", a.Role)
	}
	if _, ok := s.items[a.Role]; ok {
		return Artifact{}, fmt.Errorf("%w: %s", ErrExists, a.Role)
	}
	a = a.Clone()
	a.Revision = 1
	s.items[a.Role] = a
	return a.Clone(), nil
}

// Get returns a copy of the role's artifact.
func (s *Store) Get(role Role) (Artifact, bool) {
	a, ok := s.items[role]
	if !ok {
		return Artifact{}, false
	}
	return a.Clone(), true
}

// Patch replaces the content of the role's artifact and bumps its revision.
func (s *Store) Patch(role Role, content string) (Artifact, error) {
	a, ok := s.items[role]
	if !ok {
		return Artifact{}, fmt.Errorf("%w: %s", ErrMissing, role)
	}
	a.Content = content
	a.Revision++
	s.items[role] = a
	return a.Clone(), nil
}

// Source and Test return the current artifacts, zero values when absent.
func (s *Store) Source() Artifact {
	a, _ := s.Get(RoleSource)
	return a
}

func (s *Store) Test() Artifact {
	a, _ := s.Get(RoleTest)
	return a
}
