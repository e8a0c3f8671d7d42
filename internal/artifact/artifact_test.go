package artifact

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreLifecycle(t *testing.T) {
	s := NewStore()
	src, err := s.Create(Artifact{Role: RoleSource, Filename: "calc.py", Content: "x", Packages: []string{"numpy"}})
	require.NoError(t, err)
	assert.Equal(t, 1, src.Revision)

	_, err = s.Create(Artifact{Role: RoleSource, Filename: "other.py"})
	assert.True(t, errors.Is(err, ErrExists))

	patched, err := s.Patch(RoleSource, "y")
	require.NoError(t, err)
	assert.Equal(t, "y", patched.Content)
	assert.Equal(t, 2, patched.Revision)
	assert.Equal(t, []string{"numpy"}, patched.Packages)

	_, err = s.Patch(RoleTest, "z")
	assert.True(t, errors.Is(err, ErrMissing))
	assert.Equal(t, Artifact{}, s.Test())
}

func TestStoreReturnsCopies(t *testing.T) {
	s := NewStore()
	_, err := s.Create(Artifact{Role: RoleSource, Filename: "a.py", Packages: []string{"a"}})
	require.NoError(t, err)
	got := s.Source()
	got.Packages[0] = "mutated"
	assert.Equal(t, []string{"a"}, s.Source().Packages)
}

func TestCreateValidates(t *testing.T) {
	s := NewStore()
	_, err := s.Create(Artifact{Role: "DOCS", Filename: "a.md"})
	assert.Error(t, err)
	_, err = s.Create(Artifact{Role: RoleTest, Filename: "  "})
	assert.Error(t, err)
}

func TestModule(t *testing.T) {
	cases := map[string]string{
		"calc.py":         "calc",
		"pkg/calc.py":     "calc",
		`dir\sub\main.go`: "main",
		"Makefile":        "Makefile",
		"archive.tar.gz":  "archive.tar",
	}
	for in, want := range cases {
		assert.Equal(t, want, Artifact{Filename: in}.Module(), in)
	}
}
