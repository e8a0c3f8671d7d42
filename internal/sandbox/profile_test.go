package sandbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greycells/internal/artifact"
)

func sumArtifacts(packages ...string) (artifact.Artifact, artifact.Artifact) {
	src := artifact.Artifact{Role: artifact.RoleSource, Filename: "main.py", Content: "def add(a, b):\n    return a + b\n", Packages: packages}
	test := artifact.Artifact{Role: artifact.RoleTest, Filename: "test.py", Content: "class T(unittest.TestCase):\n    pass\n"}
	return src, test
}

func TestPythonJob(t *testing.T) {
	src, test := sumArtifacts("requests", "numpy")
	job, err := Builtin["python"].Job(src, test, 30*time.Second, 2*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, src.Content, job.Files["main.py"])
	assert.Equal(t, "import unittest\nfrom main import *\n\n"+test.Content, job.Files["test.py"])
	assert.Equal(t, "requests\nnumpy\n", job.Files["requirements.txt"])
	assert.Equal(t, "python -m pip install --quiet --disable-pip-version-check -r requirements.txt", job.Install)
	assert.Equal(t, "python -m unittest test.py", job.Command)
	assert.Equal(t, int64(30000), job.TimeoutMS)
	assert.Equal(t, int64(120000), job.InstallTimeoutMS)
}

func TestJobWithoutPackages(t *testing.T) {
	src, test := sumArtifacts()
	job, err := Builtin["python"].Job(src, test, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, job.Install)
	assert.NotContains(t, job.Files, "requirements.txt")
	assert.Len(t, job.Files, 2)
	assert.Equal(t, defaultTimeout, job.timeout())
}

func TestGoJobQuotesPackages(t *testing.T) {
	src := artifact.Artifact{Role: artifact.RoleSource, Filename: "calc.go", Content: "package sandbox", Packages: []string{"github.com/google/uuid", "weird pkg"}}
	test := artifact.Artifact{Role: artifact.RoleTest, Filename: "calc_test.go", Content: "package sandbox"}
	job, err := Builtin["go"].Job(src, test, time.Second, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "go get github.com/google/uuid 'weird pkg'", job.Install)
	assert.Contains(t, job.Files["go.mod"], "module sandbox")
	assert.Equal(t, "package sandbox", job.Files["calc_test.go"])
}

func TestJobRejectsBadNames(t *testing.T) {
	src, test := sumArtifacts()
	for _, name := range []string{"../evil.py", "/etc/passwd", "", ".."} {
		bad := src
		bad.Filename = name
		_, err := Builtin["python"].Job(bad, test, 0, 0)
		assert.Error(t, err, name)
	}
	same := test
	same.Filename = src.Filename
	_, err := Builtin["python"].Job(src, same, 0, 0)
	assert.Error(t, err)

	sub := src
	sub.Filename = "pkg/main.py"
	_, err = Builtin["python"].Job(sub, test, 0, 0)
	assert.NoError(t, err)
}

func TestProfileTemplateErrors(t *testing.T) {
	src, test := sumArtifacts()
	_, err := Profile{Name: "broken", Test: "{{.Nope}}"}.Job(src, test, 0, 0)
	assert.Error(t, err)
	_, err = Profile{Name: "empty", Test: "   "}.Job(src, test, 0, 0)
	assert.Error(t, err)
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "plain-1.0", shellQuote("plain-1.0"))
	assert.Equal(t, "''", shellQuote(""))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
	assert.Equal(t, "'a;rm -rf'", shellQuote("a;rm -rf"))
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"go", "pytest", "python"}, Names(Builtin))
}
