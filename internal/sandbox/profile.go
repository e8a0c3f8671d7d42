package sandbox

import (
	"bytes"
	"fmt"
	"path"
	"sort"
	"strings"
	"text/template"
	"time"

	"greycells/internal/artifact"
)

// Profile describes how one language is tested. Commands, prelude and extra
// files are text/template strings over TemplateData.
type Profile struct {
	Name string `yaml:"name" json:"name" validate:"required"`
	// Language, Framework and the default file names are what the
	// generating roles are told to write.
	Language   string `yaml:"language,omitempty" json:"language,omitempty"`
	Framework  string `yaml:"framework,omitempty" json:"framework,omitempty"`
	SourceFile string `yaml:"source_file,omitempty" json:"source_file,omitempty"`
	TestFile   string `yaml:"test_file,omitempty" json:"test_file,omitempty"`
	// Install runs only when the source declares packages.
	Install string `yaml:"install,omitempty" json:"install,omitempty"`
	Test    string `yaml:"test" json:"test" validate:"required"`
	// Prelude is prepended to the test file, e.g. the import of the source.
	Prelude string `yaml:"prelude,omitempty" json:"prelude,omitempty"`
	// Manifest names the packages file written next to the sources.
	Manifest string            `yaml:"manifest,omitempty" json:"manifest,omitempty"`
	Files    map[string]string `yaml:"files,omitempty" json:"files,omitempty"`
}

// TemplateData is what profile templates see.
type TemplateData struct {
	SourceFile string
	TestFile   string
	Module     string
	TestModule string
	Packages   []string
	Manifest   string
}

var templateFuncs = template.FuncMap{
	"join":  strings.Join,
	"quote": shellQuote,
	"quoteAll": func(items []string) string {
		out := make([]string, len(items))
		for i, s := range items {
			out[i] = shellQuote(s)
		}
		return strings.Join(out, " ")
	},
}

// Builtin profiles.
var Builtin = map[string]Profile{
	"python": {
		Name:       "python",
		Language:   "Python",
		Framework:  "unittest",
		SourceFile: "main.py",
		TestFile:   "test.py",
		Install:    "python -m pip install --quiet --disable-pip-version-check -r {{quote .Manifest}}",
		Test:       "python -m unittest {{quote .TestFile}}",
		Prelude:    "import unittest\nfrom {{.Module}} import *\n\n",
		Manifest:   "requirements.txt",
	},
	"pytest": {
		Name:       "pytest",
		Language:   "Python",
		Framework:  "pytest",
		SourceFile: "main.py",
		TestFile:   "test_main.py",
		Install:    "python -m pip install --quiet --disable-pip-version-check -r {{quote .Manifest}}",
		Test:       "python -m pytest -q {{quote .TestFile}}",
		Prelude:    "from {{.Module}} import *\n\n",
		Manifest:   "requirements.txt",
	},
	"go": {
		Name:       "go",
		Language:   "Go",
		Framework:  "the standard testing package, in package main",
		SourceFile: "main.go",
		TestFile:   "main_test.go",
		Install:    "go get {{quoteAll .Packages}}",
		Test:       "go test ./...",
		Files:      map[string]string{"go.mod": "module sandbox\n\ngo 1.22\n"},
	},
}

// Names lists the profile names of profiles, sorted.
func Names(profiles map[string]Profile) []string {
	out := make([]string, 0, len(profiles))
	for k := range profiles {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (p Profile) data(source, test artifact.Artifact) TemplateData {
	return TemplateData{
		SourceFile: source.Filename,
		TestFile:   test.Filename,
		Module:     source.Module(),
		TestModule: test.Module(),
		Packages:   source.Packages,
		Manifest:   p.Manifest,
	}
}

func (p Profile) render(name, text string, data TemplateData) (string, error) {
	if text == "" {
		return "", nil
	}
	tpl, err := template.New(p.Name + "/" + name).Funcs(templateFuncs).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("sandbox: profile %s: %s template: %w", p.Name, name, err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("sandbox: profile %s: %s template: %w", p.Name, name, err)
	}
	return buf.String(), nil
}

// PreludeFor renders the prelude alone, as TestContent would insert it.
func (p Profile) PreludeFor(source artifact.Artifact) (string, error) {
	return p.render("prelude", p.Prelude, p.data(source, artifact.Artifact{Filename: p.TestFile}))
}

// TestContent is the test file as it is written to disk: prelude plus the
// generated test.
func (p Profile) TestContent(source, test artifact.Artifact) (string, error) {
	prelude, err := p.render("prelude", p.Prelude, p.data(source, test))
	if err != nil {
		return "", err
	}
	return prelude + test.Content, nil
}

// ManifestContent is the packages file, one package per line.
func ManifestContent(packages []string) string {
	if len(packages) == 0 {
		return ""
	}
	return strings.Join(packages, "\n") + "\n"
}

// Job builds the execution job for source and test.
func (p Profile) Job(source, test artifact.Artifact, timeout, installTimeout time.Duration) (Job, error) {
	for _, a := range []artifact.Artifact{source, test} {
		if err := checkRelPath(a.Filename); err != nil {
			return Job{}, err
		}
	}
	if source.Filename == test.Filename {
		return Job{}, fmt.Errorf("sandbox: source and test share the filename %q", source.Filename)
	}
	data := p.data(source, test)
	testContent, err := p.TestContent(source, test)
	if err != nil {
		return Job{}, err
	}
	files := map[string]string{
		source.Filename: source.Content,
		test.Filename:   testContent,
	}
	for name, tpl := range p.Files {
		if err := checkRelPath(name); err != nil {
			return Job{}, err
		}
		body, err := p.render("file "+name, tpl, data)
		if err != nil {
			return Job{}, err
		}
		if _, taken := files[name]; !taken {
			files[name] = body
		}
	}
	job := Job{
		Files:            files,
		Packages:         source.Packages,
		TimeoutMS:        timeout.Milliseconds(),
		InstallTimeoutMS: installTimeout.Milliseconds(),
	}
	if len(source.Packages) > 0 {
		if p.Manifest != "" {
			files[p.Manifest] = ManifestContent(source.Packages)
		}
		if job.Install, err = p.render("install", p.Install, data); err != nil {
			return Job{}, err
		}
	}
	if job.Command, err = p.render("test", p.Test, data); err != nil {
		return Job{}, err
	}
	if strings.TrimSpace(job.Command) == "" {
		return Job{}, fmt.Errorf("sandbox: profile %s has no test command", p.Name)
	}
	return job, nil
}

func checkRelPath(name string) error {
	clean := path.Clean(strings.ReplaceAll(name, `\`, "/"))
	if name == "" || path.IsAbs(clean) || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("sandbox: file name %q escapes the sandbox", name)
	}
	return nil
}

func shellQuote(s string) string {
	if s != "" && strings.IndexFunc(s, func(r rune) bool {
		return !(r == '-' || r == '_' || r == '.' || r == '/' || r == '=' || r == ':' || r == '+' || r == '@' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
