package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestLayout_Resolve(t *testing.T) {
	root := t.TempDir()
	l := Layout{DataRoot: root, OutputDir: filepath.Join(root, "out")}

	touch(t, filepath.Join(root, "icici", "icici_sample.pdf"))
	touch(t, filepath.Join(root, "icici", "icici_sample.csv"))
	touch(t, filepath.Join(root, "icici", "sample.pdf"))
	touch(t, filepath.Join(root, "icici", "sample.csv"))

	touch(t, filepath.Join(root, "sbi", "sample.pdf"))
	touch(t, filepath.Join(root, "sbi", "sample.csv"))

	touch(t, filepath.Join(root, "txtbank", "txtbank_sample.txt"))
	touch(t, filepath.Join(root, "txtbank", "txtbank_sample.csv"))

	in, err := l.Resolve("icici")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "icici", "icici_sample.pdf"), in.Document)
	assert.Equal(t, filepath.Join(root, "icici", "icici_sample.csv"), in.Expected)

	in, err = l.Resolve("sbi")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "sbi", "sample.pdf"), in.Document)

	in, err = l.Resolve("txtbank")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "txtbank", "txtbank_sample.txt"), in.Document)
}

func TestLayout_ResolveMixedNames(t *testing.T) {
	root := t.TempDir()
	l := Layout{DataRoot: root}

	touch(t, filepath.Join(root, "icici", "icici_sample.pdf"))
	touch(t, filepath.Join(root, "icici", "sample.csv"))
	touch(t, filepath.Join(root, "sbi", "sample.pdf"))
	touch(t, filepath.Join(root, "sbi", "sbi_sample.csv"))

	in, err := l.Resolve("icici")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "icici", "icici_sample.pdf"), in.Document)
	assert.Equal(t, filepath.Join(root, "icici", "sample.csv"), in.Expected)

	in, err = l.Resolve("sbi")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "sbi", "sample.pdf"), in.Document)
	assert.Equal(t, filepath.Join(root, "sbi", "sbi_sample.csv"), in.Expected)

	targets, err := l.ListTargets()
	require.NoError(t, err)
	assert.Equal(t, []string{"icici", "sbi"}, targets)
}

func TestLayout_ResolveMissing(t *testing.T) {
	root := t.TempDir()
	l := Layout{DataRoot: root}
	touch(t, filepath.Join(root, "hdfc", "hdfc_sample.pdf")) // no CSV

	_, err := l.Resolve("hdfc")
	require.ErrorIs(t, err, ErrInputsMissing)
	assert.Contains(t, err.Error(), filepath.Join(root, "hdfc", "hdfc_sample.csv"))
	assert.Contains(t, err.Error(), filepath.Join(root, "hdfc", "sample.csv"))

	for _, bad := range []string{"", "..", "a/b"} {
		_, err := l.Resolve(bad)
		assert.Error(t, err, bad)
	}
}

func TestLayout_OutputPath(t *testing.T) {
	l := Layout{OutputDir: "custom_parsers"}
	assert.Equal(t, filepath.Join("custom_parsers", "icici_parser.py"), l.OutputPath("icici", ""))
	assert.Equal(t, filepath.Join("custom_parsers", "icici_parser.rb"), l.OutputPath("icici", ".rb"))

	l.OutputDir = filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, l.EnsureOutputDir())
	assert.DirExists(t, l.OutputDir)
}

func TestLayout_ListTargets(t *testing.T) {
	root := t.TempDir()
	l := Layout{DataRoot: root}

	for _, target := range []string{"sbi", "icici", "archived", ".cache"} {
		touch(t, filepath.Join(root, target, "sample.pdf"))
		touch(t, filepath.Join(root, target, "sample.csv"))
	}
	touch(t, filepath.Join(root, "incomplete", "sample.pdf"))
	touch(t, filepath.Join(root, "README.md"))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("archived/\n"), 0644))

	targets, err := l.ListTargets()
	require.NoError(t, err)
	assert.Equal(t, []string{"icici", "sbi"}, targets)
}

func TestLayout_ListTargetsMissingRoot(t *testing.T) {
	_, err := Layout{DataRoot: filepath.Join(t.TempDir(), "nope")}.ListTargets()
	assert.ErrorContains(t, err, "failed to read data root")
}
