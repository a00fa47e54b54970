package agent

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// pythonHarness loads parser.py, calls parse on the document named in argv[1]
// and prints the resulting DataFrame as CSV.
const pythonHarness = `import importlib.util
import sys

spec = importlib.util.spec_from_file_location("candidate", "parser.py")
module = importlib.util.module_from_spec(spec)
spec.loader.exec_module(module)

df = module.parse(sys.argv[1])
if df is None:
    sys.stderr.write("parse() returned None\n")
    sys.exit(3)
df.to_csv(sys.stdout, index=False)
`

const (
	harnessFile = "harness.py"
	parserFile  = "parser.py"
)

// stageExecution lays out a private directory holding the candidate, the
// harness and a copy of the sample document. It returns the directory and the
// document's file name inside it.
func stageExecution(code, samplePath string) (dir, docName string, err error) {
	dir, err = os.MkdirTemp("", "parsegen-exec-*")
	if err != nil {
		return "", "", err
	}
	defer func() {
		if err != nil {
			os.RemoveAll(dir)
		}
	}()

	// Readable by the unprivileged sandbox user.
	if err := os.Chmod(dir, 0o755); err != nil {
		return "", "", err
	}
	if err := os.WriteFile(filepath.Join(dir, parserFile), []byte(code), 0o644); err != nil {
		return "", "", err
	}
	if err := os.WriteFile(filepath.Join(dir, harnessFile), []byte(pythonHarness), 0o644); err != nil {
		return "", "", err
	}

	docName = "sample" + filepath.Ext(samplePath)
	if err := copyFile(samplePath, filepath.Join(dir, docName)); err != nil {
		return "", "", fmt.Errorf("stage sample document: %w", err)
	}
	return dir, docName, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
