package cli

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/matzehuels/maskstack/pkg/cache"
	pkgerrors "github.com/matzehuels/maskstack/pkg/errors"
	"github.com/matzehuels/maskstack/pkg/pipeline"
)

// writeMaskDoc writes a minimal mask document fixture: the nine header lines
// followed by the given slice block lines.
func writeMaskDoc(t *testing.T, dir, name, caseName string, w, h, start, end int, body ...string) string {
	t.Helper()
	prefix, _, _ := strings.Cut(caseName, "_")
	lines := []string{
		caseName,
		prefix,
		"LEFT",
		"0",
		strconv.Itoa(w),
		strconv.Itoa(h),
		strconv.Itoa(start),
		strconv.Itoa(end),
		"Femur",
	}
	lines = append(lines, body...)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func testRunner(t *testing.T, c *CLI) *pipeline.Runner {
	t.Helper()
	runner := pipeline.NewRunner(cache.NewNullCache(), nil, c.Logger)
	t.Cleanup(func() { runner.Close() })
	return runner
}

func TestAssembleTree(t *testing.T) {
	dir := t.TempDir()
	writeMaskDoc(t, dir, "a.txt", "9001695_V01_LEFT", 8, 12, 34, 35,
		"34", "{", "13 2.4", "}",
		"35", "{", "13 3.5", "}")
	writeMaskDoc(t, dir, "b.txt", "9002430_V03_RIGHT", 8, 12, 40, 40,
		"40", "{", "10 3.5", "}")

	c := testCLI()
	runner := testRunner(t, c)

	tree, err := c.assembleTree(withLogger(context.Background(), c.Logger), runner, dir, c.baseOptions())
	if err != nil {
		t.Fatalf("assembleTree() error: %v", err)
	}

	if got, want := tree.Patients(), []string{"9001695", "9002430"}; !slices.Equal(got, want) {
		t.Errorf("patients = %v, want %v", got, want)
	}
	if got, want := tree["9001695"]["V01"].Numbers(), []int{34, 35}; !slices.Equal(got, want) {
		t.Errorf("slices = %v, want %v", got, want)
	}
	if _, ok := tree["9002430"]["V03"][40]; !ok {
		t.Error("slice 40 missing from 9002430/V03")
	}
}

func TestAssembleTreeSkipsBadDocuments(t *testing.T) {
	dir := t.TempDir()
	writeMaskDoc(t, dir, "good.txt", "9001695_V01_LEFT", 8, 12, 34, 34,
		"34", "{", "13 2.4", "}")
	if err := os.WriteFile(filepath.Join(dir, "bad.txt"), []byte("too\nshort\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := testCLI()
	runner := testRunner(t, c)

	tree, err := c.assembleTree(withLogger(context.Background(), c.Logger), runner, dir, c.baseOptions())
	if err != nil {
		t.Fatalf("assembleTree() should skip the bad document, got error: %v", err)
	}
	if got, want := tree.Patients(), []string{"9001695"}; !slices.Equal(got, want) {
		t.Errorf("patients = %v, want %v", got, want)
	}
}

func TestAssembleTreeNoMatches(t *testing.T) {
	c := testCLI()
	runner := testRunner(t, c)

	_, err := c.assembleTree(withLogger(context.Background(), c.Logger), runner, t.TempDir(), c.baseOptions())
	if err == nil {
		t.Fatal("assembleTree() should fail for an empty directory")
	}
	if !pkgerrors.Is(err, pkgerrors.ErrCodeFileNotFound) {
		t.Errorf("code = %v, want %v", pkgerrors.GetCode(err), pkgerrors.ErrCodeFileNotFound)
	}
}

func TestAssembleTreeNothingPlaced(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.txt"), []byte("too\nshort\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := testCLI()
	runner := testRunner(t, c)

	_, err := c.assembleTree(withLogger(context.Background(), c.Logger), runner, dir, c.baseOptions())
	if err == nil {
		t.Fatal("assembleTree() should fail when nothing can be placed")
	}
	if !pkgerrors.Is(err, pkgerrors.ErrCodeInvalidInput) {
		t.Errorf("code = %v, want %v", pkgerrors.GetCode(err), pkgerrors.ErrCodeInvalidInput)
	}
}

func TestRunTreeDot(t *testing.T) {
	dir := t.TempDir()
	writeMaskDoc(t, dir, "a.txt", "9001695_V01_LEFT", 8, 12, 34, 34,
		"34", "{", "13 2.4", "}")
	out := filepath.Join(t.TempDir(), "cohort.dot")

	c := testCLI()
	if err := c.runTree(withLogger(context.Background(), c.Logger), dir, c.baseOptions(), "dot", out, false, true); err != nil {
		t.Fatalf("runTree() error: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	dot := string(data)
	if !strings.Contains(dot, "digraph") {
		t.Errorf("output should be a DOT document, got:\n%s", dot)
	}
	if !strings.Contains(dot, "9001695") {
		t.Errorf("output should mention the patient, got:\n%s", dot)
	}
}

func TestRunTreeUnknownFormat(t *testing.T) {
	c := testCLI()
	err := c.runTree(withLogger(context.Background(), c.Logger), t.TempDir(), c.baseOptions(), "pdf", "", false, true)
	if err == nil {
		t.Fatal("runTree() should reject an unknown format")
	}
	if !pkgerrors.Is(err, pkgerrors.ErrCodeUnsupported) {
		t.Errorf("code = %v, want %v", pkgerrors.GetCode(err), pkgerrors.ErrCodeUnsupported)
	}
}
