package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	pkgerrors "github.com/matzehuels/maskstack/pkg/errors"
	"github.com/matzehuels/maskstack/pkg/mask"
)

func TestRunDecodeJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeMaskDoc(t, dir, "scan.txt", "9001695_V01_LEFT", 8, 12, 34, 34,
		"34", "{", "13 2.4", "}")
	out := filepath.Join(t.TempDir(), "scan.json")

	c := testCLI()
	if err := c.runDecode(context.Background(), path, c.baseOptions(), true, out, true); err != nil {
		t.Fatalf("runDecode() error: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var doc mask.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}

	if doc.Header.CaseName != "9001695_V01_LEFT" {
		t.Errorf("case name = %q, want 9001695_V01_LEFT", doc.Header.CaseName)
	}
	if len(doc.Slices) != 1 || doc.Slices[0].Number != 34 {
		t.Fatalf("slices = %+v, want one block numbered 34", doc.Slices)
	}
	if doc.Stop != mask.StopEndSlice {
		t.Errorf("stop = %v, want %v", doc.Stop, mask.StopEndSlice)
	}
}

func TestRunDecodeMissingFile(t *testing.T) {
	c := testCLI()
	err := c.runDecode(context.Background(), filepath.Join(t.TempDir(), "absent.txt"), c.baseOptions(), false, "", true)
	if err == nil {
		t.Fatal("runDecode() should fail for a missing file")
	}
	if !pkgerrors.Is(err, pkgerrors.ErrCodeFileNotFound) {
		t.Errorf("code = %v, want %v", pkgerrors.GetCode(err), pkgerrors.ErrCodeFileNotFound)
	}
}
