package chunkhttp

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tanq16/chunkr/internal/utils"
)

func writeChunkFiles(t *testing.T, outputPath string, plan []Chunk, content []byte) {
	t.Helper()
	for _, c := range plan {
		if err := os.WriteFile(utils.ChunkPath(outputPath, c.Index), content[c.Start:c.End+1], 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestAssemble(t *testing.T) {
	content := testContent(1000)
	plan := Plan(int64(len(content)), 3)
	outputPath := filepath.Join(t.TempDir(), "out.bin")
	writeChunkFiles(t, outputPath, plan, content)

	if err := Assemble(plan, outputPath, nil); err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	got, _ := os.ReadFile(outputPath)
	if !bytes.Equal(got, content) {
		t.Fatalf("assembled content mismatch: got %d bytes", len(got))
	}
	for _, c := range plan {
		if _, err := os.Stat(utils.ChunkPath(outputPath, c.Index)); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("chunk %d temp file not removed", c.Index)
		}
	}
}

func TestAssemble_OverlongChunkFile(t *testing.T) {
	content := testContent(100)
	plan := Plan(100, 2)
	outputPath := filepath.Join(t.TempDir(), "out.bin")
	writeChunkFiles(t, outputPath, plan, content)
	extra := append(append([]byte{}, content[:50]...), 0xde, 0xad)
	if err := os.WriteFile(utils.ChunkPath(outputPath, 0), extra, 0644); err != nil {
		t.Fatal(err)
	}

	if err := Assemble(plan, outputPath, nil); err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	got, _ := os.ReadFile(outputPath)
	if !bytes.Equal(got, content) {
		t.Error("extra bytes in chunk file leaked into output")
	}
}

func TestAssemble_MissingChunkFile(t *testing.T) {
	content := testContent(300)
	plan := Plan(300, 3)
	outputPath := filepath.Join(t.TempDir(), "out.bin")
	writeChunkFiles(t, outputPath, plan, content)
	if err := os.Remove(utils.ChunkPath(outputPath, 1)); err != nil {
		t.Fatal(err)
	}

	if err := Assemble(plan, outputPath, nil); err == nil {
		t.Fatal("Assemble() succeeded with a missing chunk file")
	}
	// Chunk 0 was copied before the failure; chunk 2 was never touched.
	if _, err := os.Stat(utils.ChunkPath(outputPath, 0)); !errors.Is(err, os.ErrNotExist) {
		t.Error("chunk 0 temp file kept after copy")
	}
	if _, err := os.Stat(utils.ChunkPath(outputPath, 2)); err != nil {
		t.Errorf("chunk 2 temp file removed: %v", err)
	}
}

func TestAssemble_ShortChunkFile(t *testing.T) {
	content := testContent(200)
	plan := Plan(200, 2)
	outputPath := filepath.Join(t.TempDir(), "out.bin")
	writeChunkFiles(t, outputPath, plan, content)
	if err := os.WriteFile(utils.ChunkPath(outputPath, 1), content[100:150], 0644); err != nil {
		t.Fatal(err)
	}

	if err := Assemble(plan, outputPath, nil); err == nil {
		t.Fatal("Assemble() accepted a short chunk file")
	}
}

func TestAssemble_ManifestRecovery(t *testing.T) {
	content := testContent(900)
	plan := Plan(900, 3)
	outputPath := filepath.Join(t.TempDir(), "out.bin")
	manifestPath := utils.ManifestPath(outputPath)
	writeChunkFiles(t, outputPath, plan, content)

	// Simulate a crash after chunk 0 was copied and its temp file deleted.
	if err := os.WriteFile(outputPath, append(append([]byte{}, content[:300]...), make([]byte, 600)...), 0644); err != nil {
		t.Fatal(err)
	}
	manifest := NewManifest(manifestPath, "http://example.test/f", 900, 3)
	if err := manifest.MarkCopied(0); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(utils.ChunkPath(outputPath, 0)); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadManifest(manifestPath)
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}
	if !manifest.Matches(loaded) {
		t.Fatal("reloaded manifest does not match")
	}
	if diff := cmp.Diff([]int{0}, loaded.Copied); diff != "" {
		t.Errorf("copied mismatch (-want +got):\n%s", diff)
	}

	if err := Assemble(plan, outputPath, loaded); err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	got, _ := os.ReadFile(outputPath)
	if !bytes.Equal(got, content) {
		t.Error("recovered output differs from source")
	}
	if _, err := os.Stat(manifestPath); !errors.Is(err, os.ErrNotExist) {
		t.Error("manifest not removed after assembly")
	}
}

func TestManifest_Matches(t *testing.T) {
	base := NewManifest("", "http://a/f", 100, 4)
	tests := []struct {
		name  string
		other *Manifest
		want  bool
	}{
		{"same", NewManifest("", "http://a/f", 100, 4), true},
		{"other url", NewManifest("", "http://b/f", 100, 4), false},
		{"other size", NewManifest("", "http://a/f", 101, 4), false},
		{"other chunks", NewManifest("", "http://a/f", 100, 2), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Matches(tt.other); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDownload_ResumesInterruptedAssembly(t *testing.T) {
	content := testContent(8000)
	srv := newTestServer(t, content, true, nil)
	outputPath := filepath.Join(t.TempDir(), "out.bin")
	plan := Plan(8000, 4)
	writeChunkFiles(t, outputPath, plan, content)

	// Chunks 0 and 1 reached the output before the previous run stopped.
	partial := make([]byte, 8000)
	copy(partial, content[:4000])
	if err := os.WriteFile(outputPath, partial, 0644); err != nil {
		t.Fatal(err)
	}
	manifest := NewManifest(utils.ManifestPath(outputPath), srv.URL, 8000, 4)
	for _, i := range []int{0, 1} {
		if err := manifest.MarkCopied(i); err != nil {
			t.Fatal(err)
		}
		os.Remove(utils.ChunkPath(outputPath, i))
	}

	err := newTestDownloader().Download(t.Context(), Request{URL: srv.URL, OutputPath: outputPath, Resume: true, Parallelism: 4})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if n := srv.gets.Load(); n != 0 {
		t.Errorf("GET requests = %d, want 0", n)
	}
	got, _ := os.ReadFile(outputPath)
	if !bytes.Equal(got, content) {
		t.Error("output differs after resumed assembly")
	}
}
