package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/ralt/spksearch/internal/models"
)

var payload = []byte(`{"packages":[{"package":"transmission","version":"3.00-19"}]}`)

func TestDetectAndDecompressGzip(t *testing.T) {
	compressed, err := GzipCompress(payload)
	if err != nil {
		t.Fatalf("GzipCompress failed: %v", err)
	}

	if got := DetectCompression(compressed); got != CompressionGzip {
		t.Fatalf("DetectCompression = %s, want gzip", got)
	}

	out, err := Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Errorf("Decompress returned %q", out)
	}
}

func TestDetectAndDecompressZstd(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd.NewWriter failed: %v", err)
	}
	compressed := enc.EncodeAll(payload, nil)
	enc.Close()

	if got := DetectCompression(compressed); got != CompressionZstd {
		t.Fatalf("DetectCompression = %s, want zstd", got)
	}

	out, err := Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Errorf("Decompress returned %q", out)
	}
}

func TestDetectAndDecompressXz(t *testing.T) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("xz.NewWriter failed: %v", err)
	}
	w.Write(payload)
	if err := w.Close(); err != nil {
		t.Fatalf("xz close failed: %v", err)
	}

	if got := DetectCompression(buf.Bytes()); got != CompressionXz {
		t.Fatalf("DetectCompression = %s, want xz", got)
	}

	out, err := Decompress(buf.Bytes())
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Errorf("Decompress returned %q", out)
	}
}

func TestDecompressPlain(t *testing.T) {
	out, err := Decompress(payload)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Errorf("plain payload was modified")
	}
}

func TestCacheKeyStable(t *testing.T) {
	a := CacheKey("POST", "http://packages.synocommunity.com", "arch=x86_64")
	b := CacheKey("POST", "http://packages.synocommunity.com", "arch=x86_64")
	c := CacheKey("POST", "http://packages.synocommunity.com", "arch=armada375")

	if a != b {
		t.Errorf("same inputs produced different keys")
	}
	if a == c {
		t.Errorf("different inputs produced the same key")
	}
	if len(a) != 64 {
		t.Errorf("expected a sha256 hex key, got %q", a)
	}
}

func TestCalculateChecksum(t *testing.T) {
	tests := map[string]int{"md5": 32, "sha1": 40, "sha256": 64, "sha512": 128, "unknown": 64}
	for hashType, length := range tests {
		if got := CalculateChecksum(payload, hashType); len(got) != length {
			t.Errorf("CalculateChecksum(%s) length = %d, want %d", hashType, len(got), length)
		}
	}
}

func TestWriteFileCreatesDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "a", "b", "entry.gz")

	if err := WriteFile(path, payload, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("file content mismatch")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the final file, found %d entries", len(entries))
	}
}

func TestPackageIdentity(t *testing.T) {
	withID := models.Package{ID: "Transmission", Name: "Transmission BT"}
	sameID := models.Package{ID: "transmission", Name: "Other"}
	noID := models.Package{Name: "Transmission BT"}

	if PackageIdentity(withID) != PackageIdentity(sameID) {
		t.Errorf("ids should compare case-insensitively")
	}
	if PackageIdentity(withID) == PackageIdentity(noID) {
		t.Errorf("id and name keys must not collide")
	}
}
