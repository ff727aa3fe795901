package testsupport

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// WriteRender writes a stand-in for a rendered file: a RIFF/WAVE preamble
// followed by dataBytes of silence. The content is never decoded; it only
// has to exist and be readable.
func WriteRender(t testing.TB, path string, dataBytes int) {
	t.Helper()
	if dataBytes < 0 {
		dataBytes = 0
	}
	buf := make([]byte, 12, 12+dataBytes)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(4+dataBytes))
	copy(buf[8:12], "WAVE")
	buf = append(buf, make([]byte, dataBytes)...)
	write(t, path, buf)
}

// WriteText writes content to path, creating parent directories.
func WriteText(t testing.TB, path, content string) {
	t.Helper()
	write(t, path, []byte(content))
}

func write(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
