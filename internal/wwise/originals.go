package wwise

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// OriginalsPath predicts where Wwise stores an imported file: SFX go under
// <root>/SFX/<subfolder>, voices under <root>/Voices/<language>/<subfolder>.
// An empty root yields "".
func OriginalsPath(root, subfolder, audioFile, language string, voice bool) string {
	if strings.TrimSpace(root) == "" || strings.TrimSpace(audioFile) == "" {
		return ""
	}
	sub := filepath.FromSlash(strings.ReplaceAll(subfolder, `\`, "/"))
	base := filepath.Base(filepath.FromSlash(strings.ReplaceAll(audioFile, `\`, "/")))
	if voice {
		return filepath.Join(root, "Voices", language, sub, base)
	}
	return filepath.Join(root, "SFX", sub, base)
}

// CheckOriginal reports WavReplaced when a file already exists at path,
// WavNew when it does not, and WavUnknown when path is empty or unreadable.
func CheckOriginal(path string) WavStatus {
	if path == "" {
		return WavUnknown
	}
	info, err := os.Stat(path)
	switch {
	case err == nil && !info.IsDir():
		return WavReplaced
	case errors.Is(err, fs.ErrNotExist):
		return WavNew
	default:
		return WavUnknown
	}
}
