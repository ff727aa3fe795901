package renderstats

import (
	"errors"
	"fmt"
	"strings"
)

// FileKey opens a new entry; every following key belongs to that file until
// the next FileKey.
const FileKey = "FILE"

// ErrMalformed marks input that does not follow the grammar.
var ErrMalformed = errors.New("malformed render stats")

// Stat is one KEY:value pair attached to a rendered file.
type Stat struct {
	Key   string
	Value string
}

// Entry is a rendered file and its statistics in source order.
type Entry struct {
	File  string
	Stats []Stat
}

// Lookup returns the first value recorded for key.
func (e Entry) Lookup(key string) (string, bool) {
	for _, s := range e.Stats {
		if s.Key == key {
			return s.Value, true
		}
	}
	return "", false
}

// Parse tokenizes "FILE:<path>;<KEY>:<value>;..." into entries. A key runs to
// the first ':' of its token, so values may themselves contain ':' (drive
// letters). The final ';' is optional.
func Parse(input string) ([]Entry, error) {
	var entries []Entry
	pos := 0
	for pos < len(input) {
		end := strings.IndexByte(input[pos:], ';')
		var token string
		if end < 0 {
			token = input[pos:]
			pos = len(input)
		} else {
			token = input[pos : pos+end]
			pos += end + 1
		}
		if strings.TrimSpace(token) == "" {
			continue
		}
		colon := strings.IndexByte(token, ':')
		if colon <= 0 {
			return nil, fmt.Errorf("%w: token %q has no key", ErrMalformed, token)
		}
		key, value := token[:colon], token[colon+1:]
		if key == FileKey {
			if value == "" {
				return nil, fmt.Errorf("%w: empty file path", ErrMalformed)
			}
			entries = append(entries, Entry{File: value})
			continue
		}
		if len(entries) == 0 {
			return nil, fmt.Errorf("%w: key %q before first %s", ErrMalformed, key, FileKey)
		}
		last := &entries[len(entries)-1]
		last.Stats = append(last.Stats, Stat{Key: key, Value: value})
	}
	return entries, nil
}

// Format renders entries back into the wire grammar, terminating every token
// with ';'.
func Format(entries []Entry) (string, error) {
	var b strings.Builder
	for _, e := range entries {
		if e.File == "" || strings.ContainsRune(e.File, ';') {
			return "", fmt.Errorf("%w: file path %q", ErrMalformed, e.File)
		}
		b.WriteString(FileKey)
		b.WriteByte(':')
		b.WriteString(e.File)
		b.WriteByte(';')
		for _, s := range e.Stats {
			if s.Key == "" || s.Key == FileKey || strings.ContainsAny(s.Key, ":;") || strings.ContainsRune(s.Value, ';') {
				return "", fmt.Errorf("%w: stat %q=%q", ErrMalformed, s.Key, s.Value)
			}
			b.WriteString(s.Key)
			b.WriteByte(':')
			b.WriteString(s.Value)
			b.WriteByte(';')
		}
	}
	return b.String(), nil
}

// Files returns the rendered file paths in order.
func Files(input string) ([]string, error) {
	entries, err := Parse(input)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		files = append(files, e.File)
	}
	return files, nil
}
