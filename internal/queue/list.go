package queue

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// VideoExtensions lists the accepted input extensions, lower case.
var VideoExtensions = []string{".mp4", ".mov", ".mkv", ".avi", ".webm", ".m4v", ".ts", ".mts", ".m2ts"}

// IsVideoName reports whether name carries a video extension, ignoring case.
func IsVideoName(name string) bool {
	return slices.Contains(VideoExtensions, strings.ToLower(filepath.Ext(name)))
}

// Item is one queued input.
type Item struct {
	// Path is the resolved absolute path handed to the encoder.
	Path string
	// Key is the identity used for de-duplication.
	Key string
}

// Rejection explains why a path given to Add was not queued.
type Rejection struct {
	Path   string
	Reason string
}

// AddResult summarizes one Add call.
type AddResult struct {
	Added      int
	Duplicates int
	Rejected   []Rejection
}

// Options controls directory expansion.
type Options struct {
	Recursive bool
}

// List is an ordered set of input files. It is not safe for concurrent use.
type List struct {
	opts  Options
	items []Item
	keys  map[string]struct{}
}

// NewList returns an empty list.
func NewList(opts Options) *List {
	return &List{opts: opts, keys: make(map[string]struct{})}
}

// Add queues files and the video files inside directories, preserving the
// order given. Missing paths and non-video files are reported, not fatal.
func (l *List) Add(paths ...string) AddResult {
	var result AddResult
	for _, raw := range paths {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		info, err := os.Stat(raw)
		if err != nil {
			result.Rejected = append(result.Rejected, Rejection{Path: raw, Reason: statReason(err)})
			continue
		}
		if info.IsDir() {
			files, err := l.expandDir(raw)
			if err != nil {
				result.Rejected = append(result.Rejected, Rejection{Path: raw, Reason: err.Error()})
				continue
			}
			if len(files) == 0 {
				result.Rejected = append(result.Rejected, Rejection{Path: raw, Reason: "no video files"})
			}
			for _, file := range files {
				l.addFile(file, &result)
			}
			continue
		}
		if !info.Mode().IsRegular() {
			result.Rejected = append(result.Rejected, Rejection{Path: raw, Reason: "not a regular file"})
			continue
		}
		if !IsVideoName(raw) {
			result.Rejected = append(result.Rejected, Rejection{Path: raw, Reason: "unsupported extension"})
			continue
		}
		l.addFile(raw, &result)
	}
	return result
}

func (l *List) addFile(path string, result *AddResult) {
	resolved, key, err := Identity(path)
	if err != nil {
		result.Rejected = append(result.Rejected, Rejection{Path: path, Reason: err.Error()})
		return
	}
	if _, dup := l.keys[key]; dup {
		result.Duplicates++
		return
	}
	l.keys[key] = struct{}{}
	l.items = append(l.items, Item{Path: resolved, Key: key})
	result.Added++
}

func (l *List) expandDir(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && !l.opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && IsVideoName(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan directory: %w", err)
	}
	return files, nil
}

// Remove drops the entry matching path. It reports whether one was removed.
func (l *List) Remove(path string) bool {
	_, key, err := Identity(path)
	if err != nil {
		return false
	}
	idx := slices.IndexFunc(l.items, func(item Item) bool { return item.Key == key })
	if idx < 0 {
		return false
	}
	l.items = slices.Delete(l.items, idx, idx+1)
	delete(l.keys, key)
	return true
}

// Clear empties the list.
func (l *List) Clear() {
	l.items = nil
	l.keys = make(map[string]struct{})
}

// Len returns the number of queued inputs.
func (l *List) Len() int { return len(l.items) }

// Items returns a copy of the queued entries.
func (l *List) Items() []Item {
	return append([]Item(nil), l.items...)
}

// Paths returns the queued input paths in order.
func (l *List) Paths() []string {
	out := make([]string, 0, len(l.items))
	for _, item := range l.items {
		out = append(out, item.Path)
	}
	return out
}

// Existing returns the queued paths that are still regular files.
func (l *List) Existing() []string {
	out := make([]string, 0, len(l.items))
	for _, item := range l.items {
		if info, err := os.Stat(item.Path); err == nil && info.Mode().IsRegular() {
			out = append(out, item.Path)
		}
	}
	return out
}

// Identity resolves path to an absolute, symlink-free form and derives its
// de-duplication key. Unresolvable links fall back to the absolute path.
func Identity(path string) (resolved string, key string, err error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", "", fmt.Errorf("resolve %s: %w", path, err)
	}
	resolved = abs
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		resolved = real
	}
	resolved = filepath.Clean(resolved)
	return resolved, norm.NFC.String(resolved), nil
}

func statReason(err error) string {
	if errors.Is(err, fs.ErrNotExist) {
		return "does not exist"
	}
	if errors.Is(err, fs.ErrPermission) {
		return "permission denied"
	}
	return err.Error()
}
