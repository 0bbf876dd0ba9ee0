package deps

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Source records where a binary was found.
type Source string

const (
	SourceConfigured Source = "configured"
	SourceBundled    Source = "bundled"
	SourcePath       Source = "PATH"
)

// Resolution is the outcome of locating a tool.
type Resolution struct {
	Path   string
	Source Source
	Err    error
}

// Resolve locates tool. An explicit path or command wins. Otherwise a copy
// bundled at <executableDir>/ffmpeg/bin/<tool> is preferred over PATH, so a
// portable install ships its own encoder.
func Resolve(tool, explicit, executableDir string) Resolution {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if strings.ContainsAny(explicit, `/\`) {
			if info, err := os.Stat(explicit); err != nil || !isExecutable(info) {
				return Resolution{Path: explicit, Source: SourceConfigured, Err: fmt.Errorf("configured binary %q is not executable", explicit)}
			}
			return Resolution{Path: explicit, Source: SourceConfigured}
		}
		path, err := lookPath(explicit)
		if err != nil {
			return Resolution{Path: explicit, Source: SourceConfigured, Err: err}
		}
		return Resolution{Path: path, Source: SourceConfigured}
	}

	if candidate, ok := bundledCandidate(executableDir, tool); ok {
		if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
			return Resolution{Path: candidate, Source: SourceBundled}
		}
	}

	path, err := lookPath(tool)
	if err != nil {
		return Resolution{Path: tool, Source: SourcePath, Err: err}
	}
	return Resolution{Path: path, Source: SourcePath}
}

// FFmpeg resolves the encoder binary relative to the running executable.
func FFmpeg(explicit string) Resolution {
	return Resolve("ffmpeg", explicit, ExecutableDir())
}

// FFprobe resolves the probe binary. Without an explicit setting it looks
// next to the resolved ffmpeg first.
func FFprobe(explicit, ffmpegPath string) Resolution {
	if strings.TrimSpace(explicit) == "" && strings.ContainsAny(ffmpegPath, `/\`) {
		candidate := filepath.Join(filepath.Dir(ffmpegPath), binaryName("ffprobe"))
		if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
			return Resolution{Path: candidate, Source: SourceBundled}
		}
	}
	return Resolve("ffprobe", explicit, ExecutableDir())
}

// ExecutableDir returns the directory holding the running binary, or "".
func ExecutableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if real, err := filepath.EvalSymlinks(exe); err == nil {
		exe = real
	}
	return filepath.Dir(exe)
}

// Version returns the first line of `<binary> -version`.
func Version(ctx context.Context, binary string) (string, error) {
	out, err := exec.CommandContext(ctx, binary, "-version").Output() //nolint:gosec
	if err != nil {
		return "", fmt.Errorf("%s -version: %w", binary, err)
	}
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	return "", nil
}

func bundledCandidate(executableDir, tool string) (string, bool) {
	if strings.TrimSpace(executableDir) == "" {
		return "", false
	}
	return filepath.Join(executableDir, "ffmpeg", "bin", binaryName(tool)), true
}

func binaryName(tool string) string {
	if runtime.GOOS == "windows" && !strings.HasSuffix(strings.ToLower(tool), ".exe") {
		return tool + ".exe"
	}
	return tool
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
