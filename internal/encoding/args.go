package encoding

import (
	"strconv"
	"strings"
)

// BuildArguments returns the ffmpeg argument vector for one job:
//
//	-y -i <input> -c:v libx265 -preset <preset> -crf <crf> -c:a copy <output>
//
// Audio is passed through untouched.
func BuildArguments(inputPath, outputPath string, settings Settings) []string {
	return []string{
		"-y",
		"-i", inputPath,
		"-c:v", Encoder,
		"-preset", string(settings.Preset),
		"-crf", strconv.Itoa(settings.CRF),
		"-c:a", "copy",
		outputPath,
	}
}

// CommandLine renders binary and args as a copy-pasteable shell command.
func CommandLine(binary string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, shellQuote(binary))
	for _, arg := range args {
		parts = append(parts, shellQuote(arg))
	}
	return strings.Join(parts, " ")
}

func shellQuote(value string) string {
	if value == "" {
		return "''"
	}
	safe := true
	for _, r := range value {
		if !isShellSafe(r) {
			safe = false
			break
		}
	}
	if safe {
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}

func isShellSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("@%+=:,./-_", r)
}
