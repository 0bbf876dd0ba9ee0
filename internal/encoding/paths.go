package encoding

import (
	"path/filepath"
	"strings"
)

// BuildOutputPath derives the output file for inputPath. The directory is the
// input's parent or settings.OutputDir, the stem gains the effective suffix,
// and the extension is preserved. The explicit directory is not validated here.
func BuildOutputPath(inputPath string, settings Settings) string {
	dir := filepath.Dir(inputPath)
	if settings.OutputDirMode == OutputExplicitDir {
		dir = strings.TrimSpace(settings.OutputDir)
	}
	stem, ext := splitName(filepath.Base(inputPath))
	return filepath.Join(dir, stem+settings.EffectiveSuffix()+ext)
}

// OverwriteRisk reports whether writing output would clobber input.
func OverwriteRisk(inputPath, outputPath string) bool {
	return filepath.Clean(inputPath) == filepath.Clean(outputPath)
}

// splitName separates a file name into stem and extension. A leading dot is
// part of the stem, so ".clip" has no extension.
func splitName(name string) (string, string) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		return name, ""
	}
	return stem, ext
}
