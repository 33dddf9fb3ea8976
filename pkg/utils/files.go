package utils

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const (
	// SourceExt is the extension of compiler sources.
	SourceExt = ".fl2021"
	// ArtifactExt is the extension of generated assembly.
	ArtifactExt = ".asm"
	// StdinArtifact names the artifact of a program read from standard input.
	StdinArtifact = "kb" + ArtifactExt
)

var ErrBadExtension = errors.New("source files must use the " + SourceExt + " extension")

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", errors.Wrapf(err, "resolve %s", relPath)
	}

	// Get the directory containing the file
	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// ResolveSource returns the source file named by arg. A missing extension
// defaults to SourceExt; any other extension is rejected.
func ResolveSource(arg string) (string, error) {
	if arg == "" {
		return "", errors.New("empty source name")
	}
	ext := filepath.Ext(arg)
	switch {
	case ext == "":
		return arg + SourceExt, nil
	case ext != SourceExt:
		return "", errors.Wrapf(ErrBadExtension, "%s", arg)
	case strings.TrimSuffix(filepath.Base(arg), ext) == "":
		return "", errors.Errorf("source %s has no base name", arg)
	}
	return arg, nil
}

// ArtifactPath derives the output path for src, next to it. An empty src
// means standard input.
func ArtifactPath(src string) string {
	if src == "" {
		return StdinArtifact
	}
	return strings.TrimSuffix(src, filepath.Ext(src)) + ArtifactExt
}
