package main

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var supportedFormats = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
	".gif":  true,
	".webp": true,
}

func isImage(name string) bool {
	return supportedFormats[strings.ToLower(filepath.Ext(name))]
}

func splitPattern(pattern string) []string {
	return strings.Split(strings.Trim(filepath.ToSlash(pattern), "/"), "/")
}

// validatePattern reports a malformed glob before any walking happens.
func validatePattern(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return fmt.Errorf("glob pattern is empty")
	}
	for _, part := range splitPattern(pattern) {
		if _, err := path.Match(part, ""); err != nil {
			return fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// matchPattern matches rel against pattern one path component at a time. A
// "**" component spans zero or more components. Recursive mode behaves as if
// the pattern were prefixed with "**/".
func matchPattern(pattern, rel string, recursive bool) bool {
	pat := splitPattern(pattern)
	if recursive {
		pat = append([]string{"**"}, pat...)
	}
	return matchParts(pat, strings.Split(filepath.ToSlash(rel), "/"))
}

func matchParts(pat, parts []string) bool {
	if len(pat) == 0 {
		return len(parts) == 0
	}
	if pat[0] == "**" {
		for i := 0; i <= len(parts); i++ {
			if matchParts(pat[1:], parts[i:]) {
				return true
			}
		}
		return false
	}
	if len(parts) == 0 {
		return false
	}
	ok, err := path.Match(pat[0], parts[0])
	if err != nil || !ok {
		return false
	}
	return matchParts(pat[1:], parts[1:])
}

// walkDepth is the deepest directory level worth entering, or -1 for no limit.
func walkDepth(pattern string, recursive bool) int {
	if recursive {
		return -1
	}
	pat := splitPattern(pattern)
	for _, part := range pat {
		if part == "**" {
			return -1
		}
	}
	return len(pat) - 1
}

// collectFiles returns the image files under root matching p.Pattern, in
// lexical order. The output directory is not descended into.
func (p *Processor) collectFiles(root string) ([]string, error) {
	var filesToProcess []string
	maxDepth := walkDepth(p.Pattern, p.Recursive)

	err := filepath.WalkDir(root, func(filePath string, d fs.DirEntry, err error) error {
		if err != nil {
			if filePath == root {
				return err
			}
			p.Console.Warn("Skipping unreadable path %s: %v", filePath, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, filePath)
		if err != nil {
			return err
		}

		if d.IsDir() {
			if filePath == root {
				return nil
			}
			if filePath == p.OutputDir {
				p.Console.Debug("Not descending into output directory %s", filePath)
				return filepath.SkipDir
			}
			if maxDepth >= 0 && len(strings.Split(filepath.ToSlash(rel), "/")) > maxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		if !matchPattern(p.Pattern, rel, p.Recursive) || !isImage(filePath) {
			return nil
		}
		if !isRegularFile(filePath, d) {
			return nil
		}

		filesToProcess = append(filesToProcess, filePath)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("error while exploring directory: %w", err)
	}

	return filesToProcess, nil
}

// isRegularFile follows symlinks, so a link to an image counts as a file.
func isRegularFile(filePath string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filePath)
	return err == nil && info.Mode().IsRegular()
}
