package codec

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocateSample resolves a sample file referenced by name. Real libraries
// frequently keep samples in a sibling or cousin folder of the preset,
// so the search starts next to the preset and then walks up to maxDepth
// ancestor directories, scanning each subtree for a case-insensitive
// name match. An empty string is returned when nothing matches.
func LocateSample(name, baseDir string, maxDepth int) string {
	if name == "" || baseDir == "" {
		return ""
	}

	// Fast path: the sample sits right next to the preset.
	direct := filepath.Join(baseDir, filepath.Base(name))
	if fileExists(direct) {
		return direct
	}

	want := strings.ToLower(filepath.Base(name))
	dir := baseDir
	for depth := 0; depth <= maxDepth; depth++ {
		if found := scanTree(dir, want); found != "" {
			return found
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func scanTree(root, want string) string {
	var found string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if found != "" {
			return filepath.SkipAll
		}
		if !d.IsDir() && strings.ToLower(d.Name()) == want {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	return found
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
