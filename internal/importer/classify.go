package importer

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// The extensions the pipeline is willing to process; everything else
// an acquisition produces is ignored.
var candidateExtensions = map[string]bool{
	".gif":  true,
	".webp": true,
	".mp4":  true,
}

// listWorkspaceFiles recursively lists all regular files under the
// workspace directory provided. Traversal order is not significant.
func listWorkspaceFiles(workspace string) ([]string, error) {
	found := make([]string, 0)
	err := filepath.WalkDir(workspace, func(path string, dir fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !dir.IsDir() {
			found = append(found, path)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return found, nil
}

// classifyFiles filters the paths provided down to those with a
// candidate media extension.
func classifyFiles(paths []string) []string {
	valid := make([]string, 0, len(paths))
	for _, path := range paths {
		if candidateExtensions[strings.ToLower(filepath.Ext(path))] {
			valid = append(valid, path)
		}
	}

	return valid
}
