package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeWorkspaceFile(t *testing.T, workspace string, relative string) string {
	t.Helper()

	path := filepath.Join(workspace, relative)
	assert.Nil(t, os.MkdirAll(filepath.Dir(path), 0755))
	assert.Nil(t, os.WriteFile(path, []byte("payload"), 0644))
	return path
}

func Test_ClassifyWorkspace(t *testing.T) {
	t.Parallel()
	workspace := t.TempDir()

	gif := writeWorkspaceFile(t, workspace, "a.gif")
	webp := writeWorkspaceFile(t, workspace, filepath.Join("nested", "deep", "b.webp"))
	mp4 := writeWorkspaceFile(t, workspace, filepath.Join("nested", "c.mp4"))
	writeWorkspaceFile(t, workspace, "metadata.json")
	writeWorkspaceFile(t, workspace, filepath.Join("nested", "readme.txt"))
	writeWorkspaceFile(t, workspace, "noextension")

	all, err := listWorkspaceFiles(workspace)
	assert.Nil(t, err)
	assert.Len(t, all, 6)

	candidates := classifyFiles(all)
	assert.ElementsMatch(t, []string{gif, webp, mp4}, candidates)
}

func Test_ClassifyWorkspace_Empty(t *testing.T) {
	t.Parallel()

	all, err := listWorkspaceFiles(t.TempDir())
	assert.Nil(t, err)
	assert.Empty(t, all)
	assert.Empty(t, classifyFiles(all))
}

func Test_ClassifyWorkspace_CaseInsensitiveExtensions(t *testing.T) {
	t.Parallel()
	workspace := t.TempDir()

	upper := writeWorkspaceFile(t, workspace, "SHOUTY.GIF")

	all, err := listWorkspaceFiles(workspace)
	assert.Nil(t, err)
	assert.Equal(t, []string{upper}, classifyFiles(all))
}
