package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadDirectory(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "note-001.txt"),
		[]byte("Patient John Smith was prescribed Metformin by Dr. Chen."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "discharge-summary.html"),
		[]byte(`<html><head><style>p{color:red}</style></head><body>
			<nav>Menu</nav>
			<article>
				<h1>Discharge Summary</h1>
				<p>Maria Lopez has Type 2 Diabetes.</p>
				<script>alert("x")</script>
			</article>
			<footer>Hospital portal</footer>
		</body></html>`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.txt"), []byte("   "), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte{0x89, 0x50}, 0o644))

	docs, err := ReadDirectory(dir)
	require.NoError(t, err)
	require.Len(t, docs, 2, "empty and unsupported files are skipped")

	byID := make(map[string]string)
	for _, doc := range docs {
		byID[doc.ID] = doc.Text
	}

	assert.Contains(t, byID["note-001"], "Metformin")

	html := byID["discharge-summary"]
	assert.Contains(t, html, "Maria Lopez has Type 2 Diabetes.")
	assert.Contains(t, html, "Discharge Summary")
	assert.NotContains(t, html, "alert", "scripts must be stripped")
	assert.NotContains(t, html, "Menu", "navigation must be stripped")
	assert.NotContains(t, html, "color:red", "styles must be stripped")
}

func TestReadDirectory_Missing(t *testing.T) {
	_, err := ReadDirectory("/no/such/dir")
	require.Error(t, err)
}

func TestTextFromHTML_NoStructure(t *testing.T) {
	text, err := TextFromHTML("<html><body>plain note text</body></html>")
	require.NoError(t, err)
	assert.Equal(t, "plain note text", text)
}

func TestDocumentID(t *testing.T) {
	assert.Equal(t, "note-001", documentID("note-001.txt"))
	assert.Equal(t, "a.b", documentID("a.b.html"))
	assert.NotEmpty(t, documentID(".txt"), "degenerate names fall back to a generated ID")
}
