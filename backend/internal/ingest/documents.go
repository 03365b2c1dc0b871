package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"arthur-graph/backend/internal/batch"
	"arthur-graph/backend/pkg/logger"
)

// Clinical notes arrive either as plain text exports or as HTML saved from
// portal/EHR views. Plain text is passed through; HTML is reduced to text
// before extraction so markup never leaks into the prompt.

var whitespacePattern = regexp.MustCompile(`[ \t]+`)

// ReadDirectory loads every supported document under dir (non-recursive).
// The document ID is the file name without extension; files that cannot be
// read or yield no text are skipped with a warning rather than aborting the
// whole run.
func ReadDirectory(dir string) ([]batch.Document, error) {
	log := logger.Get()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read document directory: %w", err)
	}

	var docs []batch.Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		ext := strings.ToLower(filepath.Ext(entry.Name()))

		var text string
		switch ext {
		case ".txt", ".md":
			raw, err := os.ReadFile(path)
			if err != nil {
				log.Warn("Skipping unreadable document", zap.String("path", path), zap.Error(err))
				continue
			}
			text = string(raw)
		case ".html", ".htm":
			raw, err := os.ReadFile(path)
			if err != nil {
				log.Warn("Skipping unreadable document", zap.String("path", path), zap.Error(err))
				continue
			}
			text, err = TextFromHTML(string(raw))
			if err != nil {
				log.Warn("Skipping unparseable HTML document", zap.String("path", path), zap.Error(err))
				continue
			}
		default:
			continue
		}

		if strings.TrimSpace(text) == "" {
			log.Warn("Skipping empty document", zap.String("path", path))
			continue
		}

		docs = append(docs, batch.Document{
			ID:   documentID(entry.Name()),
			Text: text,
		})
	}

	return docs, nil
}

// TextFromHTML strips an HTML clinical document down to its readable text
func TextFromHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript, nav, header, footer, aside").Remove()

	root := doc.Find("main, article").First()
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	var lines []string
	root.Find("h1, h2, h3, h4, h5, h6, p, li, td, th, div").Each(func(_ int, sel *goquery.Selection) {
		// Leaf elements only, so nested containers don't duplicate text
		if sel.Children().Length() > 0 && sel.Is("div") {
			return
		}
		if text := strings.TrimSpace(sel.Text()); text != "" {
			lines = append(lines, whitespacePattern.ReplaceAllString(text, " "))
		}
	})

	if len(lines) == 0 {
		return strings.TrimSpace(root.Text()), nil
	}
	return strings.Join(lines, "\n"), nil
}

func documentID(fileName string) string {
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	stem = strings.TrimSpace(stem)
	if stem == "" {
		return uuid.NewString()
	}
	return stem
}
