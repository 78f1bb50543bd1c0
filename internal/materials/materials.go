// Package materials loads tutor notes and lesson files that seed the
// conversation system prompt.
package materials

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Material is one parsed reference file.
type Material struct {
	Filename string
	Content  string
	Type     string // "notes", "presentation", "document", "text"
}

// Load parses every supported file under dir (recursively) and returns the
// formatted context block. A missing directory is created and yields an
// empty block.
func Load(dir string) (string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		slog.Info("Creating reference materials directory", "dir", dir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create materials dir: %w", err)
		}
		return "", nil
	}

	var mats []Material
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		m, err := parseFile(path)
		if err != nil {
			slog.Warn("Failed to parse reference material", "file", d.Name(), "error", err)
			return nil
		}
		if m != nil {
			mats = append(mats, *m)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walk materials dir: %w", err)
	}

	if len(mats) == 0 {
		slog.Info("No reference materials found", "dir", dir)
		return "", nil
	}
	slog.Info("Loaded reference materials", "count", len(mats))
	return format(mats), nil
}

// CountFiles returns the number of files under dir, for /status display.
func CountFiles(dir string) int {
	count := 0
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			count++
		}
		return nil
	})
	return count
}

// parseFile dispatches on extension. Unsupported types are skipped silently.
func parseFile(path string) (*Material, error) {
	name := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return &Material{Filename: name, Content: string(data), Type: "text"}, nil
	case ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return &Material{Filename: name, Content: string(data), Type: "notes"}, nil
	case ".pptx":
		content, err := extractOOXMLText(path, "ppt/slides/")
		if err != nil {
			return nil, err
		}
		return &Material{Filename: name, Content: content, Type: "presentation"}, nil
	case ".docx":
		content, err := extractOOXMLText(path, "word/document.xml")
		if err != nil {
			return nil, err
		}
		return &Material{Filename: name, Content: content, Type: "document"}, nil
	default:
		return nil, nil
	}
}

// format groups materials by type and truncates each so one oversized file
// cannot crowd out the rest of the prompt.
func format(mats []Material) string {
	var presentations, notes, documents []Material
	for _, m := range mats {
		switch m.Type {
		case "presentation":
			presentations = append(presentations, m)
		case "document":
			documents = append(documents, m)
		default:
			notes = append(notes, m)
		}
	}

	var sections []string
	appendGroup := func(header string, group []Material, limit int) {
		if len(group) == 0 {
			return
		}
		sections = append(sections, header)
		for _, m := range group {
			sections = append(sections, fmt.Sprintf("\n--- %s ---", m.Filename))
			sections = append(sections, truncateContent(m.Content, limit))
		}
	}

	appendGroup("=== LESSON PRESENTATIONS ===", presentations, 5000)
	appendGroup("\n=== TUTOR NOTES ===", notes, 3000)
	appendGroup("\n=== LEARNING DOCUMENTS ===", documents, 3000)

	return strings.Join(sections, "\n")
}

// truncateContent cuts content to maxLen, preferring a line or sentence
// boundary near the cut.
func truncateContent(content string, maxLen int) string {
	if len(content) <= maxLen {
		return content
	}
	cut := maxLen
	for cut > 0 && content[cut]&0xC0 == 0x80 {
		cut-- // back off to a rune boundary
	}
	truncated := content[:cut]

	if i := strings.LastIndexByte(truncated, '\n'); i > maxLen*8/10 {
		return truncated[:i] + "\n[... content truncated ...]"
	}
	if i := strings.LastIndexByte(truncated, '.'); i > maxLen*8/10 {
		return truncated[:i+1] + "\n[... content truncated ...]"
	}
	return truncated + "\n[... content truncated ...]"
}
