package materials

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
)

// extractOOXMLText pulls the visible text runs out of an Office Open XML
// container (.pptx, .docx). Both formats store text in <a:t>/<w:t> elements
// inside zipped XML parts; pulling character data from those elements is
// enough for prompt context, no layout needed.
func extractOOXMLText(path, partPrefix string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	var names []string
	for _, f := range r.File {
		if strings.HasPrefix(f.Name, partPrefix) && strings.HasSuffix(f.Name, ".xml") {
			names = append(names, f.Name)
		}
	}
	// Slide parts come back in zip order; sort so slide2 follows slide1.
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		for _, f := range r.File {
			if f.Name != name {
				continue
			}
			rc, err := f.Open()
			if err != nil {
				return "", fmt.Errorf("open part %s: %w", name, err)
			}
			text, err := textElements(rc)
			rc.Close()
			if err != nil {
				return "", fmt.Errorf("parse part %s: %w", name, err)
			}
			if text != "" {
				sb.WriteString(text)
				sb.WriteString("\n")
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// textElements collects the character data of every <t> element (the local
// name of both a:t and w:t).
func textElements(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				inText = true
			}
			// Paragraph boundaries become newlines to keep slide structure.
			if el.Name.Local == "p" && sb.Len() > 0 {
				sb.WriteString("\n")
			}
		case xml.EndElement:
			if el.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				sb.Write(el)
			}
		}
	}
	return sb.String(), nil
}
