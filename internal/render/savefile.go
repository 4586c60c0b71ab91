package render

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ResolveSourceForXMLID reverse-looks-up a project's mapping.json (keyed
// source-path -> []xmlID) to find which source file produced a given
// xml:id, for the WebSocket loop's save_file handling (§4.5).
func ResolveSourceForXMLID(cfg ProjectConfig, xmlID string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(cfg.OutputPath, preTextMappingFile))
	if err != nil {
		return "", false
	}
	var mapping map[string][]string
	if err := json.Unmarshal(data, &mapping); err != nil {
		return "", false
	}
	for source, ids := range mapping {
		for _, id := range ids {
			if id == xmlID {
				return source, true
			}
		}
	}
	return "", false
}

// ReplaceXMLElement replaces the element with xml:id == xmlID inside
// sourcePath with newContent and writes the file back in place, preserving
// everything outside the replaced element's byte range exactly as it was.
func ReplaceXMLElement(sourcePath, xmlID, newContent string) error {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("render: reading %s: %w", sourcePath, err)
	}
	start, end, err := findElementByID(string(data), xmlID)
	if err != nil {
		return err
	}
	updated := string(data)[:start] + newContent + string(data)[end:]
	return os.WriteFile(sourcePath, []byte(updated), 0o644)
}

// findElementByID locates the byte range [start, end) of the first element
// whose id (or xml:id) attribute equals xmlID, using an XML decoder to walk
// the tree while tracking raw stream offsets.
func findElementByID(source, xmlID string) (start, end int, err error) {
	dec := xml.NewDecoder(strings.NewReader(source))
	for {
		startOffset := dec.InputOffset()
		tok, tokErr := dec.Token()
		if tokErr == io.EOF {
			break
		}
		if tokErr != nil {
			return 0, 0, fmt.Errorf("render: parsing %s as xml: %w", source, tokErr)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || !hasID(se, xmlID) {
			continue
		}
		if err := dec.Skip(); err != nil {
			return 0, 0, fmt.Errorf("render: skipping element %s: %w", xmlID, err)
		}
		return int(startOffset), int(dec.InputOffset()), nil
	}
	return 0, 0, fmt.Errorf("render: no element with id %q found", xmlID)
}

func hasID(se xml.StartElement, xmlID string) bool {
	for _, attr := range se.Attr {
		if attr.Name.Local == "id" && attr.Value == xmlID {
			return true
		}
	}
	return false
}
