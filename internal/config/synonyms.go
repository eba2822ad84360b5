package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// synonymsFile is the layout of IMPORT_SYNONYMS_FILE:
//
//	[synonyms]
//	property_name = ["Listing", "Unit"]
//	guest_name = ["Booker"]
type synonymsFile struct {
	Synonyms map[string][]string `toml:"synonyms"`
}

// LoadSynonyms reads extra header synonyms keyed by canonical field name.
// An empty path yields no synonyms.
func LoadSynonyms(path string) (map[string][]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read synonyms file: %w", err)
	}
	return ParseSynonyms(data)
}

// ParseSynonyms decodes a synonyms document. Blank entries are dropped.
func ParseSynonyms(data []byte) (map[string][]string, error) {
	var doc synonymsFile
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse synonyms: %w", err)
	}

	out := make(map[string][]string, len(doc.Synonyms))
	for field, labels := range doc.Synonyms {
		field = strings.TrimSpace(field)
		for _, l := range labels {
			if l = strings.TrimSpace(l); l != "" {
				out[field] = append(out[field], l)
			}
		}
	}
	return out, nil
}
