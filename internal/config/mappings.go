package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"afasrapport/internal/core"
)

type mappingFile struct {
	Mappings []core.CategoryMapping `yaml:"mappings"`
}

// LoadCategoryMappings reads the category to report-group seed file:
//
//	mappings:
//	  - category: Huur
//	    reportGroup: Huisvesting
//
// An empty path yields no mappings.
func LoadCategoryMappings(path string) ([]core.CategoryMapping, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category mappings: %w", err)
	}

	var file mappingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse category mappings %s: %w", path, err)
	}

	seen := make(map[string]bool, len(file.Mappings))
	var problems []string
	for i, m := range file.Mappings {
		m.Category = strings.TrimSpace(m.Category)
		m.ReportGroup = strings.TrimSpace(m.ReportGroup)
		file.Mappings[i] = m
		switch {
		case m.Category == "":
			problems = append(problems, fmt.Sprintf("entry %d: category is empty", i))
		case m.ReportGroup == "":
			problems = append(problems, fmt.Sprintf("entry %d (%s): reportGroup is empty", i, m.Category))
		case seen[m.Category]:
			problems = append(problems, fmt.Sprintf("entry %d: duplicate category %s", i, m.Category))
		}
		seen[m.Category] = true
	}
	if len(problems) > 0 {
		return nil, errors.New("invalid category mappings:\n- " + strings.Join(problems, "\n- "))
	}
	return file.Mappings, nil
}
