package usecase

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// IndicatorFile is the on-disk format for extra ultra-processed markers:
//
//	ultra_processed:
//	  - palm olein
//	  - soy protein isolate
type IndicatorFile struct {
	UltraProcessed []string `yaml:"ultra_processed"`
}

// LoadIndicatorFile reads extra marker phrases from a YAML file
func LoadIndicatorFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read indicator file: %w", err)
	}
	return ParseIndicators(data)
}

// ParseIndicators decodes an IndicatorFile document, dropping blank entries
func ParseIndicators(data []byte) ([]string, error) {
	var file IndicatorFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse indicator file: %w", err)
	}

	indicators := make([]string, 0, len(file.UltraProcessed))
	for _, ind := range file.UltraProcessed {
		if ind = strings.TrimSpace(ind); ind != "" {
			indicators = append(indicators, ind)
		}
	}
	return indicators, nil
}
