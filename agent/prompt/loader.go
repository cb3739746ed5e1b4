package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/classifier.txt
	classifierRaw string

	//go:embed template/generator.txt
	generatorRaw string

	//go:embed template/fallback.txt
	fallbackRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Classifier string
	Generator  string
	Fallback   string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Classifier: strings.TrimSpace(classifierRaw),
		Generator:  strings.TrimSpace(generatorRaw),
		Fallback:   strings.TrimSpace(fallbackRaw),
	}
}
