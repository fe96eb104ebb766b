package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/termex/pkg/termex/annotate"
	"github.com/cognicore/termex/pkg/termex/annotate/lexicon"
)

// Stoplist is an extra list of stopwords.
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file.
func LoadStoplist(path string) (*Stoplist, error) {
	var sl Stoplist
	if err := readYAML(path, &sl); err != nil {
		return nil, err
	}
	return &sl, nil
}

// Lexicon overrides word tags and adds abbreviations.
type Lexicon struct {
	Words         map[string]lexicon.WordEntry `yaml:"words"`
	Abbreviations []string                     `yaml:"abbreviations"`
}

// LoadLexicon loads a word lexicon from a YAML file.
func LoadLexicon(path string) (*Lexicon, error) {
	var lx Lexicon
	if err := readYAML(path, &lx); err != nil {
		return nil, err
	}
	return &lx, nil
}

// Gazetteer maps entity labels to known phrases.
type Gazetteer struct {
	Entities map[string][]string `yaml:"entities"`
}

// LoadGazetteer loads entity phrases. YAML files use an `entities:` map;
// any other file is read line by line as LABEL|phrase|variant...
func LoadGazetteer(path string) (*Gazetteer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var gz Gazetteer
		if err := readYAML(path, &gz); err != nil {
			return nil, err
		}
		return &gz, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	gz := &Gazetteer{Entities: make(map[string][]string)}
	for n, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) < 2 {
			return nil, fmt.Errorf("%s:%d: want LABEL|phrase, got %q", path, n+1, line)
		}
		label := strings.ToUpper(strings.TrimSpace(parts[0]))
		for _, phrase := range parts[1:] {
			if phrase = strings.TrimSpace(phrase); phrase != "" {
				gz.Entities[label] = append(gz.Entities[label], phrase)
			}
		}
	}
	return gz, nil
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// Loader reads annotator resources from disk. Empty paths are skipped.
type Loader struct {
	LexiconPath   string
	GazetteerPath string
	StoplistPath  string
	MaxBytes      int
}

// NewLoader takes resource paths from a config.
func NewLoader(cfg *Config) Loader {
	return Loader{
		LexiconPath:   cfg.Resources.Lexicon,
		GazetteerPath: cfg.Resources.Gazetteer,
		StoplistPath:  cfg.Resources.Stoplist,
		MaxBytes:      cfg.Resources.MaxDocumentBytes,
	}
}

// Resources loads all configured files.
func (l Loader) Resources() (lexicon.Resources, error) {
	res := lexicon.Resources{MaxBytes: l.MaxBytes}

	if l.LexiconPath != "" {
		lx, err := LoadLexicon(l.LexiconPath)
		if err != nil {
			return res, fmt.Errorf("failed to load lexicon: %w", err)
		}
		res.Words = lx.Words
		res.Abbreviations = lx.Abbreviations
	}
	if l.GazetteerPath != "" {
		gz, err := LoadGazetteer(l.GazetteerPath)
		if err != nil {
			return res, fmt.Errorf("failed to load gazetteer: %w", err)
		}
		res.Entities = gz.Entities
	}
	if l.StoplistPath != "" {
		sl, err := LoadStoplist(l.StoplistPath)
		if err != nil {
			return res, fmt.Errorf("failed to load stoplist: %w", err)
		}
		res.Stopwords = sl.Terms
	}
	return res, nil
}

// Open loads the resources and opens the annotator for lang.
func (l Loader) Open(lang annotate.Language) (*lexicon.Model, error) {
	res, err := l.Resources()
	if err != nil {
		return nil, err
	}
	return lexicon.Open(lang, res)
}
