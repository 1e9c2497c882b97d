package config

import "strings"

// Phrase is a canned sentence the user can select and speak.
type Phrase struct {
	ID    string `yaml:"id" json:"id"`
	Text  string `yaml:"text" json:"text"`
	Short string `yaml:"short" json:"short"`
}

// Category groups related phrases.
type Category struct {
	Name    string   `yaml:"name" json:"name"`
	Icon    string   `yaml:"icon" json:"icon"`
	Phrases []Phrase `yaml:"phrases" json:"phrases"`
}

// Phrases is the content of phrases.yaml.
type Phrases struct {
	Categories []Category `yaml:"categories" json:"categories"`
	Custom     []Phrase   `yaml:"custom" json:"custom"`
}

// LoadPhrases reads phrases.yaml. Custom entries with empty text are dropped.
func LoadPhrases(path string) (Phrases, []Warning, error) {
	var p Phrases
	ok, err := decodeFile(path, &p)
	if err != nil {
		return Phrases{}, nil, err
	}
	var warnings []Warning
	if !ok {
		warnings = append(warnings, missing(path))
	}

	custom := p.Custom[:0]
	for _, c := range p.Custom {
		if strings.TrimSpace(c.Text) != "" {
			custom = append(custom, c)
		}
	}
	p.Custom = custom

	for _, cat := range p.Categories {
		if strings.TrimSpace(cat.Name) == "" {
			return Phrases{}, nil, invalid("phrase category without a name")
		}
	}
	return p, warnings, nil
}

// All returns every phrase, categories first, then custom phrases.
func (p Phrases) All() []Phrase {
	var out []Phrase
	for _, cat := range p.Categories {
		out = append(out, cat.Phrases...)
	}
	return append(out, p.Custom...)
}

// Find returns the phrase with the given id.
func (p Phrases) Find(id string) (Phrase, bool) {
	for _, ph := range p.All() {
		if ph.ID == id {
			return ph, true
		}
	}
	return Phrase{}, false
}
