package dictionary

import (
	"encoding/json"
	"fmt"
	"html"
	"os"
	"strings"
)

// JMdictEntry matches the structure of jmdict-simplified entries.
type JMdictEntry struct {
	Id    string          `json:"id"`
	Kanji []JMdictElement `json:"kanji"`
	Kana  []JMdictElement `json:"kana"`
	Sense []JMdictSense   `json:"sense"`
}

type JMdictElement struct {
	Text   string   `json:"text"`
	Common bool     `json:"common"`
	Tags   []string `json:"tags"`
}

type JMdictSense struct {
	PartOfSpeech []string      `json:"partOfSpeech"`
	Gloss        []JMdictGloss `json:"gloss"`
}

type JMdictGloss struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

// LoadJMdict reads a jmdict-simplified JSON file, accepting both the
// {"words": [...]} wrapper and a bare array.
func LoadJMdict(path string) ([]JMdictEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var wrapper struct {
		Words []JMdictEntry `json:"words"`
	}
	dec := json.NewDecoder(f)
	if err := dec.Decode(&wrapper); err == nil && len(wrapper.Words) > 0 {
		return wrapper.Words, nil
	}

	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	var entries []JMdictEntry
	dec = json.NewDecoder(f)
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("parse dictionary as object or array: %w", err)
	}
	return entries, nil
}

// formatDefinition renders an entry's senses as self-contained HTML suitable
// for a card field: one list item per sense, part-of-speech tags up front.
func formatDefinition(e JMdictEntry) string {
	if len(e.Sense) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<div style="text-align:left"><ol>`)
	for _, s := range e.Sense {
		b.WriteString("<li>")
		if len(s.PartOfSpeech) > 0 {
			b.WriteString(`<span class="pos">`)
			b.WriteString(html.EscapeString(strings.Join(s.PartOfSpeech, ", ")))
			b.WriteString("</span> ")
		}
		glosses := make([]string, 0, len(s.Gloss))
		for _, g := range s.Gloss {
			glosses = append(glosses, html.EscapeString(g.Text))
		}
		b.WriteString(strings.Join(glosses, "; "))
		b.WriteString("</li>")
	}
	b.WriteString("</ol></div>")
	return b.String()
}
