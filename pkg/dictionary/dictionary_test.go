package dictionary

import (
	"path/filepath"
	"strings"
	"testing"
)

func testEntries() []JMdictEntry {
	return []JMdictEntry{
		{
			Id:    "1",
			Kanji: []JMdictElement{{Text: "学校"}},
			Kana:  []JMdictElement{{Text: "がっこう"}},
			Sense: []JMdictSense{{
				PartOfSpeech: []string{"n"},
				Gloss:        []JMdictGloss{{Text: "school", Lang: "eng"}},
			}},
		},
		{
			Id:    "2",
			Kanji: []JMdictElement{{Text: "言う"}},
			Kana:  []JMdictElement{{Text: "いう"}, {Text: "ゆう"}},
			Sense: []JMdictSense{{
				PartOfSpeech: []string{"v5u"},
				Gloss:        []JMdictGloss{{Text: "to say", Lang: "eng"}},
			}},
		},
		{
			Id:   "3",
			Kana: []JMdictElement{{Text: "ひらがな"}},
			Sense: []JMdictSense{{
				Gloss: []JMdictGloss{{Text: "hiragana", Lang: "eng"}},
			}},
		},
	}
}

func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dict.db")
	rows, err := Import(path, testEntries())
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if rows == 0 {
		t.Fatal("import wrote no rows")
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLookupExactReading(t *testing.T) {
	s := testStore(t)
	def, err := s.Lookup("学校", "がっこう")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !strings.Contains(def, "school") {
		t.Errorf("definition %q does not mention school", def)
	}
}

func TestLookupFallsBackToAnyReading(t *testing.T) {
	s := testStore(t)
	// Reading the dictionary does not have for this term.
	def, err := s.Lookup("言う", "まったくちがう")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !strings.Contains(def, "to say") {
		t.Errorf("fallback lookup returned %q", def)
	}
}

func TestLookupUnknownTerm(t *testing.T) {
	s := testStore(t)
	def, err := s.Lookup("存在しない", "")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if def != "" {
		t.Errorf("expected empty definition, got %q", def)
	}
}

func TestReadingsPreserveImportOrder(t *testing.T) {
	s := testStore(t)
	readings, err := s.Readings("言う")
	if err != nil {
		t.Fatalf("readings failed: %v", err)
	}
	if len(readings) != 2 || readings[0] != "いう" || readings[1] != "ゆう" {
		t.Errorf("readings = %v, want [いう ゆう]", readings)
	}
}

func TestKanaOnlyEntryIndexedUnderKana(t *testing.T) {
	s := testStore(t)
	def, err := s.Lookup("ひらがな", "ひらがな")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if def == "" {
		t.Error("kana-only entry not found")
	}
}

func TestExistBatch(t *testing.T) {
	s := testStore(t)
	exists, err := s.ExistBatch([]string{"学校", "言う", "存在しない"})
	if err != nil {
		t.Fatalf("exist batch failed: %v", err)
	}
	if !exists["学校"] || !exists["言う"] {
		t.Errorf("known terms missing from %v", exists)
	}
	if exists["存在しない"] {
		t.Error("unknown term reported as existing")
	}
}
