package frequency

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func writeFreqZip(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "freq.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(f)

	bank, err := zw.Create("term_meta_bank_1.json")
	if err != nil {
		t.Fatalf("create bank: %v", err)
	}
	// Mix of the meta shapes seen in the wild: bare number, {value},
	// nested {frequency:{value}}.
	bank.Write([]byte(`[
		["学校","freq",500],
		["言う","freq",{"value":120}],
		["いう","freq",{"reading":"いう","frequency":{"value":80}}],
		["ゆう","freq",3000],
		["学校","freq",900]
	]`))

	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

func testStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "freq.db")
	terms, err := Import(writeFreqZip(t), dbPath)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if terms != 4 {
		t.Fatalf("expected 4 terms, got %d", terms)
	}
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRank(t *testing.T) {
	s := testStore(t)
	if got := s.Rank("言う"); got != 120 {
		t.Errorf("Rank(言う) = %d, want 120", got)
	}
	// Duplicate entries keep the minimum rank.
	if got := s.Rank("学校"); got != 500 {
		t.Errorf("Rank(学校) = %d, want 500", got)
	}
}

func TestRankUnknownSentinel(t *testing.T) {
	s := testStore(t)
	if got := s.Rank("存在しない"); got != RankUnknown {
		t.Errorf("Rank(unknown) = %d, want %d", got, RankUnknown)
	}
	var nilStore *Store
	if got := nilStore.Rank("学校"); got != RankUnknown {
		t.Errorf("nil store Rank = %d, want %d", got, RankUnknown)
	}
}

func TestBestReading(t *testing.T) {
	s := testStore(t)
	best, ok := s.BestReading([]string{"いう", "ゆう"})
	if !ok || best != "いう" {
		t.Errorf("BestReading = %q/%v, want いう/true", best, ok)
	}
	// None of the candidates in the store.
	if _, ok := s.BestReading([]string{"ぺけ", "ぽこ"}); ok {
		t.Error("expected no best reading for unknown candidates")
	}
	var nilStore *Store
	if _, ok := nilStore.BestReading([]string{"いう"}); ok {
		t.Error("nil store should report no best reading")
	}
}
