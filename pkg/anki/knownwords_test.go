package anki

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCollection backs an rpcServer with per-note-type notes.
type fakeCollection struct {
	mu    sync.Mutex
	notes map[string]map[int64]string // noteType -> id -> field value
	field string
	delay time.Duration
}

func newFakeCollection(field string) *fakeCollection {
	return &fakeCollection{notes: make(map[string]map[int64]string), field: field}
}

func (fc *fakeCollection) put(noteType string, id int64, value string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.notes[noteType] == nil {
		fc.notes[noteType] = make(map[int64]string)
	}
	fc.notes[noteType][id] = value
}

func (fc *fakeCollection) remove(noteType string, id int64) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	delete(fc.notes[noteType], id)
}

func (fc *fakeCollection) install(srv *rpcServer) {
	srv.handler["findNotes"] = func(params json.RawMessage) (interface{}, string) {
		var p struct {
			Query string `json:"query"`
		}
		json.Unmarshal(params, &p)
		noteType, err := strconv.Unquote(strings.TrimPrefix(p.Query, "note:"))
		if err != nil {
			return nil, "bad query: " + p.Query
		}
		fc.mu.Lock()
		defer fc.mu.Unlock()
		time.Sleep(fc.delay)
		ids := []int64{}
		for id := range fc.notes[noteType] {
			ids = append(ids, id)
		}
		return ids, ""
	}
	srv.handler["notesInfo"] = func(params json.RawMessage) (interface{}, string) {
		var p struct {
			Notes []int64 `json:"notes"`
		}
		json.Unmarshal(params, &p)
		fc.mu.Lock()
		defer fc.mu.Unlock()
		out := make([]NoteInfo, 0, len(p.Notes))
		for _, id := range p.Notes {
			for _, byID := range fc.notes {
				if v, ok := byID[id]; ok {
					out = append(out, NoteInfo{
						NoteID: id,
						Fields: map[string]NoteField{fc.field: {Value: v}},
					})
					break
				}
			}
		}
		return out, ""
	}
}

func newTestService(t *testing.T, fc *fakeCollection, targets []Target) (*KnownWords, *rpcServer, string) {
	t.Helper()
	srv := newRPCServer()
	fc.install(srv)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	path := filepath.Join(t.TempDir(), "known_words.json")
	kw := NewKnownWords(NewClient(ts.URL), targets, path, nil)
	return kw, srv, path
}

var testTargets = []Target{
	{NoteType: "Japanese sentences", Field: "VocabKanji"},
	{NoteType: "Kaishi 1.5K", Field: "VocabKanji"},
}

func TestLoadMissingFile(t *testing.T) {
	fc := newFakeCollection("VocabKanji")
	kw, _, _ := newTestService(t, fc, testTargets)
	assert.Equal(t, 0, kw.Load())
}

func TestLoadCorruptFileDegradesToEmpty(t *testing.T) {
	fc := newFakeCollection("VocabKanji")
	kw, _, path := newTestService(t, fc, testTargets)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	assert.Equal(t, 0, kw.Load())
}

func TestFullRefreshStripsMarkup(t *testing.T) {
	fc := newFakeCollection("VocabKanji")
	fc.put("Japanese sentences", 1, "<b>学校</b>")
	fc.put("Japanese sentences", 2, "食[た]べる")
	fc.put("Kaishi 1.5K", 3, " 言う ")
	kw, _, _ := newTestService(t, fc, testTargets)
	kw.Load()

	res := kw.Refresh(t.Context())
	assert.Equal(t, RefreshFull, res.Outcome)
	assert.True(t, kw.Contains("学校"))
	assert.True(t, kw.Contains("食べる"))
	assert.True(t, kw.Contains("言う"))
	assert.Equal(t, 3, kw.Len())
}

func TestPersistedRecordRoundTrip(t *testing.T) {
	fc := newFakeCollection("VocabKanji")
	for i := int64(1); i <= 10; i++ {
		fc.put("Japanese sentences", i, "単語"+strconv.FormatInt(i, 10))
	}
	kw, _, path := newTestService(t, fc, testTargets)
	kw.Load()
	require.Equal(t, RefreshFull, kw.Refresh(t.Context()).Outcome)

	// A fresh service over the same file sees the identical set, and its
	// baseline matches the backend so the next refresh is a no-op.
	kw2 := NewKnownWords(kw.client, testTargets, path, nil)
	kw2.Load()
	assert.Equal(t, kw.Words(), kw2.Words())
	assert.Equal(t, RefreshUnchanged, kw2.Refresh(t.Context()).Outcome)
}

func TestUnchangedIssuesNoMemberFetch(t *testing.T) {
	fc := newFakeCollection("VocabKanji")
	for i := int64(1); i <= 20; i++ {
		fc.put("Japanese sentences", i, "単語"+strconv.FormatInt(i, 10))
	}
	kw, srv, _ := newTestService(t, fc, testTargets)
	kw.Load()
	require.Equal(t, RefreshFull, kw.Refresh(t.Context()).Outcome)
	fetchesAfterFull := srv.callCount("notesInfo")

	// Drift below the threshold: membership is counted but never fetched.
	fc.put("Japanese sentences", 21, "新規")
	fc.put("Japanese sentences", 22, "追加")
	res := kw.Refresh(t.Context())
	assert.Equal(t, RefreshUnchanged, res.Outcome)
	assert.Equal(t, fetchesAfterFull, srv.callCount("notesInfo"))
	assert.False(t, kw.Contains("新規"))
}

func TestIncrementalFetchesOnlyAboveMark(t *testing.T) {
	fc := newFakeCollection("VocabKanji")
	for i := int64(1); i <= 20; i++ {
		fc.put("Japanese sentences", i, "単語"+strconv.FormatInt(i, 10))
	}
	kw, _, _ := newTestService(t, fc, testTargets)
	kw.Load()
	require.Equal(t, RefreshFull, kw.Refresh(t.Context()).Outcome)

	// Track which ids the incremental path asks for.
	var mu sync.Mutex
	var fetched []int64

	for i := int64(21); i <= 26; i++ {
		fc.put("Japanese sentences", i, "新語"+strconv.FormatInt(i, 10))
	}
	// Wrap notesInfo to record requested ids.
	kwSrv := newRPCServer()
	fc.install(kwSrv)
	inner := kwSrv.handler["notesInfo"]
	kwSrv.handler["notesInfo"] = func(params json.RawMessage) (interface{}, string) {
		var p struct {
			Notes []int64 `json:"notes"`
		}
		json.Unmarshal(params, &p)
		mu.Lock()
		fetched = append(fetched, p.Notes...)
		mu.Unlock()
		return inner(params)
	}
	ts := httptest.NewServer(kwSrv)
	defer ts.Close()
	kw.client = NewClient(ts.URL)

	res := kw.Refresh(t.Context())
	require.Equal(t, RefreshIncremental, res.Outcome)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, fetched, 6)
	for _, id := range fetched {
		assert.Greater(t, id, int64(20), "incremental refresh fetched id at or below the mark")
	}
	assert.True(t, kw.Contains("新語21"))
	assert.True(t, kw.Contains("単語3"), "existing members survive a merge")
}

func TestDeletionForcesFullRefresh(t *testing.T) {
	fc := newFakeCollection("VocabKanji")
	for i := int64(1); i <= 30; i++ {
		fc.put("Japanese sentences", i, "単語"+strconv.FormatInt(i, 10))
	}
	kw, _, _ := newTestService(t, fc, testTargets)
	kw.Load()
	require.Equal(t, RefreshFull, kw.Refresh(t.Context()).Outcome)

	for i := int64(1); i <= 10; i++ {
		fc.remove("Japanese sentences", i)
	}
	res := kw.Refresh(t.Context())
	assert.Equal(t, RefreshFull, res.Outcome)
	assert.Equal(t, 20, kw.Len())
	assert.False(t, kw.Contains("単語1"))
}

func TestUnreachableBackendAborts(t *testing.T) {
	fc := newFakeCollection("VocabKanji")
	kw, _, _ := newTestService(t, fc, testTargets)
	kw.Load()
	kw.Add("学校")

	kw.client = NewClient("http://127.0.0.1:1")
	res := kw.Refresh(t.Context())
	assert.Equal(t, RefreshAborted, res.Outcome)
	assert.True(t, kw.Contains("学校"), "cached set stays authoritative")
}

func TestConcurrentRefreshesShareOneFlight(t *testing.T) {
	fc := newFakeCollection("VocabKanji")
	fc.delay = 50 * time.Millisecond
	for i := int64(1); i <= 10; i++ {
		fc.put("Japanese sentences", i, "単語"+strconv.FormatInt(i, 10))
	}
	kw, srv, _ := newTestService(t, fc, testTargets)
	kw.Load()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kw.Refresh(t.Context())
		}()
	}
	wg.Wait()

	// One reconciliation: one findNotes per target, not per caller.
	assert.Equal(t, len(testTargets), srv.callCount("findNotes"))
}

func TestStartRefreshDeliversResult(t *testing.T) {
	fc := newFakeCollection("VocabKanji")
	fc.put("Japanese sentences", 1, "学校")
	kw, _, _ := newTestService(t, fc, testTargets)
	kw.Load()

	select {
	case res := <-kw.StartRefresh(t.Context()):
		assert.Equal(t, RefreshFull, res.Outcome)
		assert.Equal(t, 1, res.Size)
	case <-time.After(5 * time.Second):
		t.Fatal("refresh result never delivered")
	}
}

func TestExtractExpression(t *testing.T) {
	cases := map[string]string{
		"<b>学校</b>":          "学校",
		"食[た]べる":            "食べる",
		" 言う ":              "言う",
		"<ruby>漢<rt>かん</rt></ruby>字": "漢字",
	}
	for in, want := range cases {
		assert.Equal(t, want, extractExpression(in), "input %q", in)
	}
}
