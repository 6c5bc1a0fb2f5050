package mining

import "strconv"

// NoteFields is the structured field set of one flashcard. Assembly tasks
// fill named fields; each asset task owns exactly one field, so concurrent
// writes never collide.
type NoteFields struct {
	Expression         string // plain written form
	ExpressionFurigana string // bracket-furigana form, 食[た]べる
	ExpressionReading  string // kana reading
	ExpressionAudio    string // [sound:...] reference, word pronunciation
	MainDefinition     string // dictionary definition HTML
	Sentence           string // ruby-annotated sentence HTML
	SentenceAudio      string // [sound:...] reference, clipped from source
	Picture            string // <img> reference, frame from source
	Frequency          string // human-readable rank
	FreqSort           string // numeric rank for deck ordering
	MiscInfo           string // source attribution
}

// Map renders the record in the flashcard backend's field-name schema.
func (f *NoteFields) Map() map[string]string {
	return map[string]string{
		"Expression":         f.Expression,
		"ExpressionFurigana": f.ExpressionFurigana,
		"ExpressionReading":  f.ExpressionReading,
		"ExpressionAudio":    f.ExpressionAudio,
		"MainDefinition":     f.MainDefinition,
		"Sentence":           f.Sentence,
		"SentenceAudio":      f.SentenceAudio,
		"Picture":            f.Picture,
		"Frequency":          f.Frequency,
		"FreqSort":           f.FreqSort,
		"MiscInfo":           f.MiscInfo,
	}
}

// Record is one fully assembled card ready for commit.
type Record struct {
	Lemma  string
	Fields NoteFields
}

// FormatRank renders a frequency rank for the visible field.
func FormatRank(rank int) string {
	return strconv.Itoa(rank)
}
