package source

import "os"

// ExtractText splits a plain UTF-8 text file into sentence units.
func ExtractText(path string) ([]SentenceUnit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return SplitSentences(string(data)), nil
}
