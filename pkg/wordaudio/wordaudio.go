// Package wordaudio fetches native-speaker pronunciation clips for a single
// word, cascading over a fixed list of public sources.
package wordaudio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// ErrNotFound means no source had a usable clip for the word.
var ErrNotFound = errors.New("wordaudio: no pronunciation found")

const (
	// JPod101 answers missing words with a spoken "not available" clip
	// instead of an HTTP error; it is recognized by its size.
	errorClipMin = 50000
	errorClipMax = 55000

	// Anything this small is a stub or truncated response.
	minValidSize = 3000
)

// Fetcher downloads word pronunciation audio. Requests are rate limited so a
// large batch does not hammer the public endpoints.
type Fetcher struct {
	hc      *http.Client
	limiter *rate.Limiter
	tempDir string
}

// NewFetcher stores fetched clips under tempDir.
func NewFetcher(tempDir string) *Fetcher {
	return &Fetcher{
		hc:      &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
		tempDir: tempDir,
	}
}

// Fetch tries each source in order and returns the path of a locally written
// mp3, or ErrNotFound when every source misses. The caller owns the file.
func (f *Fetcher) Fetch(ctx context.Context, lemma, reading string) (string, error) {
	for _, src := range f.sourceURLs(lemma, reading) {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", err
		}
		path, err := f.download(ctx, src)
		if err == nil {
			return path, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("%w: %s[%s]", ErrNotFound, lemma, reading)
}

// sourceURLs lists candidate endpoints, most reliable first. JPod101 is
// queried with and without the written form since kana-only entries are
// indexed by kana alone; the Jisho audio API is keyed by reading.
func (f *Fetcher) sourceURLs(lemma, reading string) []string {
	q := url.Values{}
	q.Set("kanji", lemma)
	q.Set("kana", reading)
	withKanji := "https://assets.languagepod101.com/dictionary/japanese/audiomp3.php?" + q.Encode()

	q = url.Values{}
	q.Set("kana", reading)
	kanaOnly := "https://assets.languagepod101.com/dictionary/japanese/audiomp3.php?" + q.Encode()

	jisho := "https://apps.jisho.org/api/v1/audio/" + url.PathEscape(reading)

	return []string{withKanji, kanaOnly, jisho}
}

func (f *Fetcher) download(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wordaudio: status %s", resp.Status)
	}
	// A source answering with a page instead of a clip must not end up
	// attached to a card as audio.
	if ct := resp.Header.Get("Content-Type"); strings.Contains(ct, "text/html") {
		return "", fmt.Errorf("wordaudio: non-audio response %q", ct)
	}

	tmp := filepath.Join(f.tempDir, "wa_"+uuid.NewString()+".mp3")
	out, err := os.Create(tmp)
	if err != nil {
		return "", err
	}
	n, err := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return "", err
	}
	if !validClipSize(n) {
		os.Remove(tmp)
		return "", fmt.Errorf("wordaudio: rejected %d byte response", n)
	}
	return tmp, nil
}

// validClipSize rejects the known not-found payload fingerprint and
// implausibly small responses.
func validClipSize(n int64) bool {
	if n < minValidSize {
		return false
	}
	if n >= errorClipMin && n <= errorClipMax {
		return false
	}
	return true
}
