// Package anki talks to the flashcard backend over the AnkiConnect local
// HTTP API and maintains the known-word cache that keeps the mining pipeline
// consistent with it.
package anki

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable wraps transport-level failures: the backend is not running
// or not reachable. Callers degrade to cached state on this.
var ErrUnavailable = errors.New("anki: backend unreachable")

// ErrDuplicate marks a single-note insert the backend rejected as a
// duplicate. Not a failure; the word is simply already there.
var ErrDuplicate = errors.New("anki: duplicate note")

const apiVersion = 6

// notesInfo requests are chunked so huge collections do not produce
// multi-megabyte request bodies.
const noteInfoChunkSize = 1000

// Client is a thin AnkiConnect wrapper. Safe for concurrent use.
type Client struct {
	url string
	hc  *http.Client
}

// NewClient creates a client for the AnkiConnect endpoint, typically
// http://localhost:8765.
func NewClient(url string) *Client {
	return &Client{
		url: url,
		hc:  &http.Client{Timeout: 30 * time.Second},
	}
}

type rpcRequest struct {
	Action  string      `json:"action"`
	Version int         `json:"version"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

func (c *Client) invoke(ctx context.Context, action string, params, result interface{}) error {
	body, err := json.Marshal(rpcRequest{Action: action, Version: apiVersion, Params: params})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", action, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: status %s", ErrUnavailable, action, resp.Status)
	}

	var rpc rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpc); err != nil {
		return fmt.Errorf("decode %s: %w", action, err)
	}
	if rpc.Error != nil {
		return fmt.Errorf("anki: %s: %s", action, *rpc.Error)
	}
	if result != nil && len(rpc.Result) > 0 {
		if err := json.Unmarshal(rpc.Result, result); err != nil {
			return fmt.Errorf("unmarshal %s result: %w", action, err)
		}
	}
	return nil
}

// Ping verifies the backend responds with a supported API version.
func (c *Client) Ping(ctx context.Context) error {
	var v int
	if err := c.invoke(ctx, "version", nil, &v); err != nil {
		return err
	}
	if v < apiVersion {
		return fmt.Errorf("anki: api version %d too old, need %d", v, apiVersion)
	}
	return nil
}

// DeckNames lists all collection (deck) names.
func (c *Client) DeckNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.invoke(ctx, "deckNames", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// ModelNames lists all note template (model) names.
func (c *Client) ModelNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.invoke(ctx, "modelNames", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// CreateDeck creates the deck if it does not exist yet.
func (c *Client) CreateDeck(ctx context.Context, name string) error {
	return c.invoke(ctx, "createDeck", map[string]string{"deck": name}, nil)
}

// FindNotes returns the note ids matching an Anki search query.
func (c *Client) FindNotes(ctx context.Context, query string) ([]int64, error) {
	var ids []int64
	err := c.invoke(ctx, "findNotes", map[string]string{"query": query}, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// NoteInfo is the field content of a single note.
type NoteInfo struct {
	NoteID int64                `json:"noteId"`
	Fields map[string]NoteField `json:"fields"`
}

// NoteField is one field's value within a note.
type NoteField struct {
	Value string `json:"value"`
	Order int    `json:"order"`
}

// NotesInfo fetches field content for the given note ids, in chunks.
func (c *Client) NotesInfo(ctx context.Context, ids []int64) ([]NoteInfo, error) {
	out := make([]NoteInfo, 0, len(ids))
	for i := 0; i < len(ids); i += noteInfoChunkSize {
		end := i + noteInfoChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		var chunk []NoteInfo
		err := c.invoke(ctx, "notesInfo", map[string][]int64{"notes": ids[i:end]}, &chunk)
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// Note is a note to be created.
type Note struct {
	Deck   string
	Model  string
	Fields map[string]string
	Tags   []string
}

func (n Note) payload() map[string]interface{} {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]interface{}{
		"deckName":  n.Deck,
		"modelName": n.Model,
		"fields":    n.Fields,
		"tags":      tags,
		// Duplicates are rejected collection-wide: a word mined into any
		// deck stays mined.
		"options": map[string]interface{}{
			"allowDuplicate": false,
			"duplicateScope": "collection",
		},
	}
}

// AddNote creates a single note. Returns ErrDuplicate when the backend
// rejects it as already present.
func (c *Client) AddNote(ctx context.Context, n Note) (int64, error) {
	var id int64
	err := c.invoke(ctx, "addNote", map[string]interface{}{"note": n.payload()}, &id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "duplicate") {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

// AddNotes creates a batch of notes in one call. The returned slice is
// positionally aligned with notes: an id for each accepted note, nil for
// each the backend rejected as a duplicate.
func (c *Client) AddNotes(ctx context.Context, notes []Note) ([]*int64, error) {
	payloads := make([]map[string]interface{}, len(notes))
	for i, n := range notes {
		payloads[i] = n.payload()
	}
	var ids []*int64
	err := c.invoke(ctx, "addNotes", map[string]interface{}{"notes": payloads}, &ids)
	if err != nil {
		return nil, err
	}
	if len(ids) != len(notes) {
		return nil, fmt.Errorf("anki: addNotes returned %d outcomes for %d notes", len(ids), len(notes))
	}
	return ids, nil
}

// StoreMediaFile uploads data into the media collection under name and
// returns the name as stored.
func (c *Client) StoreMediaFile(ctx context.Context, name string, data []byte) (string, error) {
	var stored string
	err := c.invoke(ctx, "storeMediaFile", map[string]string{
		"filename": name,
		"data":     base64.StdEncoding.EncodeToString(data),
	}, &stored)
	if err != nil {
		return "", err
	}
	if stored == "" {
		stored = name
	}
	return stored, nil
}

// MediaDirPath returns the backend's media directory on the local
// filesystem, or an error when the backend cannot tell.
func (c *Client) MediaDirPath(ctx context.Context) (string, error) {
	var path string
	if err := c.invoke(ctx, "getMediaDirPath", nil, &path); err != nil {
		return "", err
	}
	return path, nil
}

// MediaFileNames lists media files matching a glob pattern.
func (c *Client) MediaFileNames(ctx context.Context, pattern string) ([]string, error) {
	var names []string
	err := c.invoke(ctx, "getMediaFilesNames", map[string]string{"pattern": pattern}, &names)
	if err != nil {
		return nil, err
	}
	return names, nil
}
