package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxChunkLen is the longest text fragment the translate endpoint accepts
// per request, in characters.
const maxChunkLen = 100

// Client synthesizes speech through the Google Translate TTS endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	language   string
}

// NewClient creates a new speech synthesis client. An empty baseURL selects
// the public translate endpoint; language defaults to English.
func NewClient(baseURL, language string) *Client {
	if baseURL == "" {
		baseURL = "https://translate.google.com/translate_tts"
	}
	if language == "" {
		language = "en"
	}
	return &Client{
		httpClient: &http.Client{},
		baseURL:    baseURL,
		language:   language,
	}
}

// Synthesize converts text to speech and writes the mp3 to path. Long texts
// are split into chunks and the returned audio fragments are concatenated;
// mp3 frames are self-contained so simple appending produces a valid file.
func (c *Client) Synthesize(ctx context.Context, text, path string) error {
	chunks := SplitText(text)
	if len(chunks) == 0 {
		return fmt.Errorf("no text to synthesize")
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create audio file: %w", err)
	}
	defer out.Close()

	for i, chunk := range chunks {
		if err := c.fetchChunk(ctx, chunk, i, len(chunks), out); err != nil {
			os.Remove(path)
			return err
		}
	}

	return nil
}

func (c *Client) fetchChunk(ctx context.Context, chunk string, idx, total int, out io.Writer) error {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("tl", c.language)
	params.Set("q", chunk)
	params.Set("textlen", strconv.Itoa(utf8.RuneCountInString(chunk)))
	params.Set("idx", strconv.Itoa(idx))
	params.Set("total", strconv.Itoa(total))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received non-OK status code: %d", resp.StatusCode)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}

	return nil
}

// SplitText breaks text into whitespace-separated chunks no longer than the
// endpoint limit, counted in runes so multi-byte scripts are never cut
// mid-character. A single word longer than the limit is split mid-word on
// rune boundaries; unspaced scripts like Japanese arrive as one long word
// and rely on this path.
func SplitText(text string) []string {
	var chunks []string
	var current []rune

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, string(current))
			current = current[:0]
		}
	}

	for _, word := range strings.Fields(text) {
		runes := []rune(word)
		for len(runes) > maxChunkLen {
			flush()
			chunks = append(chunks, string(runes[:maxChunkLen]))
			runes = runes[maxChunkLen:]
		}
		if len(runes) == 0 {
			continue
		}
		if len(current) > 0 && len(current)+1+len(runes) > maxChunkLen {
			flush()
		}
		if len(current) > 0 {
			current = append(current, ' ')
		}
		current = append(current, runes...)
	}
	flush()

	return chunks
}

// Backend returns the pipeline identifier for health reporting.
func (c *Client) Backend() string {
	return "google-translate-tts"
}
