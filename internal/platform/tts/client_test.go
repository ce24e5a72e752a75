package tts

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSplitText_Short(t *testing.T) {
	chunks := SplitText("Cook the rice.")
	assert.Equal(t, []string{"Cook the rice."}, chunks)
}

func TestSplitText_LongText(t *testing.T) {
	text := strings.Repeat("chop the vegetables finely ", 20)
	chunks := SplitText(text)

	assert.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 100)
	}
	// No words are lost or altered by chunking.
	assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(chunks, " ")))
}

func TestSplitText_OversizedWord(t *testing.T) {
	word := strings.Repeat("a", 230)
	chunks := SplitText(word)

	assert.Equal(t, 3, len(chunks))
	assert.Equal(t, word, strings.Join(chunks, ""))
}

func TestSplitText_MultibyteRunes(t *testing.T) {
	// Unspaced CJK text is a single long word; chunking must stay on rune
	// boundaries so every fragment is valid UTF-8.
	text := strings.Repeat("ご飯を炊いてトマトを加える。", 10)
	chunks := SplitText(text)

	assert.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk))
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 100)
	}
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSplitText_MultibyteWords(t *testing.T) {
	chunks := SplitText("Füge die Zwiebeln hinzu und brate sie goldbraun an. Würze mit Salz und Pfeffer.")

	assert.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk))
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 100)
	}
}

func TestSplitText_Empty(t *testing.T) {
	assert.Empty(t, SplitText("   "))
}

func TestSynthesize(t *testing.T) {
	var requests []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "en", q.Get("tl"))
		assert.Equal(t, "tw-ob", q.Get("client"))
		requests = append(requests, q.Get("q"))
		fmt.Fprintf(w, "[audio:%s]", q.Get("idx"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "en")
	path := filepath.Join(t.TempDir(), "out.mp3")

	text := strings.Repeat("stir the sauce gently ", 10)
	err := client.Synthesize(context.Background(), text, path)
	assert.NoError(t, err)

	// One request per chunk, fragments concatenated in order.
	assert.Equal(t, SplitText(text), requests)

	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	expected := ""
	for i := range requests {
		expected += fmt.Sprintf("[audio:%d]", i)
	}
	assert.Equal(t, expected, string(data))
}

func TestSynthesize_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, "en")
	path := filepath.Join(t.TempDir(), "out.mp3")

	err := client.Synthesize(context.Background(), "stir the sauce", path)
	assert.Error(t, err)

	// A failed synthesis leaves no partial file behind.
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSynthesize_EmptyText(t *testing.T) {
	client := NewClient("http://unused.invalid", "en")
	err := client.Synthesize(context.Background(), "   ", filepath.Join(t.TempDir(), "out.mp3"))
	assert.Error(t, err)
}
