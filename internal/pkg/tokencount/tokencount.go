// Package tokencount estimates prompt sizes with the cl100k_base BPE.
package tokencount

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

func init() {
	// Offline loader: no network fetch of the encoding files.
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
	encodingErr  error
)

func getEncoding() (*tiktoken.Tiktoken, error) {
	encodingOnce.Do(func() {
		encoding, encodingErr = tiktoken.GetEncoding("cl100k_base")
	})
	return encoding, encodingErr
}

// Count returns the token count of text, falling back to a rune-based
// estimate when the encoding is unavailable.
func Count(text string) int {
	if text == "" {
		return 0
	}
	enc, err := getEncoding()
	if err != nil {
		return EstimateFallback(text)
	}
	return len(enc.Encode(text, nil, nil))
}

// EstimateFallback approximates tokens as one per four runes, the usual
// rule of thumb for English text.
func EstimateFallback(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	est := n / 4
	if est == 0 {
		return 1
	}
	return est
}
