// Package reading converts Japanese text into katakana with kagome.
package reading

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ikawaha/kagome-dict/dict"
	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome-dict/uni"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

const (
	DictIPA = "ipa"
	DictUni = "uni"
)

var ErrNoReading = errors.New("no reading")

// Phonetizer reads text with a kagome tokenizer. It satisfies mora.Phonetizer.
type Phonetizer struct {
	tok *tokenizer.Tokenizer
}

// New builds a Phonetizer on the named system dictionary.
func New(dictName string) (*Phonetizer, error) {
	d, err := loadDict(dictName)
	if err != nil {
		return nil, err
	}
	t, err := tokenizer.New(d, tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("create kagome tokenizer: %w", err)
	}
	return &Phonetizer{tok: t}, nil
}

func loadDict(name string) (*dict.Dict, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", DictIPA:
		return ipa.Dict(), nil
	case DictUni:
		return uni.Dict(), nil
	default:
		return nil, fmt.Errorf("unknown kagome dictionary %q", name)
	}
}

// Kana returns the katakana pronunciation of text. Tokens without a known
// reading contribute their surface form unchanged.
func (p *Phonetizer) Kana(text string) (string, error) {
	if p == nil || p.tok == nil {
		return "", ErrNoReading
	}
	var b strings.Builder
	for _, tk := range p.tok.Tokenize(text) {
		b.WriteString(tokenKana(tk))
	}
	if b.Len() == 0 {
		return "", ErrNoReading
	}
	return b.String(), nil
}

func tokenKana(tk tokenizer.Token) string {
	if pron, ok := tk.Pronunciation(); ok && pron != "" && pron != "*" {
		return pron
	}
	if r, ok := tk.Reading(); ok && r != "" && r != "*" {
		return r
	}
	return tk.Surface
}
