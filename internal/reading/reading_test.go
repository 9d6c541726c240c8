package reading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igolaizola/senryu/internal/mora"
)

func TestUnknownDict(t *testing.T) {
	_, err := New("jumandic")
	assert.Error(t, err)
}

func TestKanaIPA(t *testing.T) {
	p, err := New(DictIPA)
	require.NoError(t, err)

	kana, err := p.Kana("東京")
	require.NoError(t, err)
	assert.Equal(t, 4, mora.CountKana(mora.FilterKana(kana)), kana)

	c := mora.NewCounter(mora.WithPhonetizer(p))
	assert.Equal(t, 5, c.Count("今日は晴れ"))
	assert.Equal(t, 0, c.Count(""))
}

func TestNilPhonetizer(t *testing.T) {
	var p *Phonetizer
	_, err := p.Kana("東京")
	assert.ErrorIs(t, err, ErrNoReading)
}
