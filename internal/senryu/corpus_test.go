package senryu

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitLine(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"slash", "古池や/蛙飛びこむ/水の音", []string{"古池や", "蛙飛びこむ", "水の音"}},
		{"slash with blanks", " 古池や / 蛙飛びこむ //水の音 ", []string{"古池や", "蛙飛びこむ", "水の音"}},
		{"full width spaces", "古池や　　蛙飛びこむ　水の音", []string{"古池や", "蛙飛びこむ", "水の音"}},
		{"mixed spaces", "古池や 　蛙飛びこむ 水の音", []string{"古池や", "蛙飛びこむ", "水の音"}},
		{"two parts", "古池や 蛙飛びこむ", []string{"古池や", "蛙飛びこむ"}},
		{"empty", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitLine(tt.in))
		})
	}
}

func TestParseOriginalsSkipsMalformed(t *testing.T) {
	text := "あいうえお かきくけこさし たちつてと\n\nひとつだけ\nなにぬねの/はひふへほまみ/やゆよわを\na b c d\n"
	originals, skipped := ParseOriginals(text)
	require.Len(t, originals, 2)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, []string{"あいうえお", "かきくけこさし", "たちつてと"}, originals[0].Lines)
	assert.Equal(t, "なにぬねの/はひふへほまみ/やゆよわを", originals[1].Raw)
}

func TestLoadOriginals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "originals.txt")
	require.NoError(t, os.WriteFile(path, []byte("\ufeffあいうえお かきくけこさし たちつてと\n"), 0o644))

	originals, skipped, err := LoadOriginals(path)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, originals, 1)
	assert.Equal(t, []string{"あいうえお かきくけこさし たちつてと"}, RawTexts(originals))

	_, _, err = LoadOriginals(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestStyleProfileJSON(t *testing.T) {
	s, err := StyleProfile(nil).JSON()
	require.NoError(t, err)
	assert.Equal(t, "{}", s)

	s, err = StyleProfile{"tone": "口語"}.JSON()
	require.NoError(t, err)
	assert.Equal(t, `{"tone":"口語"}`, s)
}
