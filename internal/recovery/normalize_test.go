package recovery

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) []any {
	t.Helper()
	var items []any
	require.NoError(t, json.Unmarshal([]byte(s), &items))
	return items
}

func TestNormalizeLines(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"three", `[{"lines":["あ","い","う"]}]`, []string{"あ", "い", "う"}},
		{"truncate", `[{"lines":["あ","い","う","え"]}]`, []string{"あ", "い", "う"}},
		{"pad", `[{"lines":["あ","い"]}]`, []string{"あ", "い", ""}},
		{"empty", `[{"lines":[]}]`, []string{"", "", ""}},
		{"string", `[{"lines":"あいうえお　かきくけこさし　たちつてと"}]`, []string{"あいうえお", "かきくけこさし", "たちつてと"}},
		{"full-width split", `[{"lines":["あいうえお　　かきくけこさし　たちつてと　なにぬ"]}]`, []string{"あいうえお", "かきくけこさし", "たちつてと"}},
		{"half-width split", `[{"lines":["あいうえお かきくけこさし"]}]`, []string{"あいうえお", "かきくけこさし", ""}},
		{"unsplittable", `[{"lines":["あいうえお"]}]`, []string{"あいうえお", "", ""}},
		{"legacy", `[{"上句":"あいうえお","中句":"かきくけこさし","下句":"たちつてと"}]`, []string{"あいうえお", "かきくけこさし", "たちつてと"}},
		{"legacy without upper", `[{"中句":"かきくけこさし","下句":["たちつてと"]}]`, []string{"", "かきくけこさし", "たちつてと"}},
		{"legacy beats string lines", `[{"lines":"あいうえお","中句":"かきくけこさし","下句":"たちつてと"}]`, []string{"", "かきくけこさし", "たちつてと"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cands, drops := normalize(decode(t, tt.in))
			require.Empty(t, drops)
			require.Len(t, cands, 1)
			if diff := cmp.Diff(tt.want, cands[0].Lines); diff != "" {
				t.Errorf("lines mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalizeDrops(t *testing.T) {
	in := `[
		"just a string",
		{"type":"new"},
		{"lines":["あ",5,"う"]},
		{"lines":["古池や","い","う"]},
		{"lines":"古池や　い　う"},
		{"lines":{"a":"b"}},
		{"type":"new","lines":["あ","い","う"],"note":"ok"}
	]`
	cands, drops := normalize(decode(t, in))
	require.Len(t, cands, 1)
	assert.Equal(t, "ok", cands[0].Note)
	assert.Equal(t, []DropRecord{
		{Index: 0, Reason: ReasonNotObject},
		{Index: 1, Reason: ReasonMissingLines},
		{Index: 2, Reason: ReasonNonString},
		{Index: 3, Reason: ReasonCJK},
		{Index: 4, Reason: ReasonCJK},
		{Index: 5, Reason: ReasonNonString},
	}, drops)
}

func TestNormalizeChecksCJKBeforeSynthesis(t *testing.T) {
	cands, drops := normalize(decode(t, `[{"中句":"古池や","下句":"たちつてと"}]`))
	assert.Empty(t, drops)
	require.Len(t, cands, 1)
	assert.Equal(t, []string{"", "古池や", "たちつてと"}, cands[0].Lines)
}

func TestNormalizeIgnoresNonStringMetadata(t *testing.T) {
	cands, _ := normalize(decode(t, `[{"type":3,"note":["x"],"lines":["あ","い","う"]}]`))
	require.Len(t, cands, 1)
	assert.Empty(t, cands[0].Type)
	assert.Empty(t, cands[0].Note)
}
