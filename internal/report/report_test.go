package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igolaizola/senryu/internal/senryu"
)

var ranked = []senryu.ScoredCandidate{
	{
		Candidate:  senryu.Candidate{Type: "new", Lines: []string{"あいうえお", "かきくけこさし", "たちつてと"}, Note: "軽み"},
		RuleScore:  10,
		ModelScore: 7.5,
		TotalScore: 17.5,
		Reasons:    []string{"5-7-5 OK"},
	},
	{
		Candidate:  senryu.Candidate{Type: "parody", Lines: []string{"ああああい", "ああああああい", "ああああい"}},
		RuleScore:  8.5,
		TotalScore: 8.5,
	},
}

func TestMarkdown(t *testing.T) {
	want := "# 川柳AI 上位結果\n\n" +
		"## 1. score=17.50 (rule=10.0, llm=7.5)\n" +
		"- あいうえお\n- かきくけこさし\n- たちつてと\n" +
		"- note: 軽み\n" +
		"- reasons: 5-7-5 OK\n\n" +
		"## 2. score=8.50 (rule=8.5, llm=0.0)\n" +
		"- ああああい\n- ああああああい\n- ああああい\n\n"
	if diff := cmp.Diff(want, Markdown(Rows(ranked))); diff != "" {
		t.Errorf("markdown mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteResults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, WriteResults(dir, Rows(ranked)))

	data, err := os.ReadFile(filepath.Join(dir, ResultsJSON))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"lines": [`)
	assert.Contains(t, string(data), "かきくけこさし")
	assert.Equal(t, byte('\n'), data[len(data)-1])

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, 17.5, rows[0]["total"])
	assert.Equal(t, "", rows[1]["note"])
	assert.Equal(t, []any{}, rows[1]["reasons"])

	_, err = os.Stat(filepath.Join(dir, ResultsMD))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, ResultsJSON+".tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestWriteJSONKeepsHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.json")
	require.NoError(t, WriteJSON(path, map[string]string{"a": "<b>&"}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": \"<b>&\"\n}\n", string(data))
}

func TestRender(t *testing.T) {
	out, err := Render(Markdown(Rows(ranked)), 0)
	require.NoError(t, err)
	assert.Contains(t, out, "かきくけこさし")
}
