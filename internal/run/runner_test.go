package run

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/igolaizola/senryu/internal/llm"
	"github.com/igolaizola/senryu/internal/report"
)

const (
	profileReply = `作風はこちら: {"tone":"口語","themes":["日常"]}`

	candidatesReply = "```json\n[" +
		`{"type":"new","lines":["あいうえお","かきくけこさし","たちつてと"],"note":"a"},` +
		`{"type":"new","lines":["あいうえお","かきくけこさし","なにぬです"],"note":"b"},` +
		`{"type":"parody","lines":["ああああい","ああああああい","ああああい"],"note":"c"},` +
		`{"type":"new","lines":["あいう","かきくけこさし","たちつてと"]},` +
		`{"type":"new","lines":["あいうえおか","かきくけこさし","たちつてと"]}` +
		"]\n```"
)

func writeOriginals(t *testing.T, n int) string {
	t.Helper()
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString("あいうえお かきくけこさし たちつてと\n")
	}
	b.WriteString("壊れた行\n")
	path := filepath.Join(t.TempDir(), "originals.txt")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

type stub struct {
	generation string
	judge      string
	calls      atomic.Int32
}

func (s *stub) client() llm.Client {
	return llm.Func(func(_ context.Context, prompt string) (string, error) {
		s.calls.Add(1)
		switch {
		case strings.Contains(prompt, "川柳の選者"):
			return s.judge, nil
		case strings.Contains(prompt, "川柳の編集者"):
			return profileReply, nil
		case strings.Contains(prompt, "川柳作家"):
			return s.generation, nil
		}
		return "", errors.New("unexpected prompt")
	})
}

func testConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.Originals = writeOriginals(t, 12)
	cfg.Generation.N = 5
	cfg.Scoring.Keep = 2
	cfg.Scoring.Judge = false
	cfg.Reading.Enabled = false
	cfg.Output.Dir = filepath.Join(t.TempDir(), "out")
	require.NoError(t, cfg.Validate())
	return cfg
}

func readRunLog(t *testing.T, dir string) RunLog {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, report.RunLog))
	require.NoError(t, err)
	var rl RunLog
	require.NoError(t, json.Unmarshal(data, &rl))
	return rl
}

func TestExecute(t *testing.T) {
	cfg := testConfig(t)
	s := &stub{generation: candidatesReply}
	r := NewRunner(cfg, WithClient(s.client()), WithLogger(zaptest.NewLogger(t)))

	res, err := r.Execute(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Empty)
	assert.Equal(t, 5, res.Generated)
	assert.Equal(t, 3, res.Survivors)
	assert.Len(t, res.Rejected, 2)
	assert.Equal(t, int32(2), s.calls.Load())

	require.Len(t, res.Ranked, 2)
	got := [][]string{res.Ranked[0].Candidate.Lines, res.Ranked[1].Candidate.Lines}
	want := [][]string{
		{"あいうえお", "かきくけこさし", "たちつてと"},
		{"ああああい", "ああああああい", "ああああい"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ranking mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 10.0, res.Ranked[0].TotalScore)
	assert.Equal(t, 8.5, res.Ranked[1].TotalScore)
	assert.Zero(t, res.Ranked[0].ModelScore)
	assert.Contains(t, res.Markdown, "# 川柳AI 上位結果")
	assert.Contains(t, res.Markdown, "## 1. score=10.00 (rule=10.0, llm=0.0)")

	for _, name := range []string{report.ResultsJSON, report.ResultsMD, report.StyleProfile, report.RunLog} {
		assert.FileExists(t, filepath.Join(cfg.Output.Dir, name))
	}

	var rows []report.Row
	data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, report.ResultsJSON))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].Note)

	var profile map[string]any
	data, err = os.ReadFile(filepath.Join(cfg.Output.Dir, report.StyleProfile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &profile))
	assert.Equal(t, "口語", profile["tone"])

	rl := readRunLog(t, cfg.Output.Dir)
	assert.Equal(t, res.RunID, rl.RunID)
	assert.NotEmpty(t, rl.RunID)
	assert.Equal(t, 12, rl.OriginalsLoaded)
	assert.Equal(t, 1, rl.OriginalsSkipped)
	assert.Equal(t, 5, rl.Requested)
	assert.Equal(t, 1, rl.Generation.Batches)
	assert.Equal(t, 3, rl.Survivors)
	assert.Equal(t, 2, rl.Rejected)
	assert.Equal(t, 2, rl.Kept)
	assert.False(t, rl.Judged)
	assert.Equal(t, stopDone, rl.StoppedReason)
}

func TestExecuteWithJudge(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scoring.Judge = true
	s := &stub{generation: candidatesReply, judge: "採点: [1, 9, 5]"}
	r := NewRunner(cfg, WithClient(s.client()), WithLogger(zaptest.NewLogger(t)))

	res, err := r.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), s.calls.Load())
	require.Len(t, res.Ranked, 2)
	assert.Equal(t, "b", res.Ranked[0].Candidate.Note)
	assert.Equal(t, 17.0, res.Ranked[0].TotalScore)
	assert.Equal(t, 9.0, res.Ranked[0].ModelScore)
	assert.Equal(t, "c", res.Ranked[1].Candidate.Note)
	assert.Equal(t, 13.5, res.Ranked[1].TotalScore)
	assert.True(t, readRunLog(t, cfg.Output.Dir).Judged)
}

func TestExecuteJudgeCountMismatch(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scoring.Judge = true
	s := &stub{generation: candidatesReply, judge: "[1, 2]"}
	r := NewRunner(cfg, WithClient(s.client()))

	_, err := r.Execute(context.Background())
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(cfg.Output.Dir, report.ResultsJSON))
}

func TestExecuteEmptyOutcome(t *testing.T) {
	cfg := testConfig(t)
	s := &stub{generation: `[{"type":"new","lines":["あいう","かきくけこさし","たちつてと"]}]`}
	r := NewRunner(cfg, WithClient(s.client()), WithLogger(zaptest.NewLogger(t)))

	res, err := r.Execute(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Empty)
	assert.Empty(t, res.Ranked)
	assert.Empty(t, res.Markdown)
	require.Len(t, res.Rejected, 1)

	assert.NoFileExists(t, filepath.Join(cfg.Output.Dir, report.ResultsJSON))
	assert.NoFileExists(t, filepath.Join(cfg.Output.Dir, report.ResultsMD))
	rl := readRunLog(t, cfg.Output.Dir)
	assert.Equal(t, stopEmpty, rl.StoppedReason)
	assert.Equal(t, 0, rl.Kept)
	require.Len(t, rl.RejectedSamples, 1)
	assert.Equal(t, []string{"off 5-7-5"}, rl.RejectedSamples[0].Reasons)
}

func TestExecuteNoOriginals(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(path, []byte("一行だけ\n\n"), 0o644))
	cfg.Originals = path
	s := &stub{}
	_, err := NewRunner(cfg, WithClient(s.client())).Execute(context.Background())
	require.Error(t, err)
	assert.Zero(t, s.calls.Load())

	cfg.Originals = filepath.Join(t.TempDir(), "missing.txt")
	_, err = NewRunner(cfg, WithClient(s.client())).Execute(context.Background())
	require.Error(t, err)
}

func TestExecuteCanceled(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	client := llm.Func(func(_ context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "川柳の編集者") {
			cancel()
			return profileReply, nil
		}
		return candidatesReply, nil
	})
	_, err := NewRunner(cfg, WithClient(client)).Execute(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(cfg.Output.Dir, report.RunLog))
}
