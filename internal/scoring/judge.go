package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/igolaizola/senryu/internal/llm"
	"github.com/igolaizola/senryu/internal/recovery"
	"github.com/igolaizola/senryu/internal/senryu"
)

// JudgeError reports a judge response that cannot be used as scores.
type JudgeError struct {
	Want int
	Got  int
	Raw  string
	Err  error
}

func (e *JudgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("judge: invalid scores: %v", e.Err)
	}
	return fmt.Sprintf("judge: got %d scores for %d candidates", e.Got, e.Want)
}

func (e *JudgeError) Unwrap() error { return e.Err }

// Judge asks the model for one 0-10 score per candidate, in order.
func Judge(ctx context.Context, client llm.Client, profile senryu.StyleProfile, cands []senryu.Candidate) ([]float64, error) {
	if len(cands) == 0 {
		return []float64{}, nil
	}
	prompt, err := buildJudgePrompt(profile, cands)
	if err != nil {
		return nil, err
	}
	text, err := client.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("judge: %w", err)
	}
	return parseScores(text, len(cands))
}

func parseScores(text string, want int) ([]float64, error) {
	arr, err := recovery.LocateArray(text)
	if err != nil {
		return nil, &JudgeError{Want: want, Raw: text, Err: err}
	}
	var scores []float64
	if err := json.Unmarshal([]byte(arr), &scores); err != nil {
		return nil, &JudgeError{Want: want, Raw: text, Err: err}
	}
	if len(scores) != want {
		return nil, &JudgeError{Want: want, Got: len(scores), Raw: text}
	}
	return scores, nil
}

func buildJudgePrompt(profile senryu.StyleProfile, cands []senryu.Candidate) (string, error) {
	profileJSON, err := profile.JSON()
	if err != nil {
		return "", err
	}
	items, err := json.Marshal(cands)
	if err != nil {
		return "", fmt.Errorf("marshal candidates: %w", err)
	}
	b := strings.Builder{}
	b.WriteString("あなたは川柳の選者です。以下のスタイルプロファイルに照らして各候補を0〜10点で採点してください。\n\n")
	b.WriteString("評価軸:\n")
	b.WriteString("- 作者らしさ（作風一致）\n")
	b.WriteString("- 余韻・含意\n")
	b.WriteString("- 新規性（ありきたり回避）\n")
	b.WriteString("- 情景の立ち上がり\n\n")
	b.WriteString("【スタイルプロファイル】\n")
	b.WriteString(profileJSON)
	b.WriteString("\n\n【候補(JSON)】\n")
	b.Write(items)
	b.WriteString("\n\n出力は点数のみのJSON配列。候補と同じ順序・同じ件数。")
	return b.String(), nil
}
