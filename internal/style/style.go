// Package style summarises a corpus of originals into a style profile.
package style

import (
	"context"
	"fmt"
	"strings"

	"github.com/igolaizola/senryu/internal/llm"
	"github.com/igolaizola/senryu/internal/recovery"
	"github.com/igolaizola/senryu/internal/senryu"
)

// MaxSamples is the number of originals shown to the model.
const MaxSamples = 200

// Keys lists the fields the profile prompt asks for.
var Keys = []string{"tone", "themes", "diction", "imagery", "rhythm", "constraints", "examples"}

// Build asks the model to describe the style of originals.
func Build(ctx context.Context, client llm.Client, originals []string) (senryu.StyleProfile, error) {
	text, err := client.Generate(ctx, buildPrompt(originals))
	if err != nil {
		return nil, fmt.Errorf("style profile: %w", err)
	}
	obj, err := recovery.ExtractObject(text)
	if err != nil {
		return nil, fmt.Errorf("style profile: %w", err)
	}
	return senryu.StyleProfile(obj), nil
}

// Missing returns the expected keys absent from p.
func Missing(p senryu.StyleProfile) []string {
	var out []string
	for _, k := range Keys {
		if _, ok := p[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}

func buildPrompt(originals []string) string {
	b := strings.Builder{}
	b.WriteString("あなたは川柳の編集者です。以下の川柳群から作者の作風を抽出し、\n")
	b.WriteString("生成時に再現できる「スタイルプロファイル」をJSONで作成してください。\n\n")
	b.WriteString("必須キー:\n")
	b.WriteString("- tone: 雰囲気（例: 口語/やさしい/ユーモア等）\n")
	b.WriteString("- themes: よく出るテーマ上位5\n")
	b.WriteString("- diction: 語彙の特徴（抽象/具体、硬い/柔らかい等）\n")
	b.WriteString("- imagery: 情景の傾向\n")
	b.WriteString("- rhythm: リズムや切れの傾向\n")
	b.WriteString("- constraints: 守るべきルール（例: 説明しすぎない 等）\n")
	b.WriteString("- examples: 作者らしさが強い例を3つ（原文そのまま）\n\n")
	b.WriteString("川柳一覧:\n")
	for i, s := range originals {
		if i >= MaxSamples {
			break
		}
		b.WriteString("- ")
		b.WriteString(s)
		b.WriteString("\n")
	}
	b.WriteString("\n出力はJSONのみ。余計な文章は禁止。")
	return b.String()
}
