package generate

import (
	"fmt"
	"strings"
)

// MaxSeeds is the number of originals quoted in a generation prompt.
const MaxSeeds = 50

type promptRequest struct {
	Profile string
	Seeds   []string
	Count   int
	// Violation describes what was wrong with the previous attempt.
	Violation string
}

func buildPrompt(req promptRequest) string {
	b := strings.Builder{}
	b.WriteString("あなたは川柳作家です。以下のスタイルプロファイルに厳密に従って川柳を作成してください。\n\n")
	b.WriteString("【スタイルプロファイル(JSON)】\n")
	b.WriteString(req.Profile)
	b.WriteString("\n\n【元の川柳（作風の参考。コピペ禁止）】\n")
	for i, s := range req.Seeds {
		if i >= MaxSeeds {
			break
		}
		b.WriteString("- ")
		b.WriteString(s)
		b.WriteString("\n")
	}
	b.WriteString("\n【重要：五七五の形式】\n")
	b.WriteString("川柳は必ず「上5音・中7音・下5音」の形式です。\n")
	b.WriteString("- 上句：5音（例：「スキー授業」= 5音）\n")
	b.WriteString("- 中句：7音（例：「ゲレンデ行こう！と」= 7音）\n")
	b.WriteString("- 下句：5音（例：「グラウンドへ」= 5音）\n\n")
	b.WriteString("音数（モーラ数）の数え方：\n")
	b.WriteString("- 通常の文字：1音\n")
	b.WriteString("- 小文字（ゃゅょぁぃぅぇぉ）：直前の文字と合わせて1音\n")
	b.WriteString("- 長音（ー）・促音（っ）・撥音（ん）：各1音\n\n")
	b.WriteString("要件:\n")
	b.WriteString("- 形式は必ず3行（上/中/下）\n")
	b.WriteString("- 上5音 / 中7音 / 下5音 を厳密に守る（これが最重要）\n")
	b.WriteString("- 余韻・含意を重視。説明しすぎない\n")
	b.WriteString("- ありきたり回避（定型フレーズ連発禁止）\n")
	b.WriteString("- 出力はJSON配列のみ（余計な説明文は不要）\n")
	b.WriteString("- 1要素の形式:\n")
	b.WriteString(`  {"type":"new","lines":["上句（5音）","中句（7音）","下句（5音）"],"note":"狙い（短く）"}`)
	b.WriteString("\n\n【重要：JSON形式について】\n")
	b.WriteString("- 文字列内の引用符はエスケープ不要（通常の \" でOK）\n")
	b.WriteString("- 配列の最後の要素の後にもカンマを付けない\n")
	b.WriteString("- 有効なJSON形式であることを確認してください\n\n")
	if req.Violation != "" {
		b.WriteString("前回の出力の問題点: ")
		b.WriteString(req.Violation)
		b.WriteString("\n\n")
	}
	b.WriteString(fmt.Sprintf("%d件生成。各候補は必ず五七五の形式にしてください。\n", req.Count))
	b.WriteString(fmt.Sprintf("可能な限り多くの候補を生成してください（最低でも%d件以上）。", req.Count))
	return b.String()
}
