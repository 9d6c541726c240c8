// Package report writes the ranking and run artifacts.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/igolaizola/senryu/internal/senryu"
)

const (
	ResultsJSON  = "results.json"
	ResultsMD    = "results.md"
	StyleProfile = "style_profile.json"
	RunLog       = "run_log.json"
)

// Row is one entry of results.json.
type Row struct {
	Total   float64  `json:"total"`
	Rule    float64  `json:"rule"`
	LLM     float64  `json:"llm"`
	Type    string   `json:"type"`
	Lines   []string `json:"lines"`
	Note    string   `json:"note"`
	Reasons []string `json:"reasons"`
}

func Rows(ranked []senryu.ScoredCandidate) []Row {
	rows := make([]Row, 0, len(ranked))
	for _, s := range ranked {
		reasons := s.Reasons
		if reasons == nil {
			reasons = []string{}
		}
		rows = append(rows, Row{
			Total:   s.TotalScore,
			Rule:    s.RuleScore,
			LLM:     s.ModelScore,
			Type:    s.Candidate.Type,
			Lines:   s.Candidate.Lines,
			Note:    s.Candidate.Note,
			Reasons: reasons,
		})
	}
	return rows
}

// Markdown renders the ranking, one section per poem.
func Markdown(rows []Row) string {
	var b strings.Builder
	b.WriteString("# 川柳AI 上位結果\n\n")
	for i, r := range rows {
		fmt.Fprintf(&b, "## %d. score=%.2f (rule=%.1f, llm=%.1f)\n", i+1, r.Total, r.Rule, r.LLM)
		for _, l := range r.Lines {
			fmt.Fprintf(&b, "- %s\n", l)
		}
		if r.Note != "" {
			fmt.Fprintf(&b, "- note: %s\n", r.Note)
		}
		if len(r.Reasons) > 0 {
			fmt.Fprintf(&b, "- reasons: %s\n", strings.Join(r.Reasons, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// WriteResults writes results.json and results.md into dir.
func WriteResults(dir string, rows []Row) error {
	if err := WriteJSON(filepath.Join(dir, ResultsJSON), rows); err != nil {
		return fmt.Errorf("write %s: %w", ResultsJSON, err)
	}
	if err := WriteFile(filepath.Join(dir, ResultsMD), []byte(Markdown(rows))); err != nil {
		return fmt.Errorf("write %s: %w", ResultsMD, err)
	}
	return nil
}

// WriteJSON writes v as indented JSON with a trailing newline. Non-ASCII and
// HTML characters are written as is.
func WriteJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return WriteFile(path, buf.Bytes())
}

// WriteFile writes through a temporary file so readers never see a partial
// artifact.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Render formats markdown for the terminal.
func Render(md string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}
