package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/wolfman30/govsense/internal/classification"
	"github.com/wolfman30/govsense/internal/transcript"
)

func renderTurn(w io.Writer, t transcript.Turn) {
	stamp := t.Timestamp.Local().Format("15:04:05")
	if t.Role == transcript.RoleUser {
		fmt.Fprintf(w, "[%d] you %s\n", t.Seq, stamp)
		if t.Text != "" {
			fmt.Fprintf(w, "    %s\n", t.Text)
		}
		if img := t.Image; img != nil {
			fmt.Fprintf(w, "    [image %s, %s, %s]\n", img.Filename, img.ContentType, formatSize(img.Size))
		}
		return
	}

	fmt.Fprintf(w, "[%d] GovSense %s\n", t.Seq, stamp)
	if t.Result == nil {
		fmt.Fprintf(w, "    %s\n", t.Error)
		return
	}
	view, err := classification.Interpret(t.Result)
	if err != nil {
		fmt.Fprintf(w, "    result could not be displayed: %v\n", err)
		return
	}
	renderView(w, view)
}

func renderView(w io.Writer, v classification.View) {
	if b := v.Band; b != nil {
		fmt.Fprintf(w, "    %s  constructive %s  destructive %s\n", b.Band, b.Constructive, b.Destructive)
	}
	if v.Category != "" {
		fmt.Fprintf(w, "    %s %s  confidence %s\n", v.CategoryIcon, v.CategoryLabel, v.Confidence)
	}
	if v.Explanation != "" {
		fmt.Fprintf(w, "    %s\n", v.Explanation)
	}
	if len(v.Criteria) > 0 {
		fmt.Fprintf(w, "    Scores:\n")
		for _, row := range v.Criteria {
			fmt.Fprintf(w, "      %s %-22s %3d  %s\n", row.Icon, row.Label, row.Score, row.Tier)
			if row.Reasoning != "" {
				fmt.Fprintf(w, "         %s\n", row.Reasoning)
			}
		}
	}
	renderList(w, "Red flags", v.RedFlags)
	renderList(w, "Key findings", v.KeyFindings)
	renderList(w, "Context", v.ContextReferences)
	if v.OverallImpression != "" {
		fmt.Fprintf(w, "    Overall: %s\n", v.OverallImpression)
	}
}

func renderList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "    %s:\n", title)
	for _, item := range items {
		fmt.Fprintf(w, "      - %s\n", strings.TrimSpace(item))
	}
}
