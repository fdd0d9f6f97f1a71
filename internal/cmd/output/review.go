package output

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/sheetreview"
	"github.com/agentstation/sheetreview/pkg/session"
)

// Placeholders for empty cells in review output.
const (
	NoAnswer  = "No answer provided"
	NoComment = "No comments yet"
)

// narrowWidth caps answers in the default table format. Wide output
// prints them in full.
const narrowWidth = 80

// ViewData renders the row in view as question/answer pairs. The
// annotation column is left out; see Comment.
func ViewData(v sheetreview.View, wide bool) Data {
	data := Data{
		Headers: []string{"Question", "Answer"},
	}
	if v.Row == nil {
		return data
	}
	for i, question := range v.Headers {
		if i == v.AnnotationColumn {
			continue
		}
		answer := strings.TrimSpace(v.Row.Field(i))
		if answer == "" {
			answer = NoAnswer
		} else if !wide {
			answer = truncate(answer, narrowWidth)
		}
		data.Rows = append(data.Rows, []string{question, answer})
	}
	return data
}

// Comment returns the annotation shown for v, or the placeholder.
func Comment(v sheetreview.View) string {
	if v.Annotation == "" {
		return NoComment
	}
	return v.Annotation
}

// Summary describes where the viewer is, e.g.
// "Submission 2 of 14 (sheet row 3) | filter: C = yes | Reviewing as ada@example.com".
func Summary(v sheetreview.View) string {
	var parts []string
	switch {
	case v.Row != nil:
		parts = append(parts, fmt.Sprintf("Submission %d of %d (sheet row %d)",
			v.Pagination.Page, v.Pagination.Total, v.Row.SheetRow()))
	case v.Loaded:
		parts = append(parts, fmt.Sprintf("No submission at page %d of %d",
			v.Pagination.Page, v.Pagination.Total))
	default:
		parts = append(parts, "Loading")
	}
	if v.Filter != nil {
		col := fmt.Sprint(v.Filter.Column)
		if v.Filter.Column < len(v.Headers) {
			col = v.Headers[v.Filter.Column]
		}
		parts = append(parts, fmt.Sprintf("filter: %s = %s", col, v.Filter.Value))
	}
	if len(v.Sections) > 0 {
		labels := make([]string, len(v.Sections))
		caser := cases.Title(language.English)
		for i, s := range v.Sections {
			labels[i] = caser.String(s.Label)
		}
		parts = append(parts, "sections: "+strings.Join(labels, ", "))
	}
	if v.Identity != "" {
		parts = append(parts, "Reviewing as "+v.Identity)
	}
	return strings.Join(parts, " | ")
}

// WriteView prints v in format. Table output shows the summary, the
// answers and the comment; structured formats print the view itself.
func WriteView(w io.Writer, format Format, v sheetreview.View) error {
	if !format.Tabular() {
		return Write(w, format, v)
	}

	if _, err := fmt.Fprintln(w, Summary(v)); err != nil {
		return err
	}
	if v.LastError != "" {
		if _, err := fmt.Fprintf(w, "Last error: %s\n", v.LastError); err != nil {
			return err
		}
	}
	if v.Row == nil {
		return nil
	}
	if err := Write(w, format, ViewData(v, format == FormatWide)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nComment: %s\n", Comment(v))
	return err
}

// NoticeData renders a conflict notice next to the local draft.
func NoticeData(n session.Notice) Data {
	remote := n.RemoteValue
	switch {
	case n.Removed:
		remote = "(row deleted)"
	case remote == "":
		remote = "(empty)"
	}
	return Data{
		Headers: []string{"", "Annotation"},
		Rows: [][]string{
			{"Remote", remote},
			{"When edit began", n.Baseline},
			{"Your draft", n.Draft},
		},
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
