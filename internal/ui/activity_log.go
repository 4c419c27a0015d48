package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// activityLogMaxLines bounds both the on-screen log and the kept messages.
const activityLogMaxLines = 200

type logLine struct {
	color string
	text  string
}

// ActivityLogView is a scrolling log of job progress and errors.
type ActivityLogView struct {
	textView *tview.TextView
	maxLines int
	lines    []logLine
}

// NewActivityLogView creates a new activity log view.
func NewActivityLogView() *ActivityLogView {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)

	textView.SetTitle(" Activity ").SetBorder(true)

	v := &ActivityLogView{textView: textView}
	v.setMaxLines(activityLogMaxLines)
	return v
}

func (v *ActivityLogView) setMaxLines(n int) {
	v.maxLines = n
	v.textView.SetMaxLines(n)
}

// Widget returns the tview primitive.
func (v *ActivityLogView) Widget() tview.Primitive {
	return v.textView
}

// Info appends a neutral line.
func (v *ActivityLogView) Info(format string, args ...any) {
	v.add("white", fmt.Sprintf(format, args...))
}

// Success appends a green line.
func (v *ActivityLogView) Success(format string, args ...any) {
	v.add("green", fmt.Sprintf(format, args...))
}

// Error appends a red line.
func (v *ActivityLogView) Error(format string, args ...any) {
	v.add("red", fmt.Sprintf(format, args...))
}

// messages returns the retained messages, oldest first.
func (v *ActivityLogView) messages() []string {
	out := make([]string, len(v.lines))
	for i, l := range v.lines {
		out[i] = l.text
	}
	return out
}

func (v *ActivityLogView) add(color, msg string) {
	v.lines = append(v.lines, logLine{color: color, text: msg})
	if len(v.lines) > v.maxLines {
		v.lines = v.lines[len(v.lines)-v.maxLines:]
	}

	stamp := time.Now().Format("15:04:05")
	fmt.Fprintf(v.textView, "[gray]%s[-] [%s]%s[-]\n", stamp, color, tview.Escape(msg))
	v.textView.ScrollToEnd()
}
