package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

func (r *Root) topOverlay() string {
	switch {
	case r.helpOpen:
		return "help"
	case r.confirmOpen:
		return "confirm"
	}
	return ""
}

func (r *Root) overlayActive() bool {
	return r.topOverlay() != ""
}

func (r *Root) closeTopOverlay() {
	switch r.topOverlay() {
	case "help":
		r.helpOpen = false
	case "confirm":
		r.confirmOpen = false
		r.confirmIndex = 0
	}
}

func (r *Root) renderOverlay() string {
	width := min(64, max(30, r.cols-8))
	switch r.topOverlay() {
	case "help":
		var lines []string
		for _, group := range r.screenKeys().FullHelp() {
			for _, b := range group {
				h := b.Help()
				lines = append(lines, fmt.Sprintf("%-12s %s", h.Key, h.Desc))
			}
		}
		lines = append(lines, "", "Esc closes this window.")
		return r.drawPanel("Keys · "+r.screen.String(), lines, width)
	case "confirm":
		yes, no := "  Yes  ", "  Not yet  "
		if r.confirmIndex == 0 {
			yes = "[ Yes ]"
		} else {
			no = "[ Not yet ]"
		}
		lines := []string{
			"Finish " + firstNonEmptyStr(r.lesson.Level.Title, "this lesson") + "?",
			"",
			fmt.Sprintf("You will earn %d points.", r.lesson.Level.PointsReward),
			"",
			yes + "   " + no,
		}
		return r.drawPanel("Complete lesson", lines, width)
	}
	return ""
}

func (r *Root) renderToast() string {
	if len(r.activeToasts) == 0 {
		return ""
	}
	a := r.activeToasts[len(r.activeToasts)-1].Achievement
	lines := []string{r.glyph("", a.Icon+" ") + a.Name}
	if a.Description != "" {
		lines = append(lines, a.Description)
	}
	if a.Points > 0 {
		lines = append(lines, fmt.Sprintf("+%d points", a.Points))
	}
	if extra := len(r.activeToasts) - 1; extra > 0 {
		lines = append(lines, fmt.Sprintf("(%d more, ctrl+d to dismiss)", extra))
	}
	return r.drawPanel("Achievement unlocked", lines, min(44, max(24, r.cols/3)))
}

// composeToast slides the toast in from the right edge as toastPos moves
// from 0 to 1.
func (r *Root) composeToast(base, toast string) string {
	w := 0
	for _, line := range strings.Split(toast, "\n") {
		w = max(w, visibleWidth(line))
	}
	shown := int(r.toastPos * float64(w+1))
	if shown <= 0 {
		return base
	}
	return composeOverlayAt(base, toast, r.cols, r.rows, 1, r.cols-shown)
}

// drawPanel boxes lines under a title. ASCII mode avoids box drawing runes.
func (r *Root) drawPanel(title string, lines []string, width int) string {
	inner := max(4, width-4)
	tl, tr, bl, br, h, v := "┌", "┐", "└", "┘", "─", "│"
	if r.ascii {
		tl, tr, bl, br, h, v = "+", "+", "+", "+", "-", "|"
	}
	title = trimForWidth(" "+title+" ", inner)
	out := []string{tl + h + title + strings.Repeat(h, max(0, inner+1-len([]rune(title)))) + tr}
	for _, line := range lines {
		for _, wrapped := range wrapText(ansi.Strip(line), inner) {
			out = append(out, v+" "+padRune(wrapped, inner)+" "+v)
		}
	}
	out = append(out, bl+strings.Repeat(h, inner+2)+br)
	return strings.Join(out, "\n")
}

func padRune(s string, width int) string {
	if width <= 0 {
		return ""
	}
	rs := []rune(strings.ReplaceAll(s, "\t", "    "))
	if len(rs) > width {
		rs = rs[:width]
	}
	if len(rs) < width {
		rs = append(rs, []rune(strings.Repeat(" ", width-len(rs)))...)
	}
	return string(rs)
}

// composeOverlay centers overlay on top of base.
func composeOverlay(base, overlay string, cols, rows int) string {
	lines := strings.Split(strings.TrimRight(ansi.Strip(overlay), "\n"), "\n")
	ow := 1
	for _, line := range lines {
		ow = max(ow, len([]rune(line)))
	}
	ow = min(ow, cols)
	oh := min(len(lines), rows)
	return composeOverlayAt(base, overlay, cols, rows, (rows-oh)/2, max(0, (cols-ow)/2))
}

// composeOverlayAt paints overlay over base with its top-left corner at
// (startRow, startCol). Both are flattened to plain text first.
func composeOverlayAt(base, overlay string, cols, rows, startRow, startCol int) string {
	if cols <= 0 || rows <= 0 {
		return base
	}
	baseLines := strings.Split(ansi.Strip(base), "\n")
	for len(baseLines) < rows {
		baseLines = append(baseLines, "")
	}
	for i := 0; i < rows; i++ {
		baseLines[i] = padRune(baseLines[i], cols)
	}
	lines := strings.Split(strings.TrimRight(ansi.Strip(overlay), "\n"), "\n")
	ow := 1
	for _, line := range lines {
		ow = max(ow, len([]rune(line)))
	}
	startRow, startCol = max(0, startRow), max(0, startCol)

	for i, line := range lines {
		row := startRow + i
		if row >= rows {
			break
		}
		dst := []rune(baseLines[row])
		src := []rune(line)
		for j := 0; j < ow && startCol+j < len(dst); j++ {
			ch := ' '
			if j < len(src) {
				ch = src[j]
			}
			dst[startCol+j] = ch
		}
		baseLines[row] = string(dst)
	}
	return strings.Join(baseLines[:rows], "\n")
}

func trimForWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	rs := []rune(strings.ReplaceAll(ansi.Strip(s), "\n", " "))
	if len(rs) <= width {
		return string(rs)
	}
	if width == 1 {
		return "…"
	}
	return string(rs[:width-1]) + "…"
}

func ansiStrip(s string) string { return ansi.Strip(s) }

func visibleWidth(s string) int { return ansi.StringWidth(s) }
