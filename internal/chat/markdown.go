package chat

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	defaultMarkdownWidth = 80
	minMarkdownWidth     = 20
	wrapBreakpoints      = " ,.;-+|"
)

// Markdown renders answers as styled terminal text. It is used once an
// answer has finished streaming: the raw text is erased and replaced by the
// rendered form.
type Markdown struct {
	parser   goldmark.Markdown
	renderer *lipgloss.Renderer
	width    int
}

// NewMarkdown returns a Markdown renderer wrapping at width columns. Color
// follows the color profile of r.
func NewMarkdown(r *lipgloss.Renderer, width int) *Markdown {
	if width <= 0 {
		width = defaultMarkdownWidth
	}
	return &Markdown{
		parser:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
		renderer: r,
		width:    width,
	}
}

// Render converts source to terminal text without a trailing newline.
func (m *Markdown) Render(source string) string {
	if strings.TrimSpace(source) == "" {
		return ""
	}
	src := []byte(source)
	doc := m.parser.Parser().Parse(text.NewReader(src))

	w := &markdownWriter{md: m, source: src}
	_ = ast.Walk(doc, w.walk)
	return strings.TrimRight(w.out.String(), "\n")
}

// Replace erases raw, which must be the last thing written to out and end
// with a newline, and writes the rendered form of source in its place.
func (m *Markdown) Replace(out io.Writer, raw, source string) {
	if rows := m.rows(raw); rows > 0 {
		_, _ = io.WriteString(out, ansi.CursorUp(rows)+"\r"+ansi.EraseScreenBelow)
	}
	if rendered := m.Render(source); rendered != "" {
		_, _ = io.WriteString(out, rendered+"\n")
	}
}

// rows counts the terminal rows raw occupied, including soft wraps.
func (m *Markdown) rows(raw string) int {
	raw = strings.TrimSuffix(raw, "\n")
	if raw == "" {
		return 0
	}
	n := 0
	for line := range strings.SplitSeq(raw, "\n") {
		w := ansi.StringWidth(line)
		n += max(1, (w+m.width-1)/m.width)
	}
	return n
}

func (m *Markdown) colored() bool {
	return m.renderer.ColorProfile() != termenv.Ascii
}

type listState struct {
	ordered bool
	next    int
	tight   bool
}

type markdownWriter struct {
	md     *Markdown
	source []byte
	out    strings.Builder
	inline strings.Builder

	prefix   string
	bullet   string
	prefixes []string
	lists    []listState

	bold, italic, strike int
}

func (w *markdownWriter) style() lipgloss.Style {
	return w.md.renderer.NewStyle()
}

func (w *markdownWriter) width() int {
	return max(minMarkdownWidth, w.md.width-ansi.StringWidth(w.prefix))
}

func (w *markdownWriter) pushPrefix(p string) {
	w.prefixes = append(w.prefixes, p)
	w.prefix += p
}

func (w *markdownWriter) popPrefix() {
	if len(w.prefixes) == 0 {
		return
	}
	top := w.prefixes[len(w.prefixes)-1]
	w.prefixes = w.prefixes[:len(w.prefixes)-1]
	w.prefix = strings.TrimSuffix(w.prefix, top)
}

func (w *markdownWriter) tight() bool {
	return len(w.lists) > 0 && w.lists[len(w.lists)-1].tight
}

// block writes content line by line with the current prefix. The first
// line takes a pending list bullet instead.
func (w *markdownWriter) block(content string) {
	for i, line := range strings.Split(content, "\n") {
		if i == 0 && w.bullet != "" {
			w.out.WriteString(w.bullet)
			w.bullet = ""
		} else {
			w.out.WriteString(w.prefix)
		}
		w.out.WriteString(line)
		w.out.WriteByte('\n')
	}
}

// gap ends a block with a blank line unless inside a tight list.
func (w *markdownWriter) gap() {
	if w.tight() {
		return
	}
	if s := w.out.String(); s != "" && !strings.HasSuffix(s, "\n\n") {
		w.out.WriteByte('\n')
	}
}

func (w *markdownWriter) flush() string {
	content := w.inline.String()
	w.inline.Reset()
	return content
}

func (w *markdownWriter) styled(s string) string {
	st := w.style()
	if w.bold > 0 {
		st = st.Bold(true)
	}
	if w.italic > 0 {
		st = st.Italic(true)
	}
	if w.strike > 0 {
		st = st.Strikethrough(true)
	}
	return st.Render(s)
}

func (w *markdownWriter) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		if entering {
			w.inline.Reset()
			break
		}
		if content := w.flush(); content != "" {
			w.block(ansi.Wrap(content, w.width(), wrapBreakpoints))
			w.gap()
		}

	case *ast.Heading:
		if entering {
			w.inline.Reset()
			break
		}
		content := ansi.Strip(w.flush())
		st := w.style().Bold(true)
		if n.Level <= 2 {
			st = st.Foreground(lipgloss.Color("12"))
		}
		w.block(ansi.Wrap(st.Render(content), w.width(), wrapBreakpoints))
		w.gap()

	case *ast.FencedCodeBlock:
		if entering {
			w.code(w.lines(n.Lines()), string(n.Language(w.source)))
			w.gap()
		}
		return ast.WalkSkipChildren, nil

	case *ast.CodeBlock:
		if entering {
			w.code(w.lines(n.Lines()), "")
			w.gap()
		}
		return ast.WalkSkipChildren, nil

	case *ast.Blockquote:
		if entering {
			w.pushPrefix(w.style().Faint(true).Render("│") + " ")
		} else {
			w.popPrefix()
			w.gap()
		}

	case *ast.List:
		if entering {
			w.lists = append(w.lists, listState{ordered: n.IsOrdered(), next: n.Start, tight: n.IsTight})
		} else {
			w.lists = w.lists[:len(w.lists)-1]
			w.gap()
		}

	case *ast.ListItem:
		if len(w.lists) == 0 {
			break
		}
		if !entering {
			w.popPrefix()
			break
		}
		top := &w.lists[len(w.lists)-1]
		mark := "• "
		if top.ordered {
			mark = fmt.Sprintf("%d. ", top.next)
			top.next++
		}
		w.bullet = w.prefix + mark
		w.pushPrefix(strings.Repeat(" ", ansi.StringWidth(mark)))

	case *ast.ThematicBreak:
		if entering {
			w.block(w.style().Faint(true).Render(strings.Repeat("─", w.width())))
			w.gap()
		}

	case *ast.HTMLBlock:
		if entering {
			if s := strings.TrimSpace(w.lines(n.Lines())); s != "" {
				w.block(perLine(w.style().Faint(true), s))
				w.gap()
			}
		}
		return ast.WalkSkipChildren, nil

	case *ast.Text:
		if entering {
			w.inline.WriteString(w.styled(string(n.Segment.Value(w.source))))
			switch {
			case n.HardLineBreak():
				w.inline.WriteByte('\n')
			case n.SoftLineBreak():
				w.inline.WriteByte(' ')
			}
		}

	case *ast.String:
		if entering {
			w.inline.WriteString(w.styled(string(n.Value)))
		}

	case *ast.Emphasis:
		counter := &w.italic
		if n.Level >= 2 {
			counter = &w.bold
		}
		if entering {
			*counter++
		} else {
			*counter--
		}

	case *extast.Strikethrough:
		if entering {
			w.strike++
		} else {
			w.strike--
		}

	case *ast.CodeSpan:
		if entering {
			var code strings.Builder
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					code.Write(t.Segment.Value(w.source))
				}
			}
			w.inline.WriteString(w.style().Foreground(lipgloss.Color("11")).Render(code.String()))
		}
		return ast.WalkSkipChildren, nil

	case *ast.Link:
		if entering {
			w.inline.WriteString(w.inlineOf(n))
			if dest := string(n.Destination); dest != "" {
				w.inline.WriteString(" " + w.style().Faint(true).Render("("+dest+")"))
			}
		}
		return ast.WalkSkipChildren, nil

	case *ast.AutoLink:
		if entering {
			w.inline.WriteString(w.style().Underline(true).Render(string(n.URL(w.source))))
		}
		return ast.WalkSkipChildren, nil

	case *ast.Image:
		if entering {
			w.inline.WriteString(w.style().Faint(true).Render("[" + w.inlineOf(n) + "]"))
		}
		return ast.WalkSkipChildren, nil

	case *extast.TaskCheckBox:
		if entering {
			box := "[ ] "
			if n.IsChecked {
				box = "[x] "
			}
			w.inline.WriteString(box)
		}

	case *extast.Table:
		if entering {
			w.table(n)
			w.gap()
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

// perLine styles each line on its own; lipgloss pads multi-line blocks to a
// common width.
func perLine(st lipgloss.Style, s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = st.Render(line)
	}
	return strings.Join(lines, "\n")
}

func (w *markdownWriter) lines(segs *text.Segments) string {
	var b strings.Builder
	for i := range segs.Len() {
		seg := segs.At(i)
		b.Write(seg.Value(w.source))
	}
	return b.String()
}

func (w *markdownWriter) code(src, lang string) {
	src = strings.TrimRight(src, "\n")
	rendered := perLine(w.style().Faint(true), src)
	if lang != "" && w.md.colored() {
		var b strings.Builder
		if err := quick.Highlight(&b, src, lang, "terminal256", "monokai"); err == nil {
			rendered = strings.TrimRight(b.String(), "\n")
		}
	}
	w.block(rendered)
}

// inlineOf renders the inline children of node without disturbing the
// surrounding inline buffer.
func (w *markdownWriter) inlineOf(node ast.Node) string {
	saved := w.flush()
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		_ = ast.Walk(c, w.walk)
	}
	content := w.flush()
	w.inline.WriteString(saved)
	return content
}

func (w *markdownWriter) table(t *extast.Table) {
	var rows [][]string
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, w.inlineOf(cell))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	format := func(row []string) string {
		parts := make([]string, len(widths))
		for i, width := range widths {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			pad := max(0, width-lipgloss.Width(cell))
			if i < len(t.Alignments) && t.Alignments[i] == extast.AlignRight {
				parts[i] = strings.Repeat(" ", pad) + cell
			} else {
				parts[i] = cell + strings.Repeat(" ", pad)
			}
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	w.block(w.style().Bold(true).Render(format(rows[0])))
	rules := make([]string, len(widths))
	for i, width := range widths {
		rules[i] = strings.Repeat("─", width)
	}
	w.block(w.style().Faint(true).Render(strings.Join(rules, "  ")))
	for _, row := range rows[1:] {
		w.block(format(row))
	}
}
