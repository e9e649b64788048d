package fetch

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// skipElements are HTML elements whose content never reaches the Markdown
// output.
var skipElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Iframe:   true,
	atom.Head:     true,
	atom.Template: true,
}

// Converter renders parsed HTML as Markdown. Links and images are kept and
// lines are never wrapped.
type Converter struct{}

// NewConverter constructs a Converter.
func NewConverter() *Converter { return &Converter{} }

// Convert turns an HTML document into Markdown.
func (c *Converter) Convert(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", &Error{
			Kind:    KindConversion,
			Message: fmt.Sprintf("failed to convert HTML to Markdown: %v", err),
			Cause:   err,
		}
	}
	md := renderChildren(doc, renderCtx{})
	return tidy(md), nil
}

// renderCtx carries list nesting and preformatted state down the walk.
type renderCtx struct {
	listDepth int
	ordered   bool
	pre       bool
}

func renderChildren(n *html.Node, ctx renderCtx) string {
	var b strings.Builder
	index := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Li {
			index++
		}
		b.WriteString(renderNode(c, ctx, index))
	}
	return b.String()
}

func renderNode(n *html.Node, ctx renderCtx, index int) string {
	switch n.Type {
	case html.TextNode:
		if ctx.pre {
			return n.Data
		}
		return collapseSpace(n.Data)
	case html.ElementNode:
		// handled below
	default:
		return ""
	}

	if skipElements[n.DataAtom] {
		return ""
	}

	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level := int(n.Data[1] - '0')
		text := strings.TrimSpace(renderChildren(n, ctx))
		return block(strings.Repeat("#", level) + " " + text)
	case atom.P:
		return block(strings.TrimSpace(renderChildren(n, ctx)))
	case atom.Br:
		return "\n"
	case atom.Hr:
		return block("---")
	case atom.A:
		text := strings.TrimSpace(renderChildren(n, ctx))
		href := attr(n, "href")
		if href == "" {
			return text
		}
		if text == "" {
			text = href
		}
		return "[" + text + "](" + href + ")"
	case atom.Img:
		return "![" + attr(n, "alt") + "](" + attr(n, "src") + ")"
	case atom.Strong, atom.B:
		if text := strings.TrimSpace(renderChildren(n, ctx)); text != "" {
			return "**" + text + "**"
		}
		return ""
	case atom.Em, atom.I:
		if text := strings.TrimSpace(renderChildren(n, ctx)); text != "" {
			return "*" + text + "*"
		}
		return ""
	case atom.Code:
		if ctx.pre {
			return renderChildren(n, ctx)
		}
		return "`" + strings.TrimSpace(renderChildren(n, ctx)) + "`"
	case atom.Pre:
		preCtx := ctx
		preCtx.pre = true
		code := strings.Trim(renderChildren(n, preCtx), "\n")
		return block("```\n" + code + "\n```")
	case atom.Blockquote:
		inner := strings.TrimSpace(renderChildren(n, ctx))
		lines := strings.Split(inner, "\n")
		for i, line := range lines {
			lines[i] = strings.TrimRight("> "+line, " ")
		}
		return block(strings.Join(lines, "\n"))
	case atom.Ul:
		childCtx := ctx
		childCtx.listDepth++
		childCtx.ordered = false
		return block(strings.Trim(renderChildren(n, childCtx), "\n"))
	case atom.Ol:
		childCtx := ctx
		childCtx.listDepth++
		childCtx.ordered = true
		return block(strings.Trim(renderChildren(n, childCtx), "\n"))
	case atom.Li:
		marker := "- "
		if ctx.ordered {
			marker = fmt.Sprintf("%d. ", index)
		}
		indent := strings.Repeat("  ", max(ctx.listDepth-1, 0))
		inner := strings.TrimSpace(renderChildren(n, ctx))
		lines := strings.Split(inner, "\n")
		for i := 1; i < len(lines); i++ {
			lines[i] = indent + "  " + lines[i]
		}
		return indent + marker + strings.Join(lines, "\n") + "\n"
	case atom.Tr:
		var cells []string
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
				cells = append(cells, strings.TrimSpace(renderChildren(c, ctx)))
			}
		}
		return "| " + strings.Join(cells, " | ") + " |\n"
	case atom.Table, atom.Thead, atom.Tbody:
		return block(strings.Trim(renderChildren(n, ctx), "\n"))
	case atom.Div, atom.Section, atom.Article, atom.Main, atom.Aside,
		atom.Header, atom.Footer, atom.Nav, atom.Figure, atom.Figcaption,
		atom.Details, atom.Summary:
		return block(strings.TrimSpace(renderChildren(n, ctx)))
	default:
		return renderChildren(n, ctx)
	}
}

func block(content string) string {
	if content == "" {
		return ""
	}
	return "\n\n" + content + "\n\n"
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// collapseSpace folds runs of whitespace into single spaces while keeping
// a boundary space so adjacent inline elements stay separated.
func collapseSpace(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s == "" {
			return ""
		}
		return " "
	}
	out := strings.Join(fields, " ")
	if isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// tidy collapses runs of blank lines left behind by nested blocks and
// normalizes the document edges.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := true
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if strings.TrimSpace(trimmed) == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, trimmed)
		blank = false
	}
	joined := strings.TrimRight(strings.Join(out, "\n"), "\n")
	joined = strings.TrimLeft(joined, "\n")
	if joined == "" {
		return ""
	}
	return joined + "\n"
}
