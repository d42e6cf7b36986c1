package citation

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var mdParser = goldmark.New()

// PlainText strips markdown structure from an answer, returning the bare
// text with whitespace normalized to single spaces. Answers are generated
// as structured markdown; matching phrases against source text has to
// happen on the rendered words, not on heading markers and emphasis
// syntax.
func PlainText(markdown string) string {
	if markdown == "" {
		return ""
	}

	source := []byte(markdown)
	doc := mdParser.Parser().Parse(text.NewReader(source))

	var builder strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			builder.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				builder.WriteByte(' ')
			}
		case *ast.String:
			builder.Write(node.Value)
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				builder.Write(line.Value(source))
				builder.WriteByte(' ')
			}
			return ast.WalkSkipChildren, nil
		default:
			// Separate block-level nodes so adjacent blocks do not glue
			// their words together.
			if n.Type() == ast.TypeBlock && builder.Len() > 0 {
				builder.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})

	return strings.Join(strings.Fields(builder.String()), " ")
}
