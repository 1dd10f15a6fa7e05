package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/blamethrower/pkg/stats"
)

const (
	textIndent     = "  "
	headerWidth    = 60
	headerPadding  = 1
	unattributed   = "(unattributed)"
	bugsPerLineFmt = "%.4f"
)

type palette struct {
	heading *color.Color
	high    *color.Color
	dim     *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		heading: color.New(color.FgBlue, color.Bold),
		high:    color.New(color.FgRed),
		dim:     color.New(color.FgHiBlack),
	}

	if noColor {
		p.heading.DisableColor()
		p.high.DisableColor()
		p.dim.DisableColor()
	}

	return p
}

// WriteText writes a human-readable summary followed by a per-author table.
func WriteText(w io.Writer, result stats.Result, opts Options) error {
	p := newPalette(opts.NoColor)

	var b strings.Builder

	b.WriteString(drawHeader("Blame", fmt.Sprintf("%d authors", len(result.Authors)), headerWidth))
	b.WriteString("\n\n")

	writeSummary(&b, p, result)
	b.WriteString("\n")

	ranked := topAuthors(result, opts.MaxAuthors)
	if len(ranked) > 0 {
		fmt.Fprintf(&b, "%s%s\n", textIndent, p.heading.Sprint("Authors"))
		b.WriteString(authorTable(ranked, result.Unattributed, p))
		b.WriteString("\n")

		if hidden := len(result.Authors) - len(ranked); hidden > 0 {
			fmt.Fprintf(&b, "%s%s\n", textIndent, p.dim.Sprintf("and %d more...", hidden))
		}
	}

	_, err := io.WriteString(w, b.String())
	if err != nil {
		return fmt.Errorf("write text report: %w", err)
	}

	return nil
}

func writeSummary(b *strings.Builder, p palette, result stats.Result) {
	fmt.Fprintf(b, "%s%s\n", textIndent, p.heading.Sprint("Overall"))
	fmt.Fprintf(b, "%s%s\n", textIndent, strings.Repeat("─", headerWidth-len(textIndent)*2))

	overall := result.Overall
	fmt.Fprintf(b, "%s%-22s %s\n", textIndent, "Files", humanize.Comma(int64(overall.Files)))
	fmt.Fprintf(b, "%s%-22s %s\n", textIndent, "Lines", humanize.Comma(int64(overall.Lines)))
	fmt.Fprintf(b, "%s%-22s %s (%s high, %s med, %s low)\n", textIndent, "Bugs",
		humanize.Comma(int64(overall.Bugs.Total)),
		p.high.Sprint(humanize.Comma(int64(overall.Bugs.High))),
		humanize.Comma(int64(overall.Bugs.Med)),
		humanize.Comma(int64(overall.Bugs.Low)))
	fmt.Fprintf(b, "%s%-22s "+bugsPerLineFmt+"\n", textIndent, "Bugs per line", overall.BugsPerLine)
	fmt.Fprintf(b, "%s%-22s %s bugs on %s lines\n", textIndent, "Unattributed",
		humanize.Comma(int64(result.Unattributed.Bugs.Total)),
		humanize.Comma(int64(result.Unattributed.Lines)))
}

func authorTable(ranked []stats.AuthorBucket, unattributedBucket stats.Bucket, p palette) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Header = text.FormatDefault
	tw.AppendHeader(table.Row{"Author", "Files", "Lines", "Bugs", "High", "Med", "Low", "Bugs/line"})

	for _, ab := range ranked {
		tw.AppendRow(bucketRow(ab.Author, ab.Bucket, p))
	}

	if unattributedBucket.Lines > 0 {
		tw.AppendSeparator()
		tw.AppendRow(bucketRow(p.dim.Sprint(unattributed), unattributedBucket, p))
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})

	return tw.Render()
}

func bucketRow(name string, b stats.Bucket, p palette) table.Row {
	high := humanize.Comma(int64(b.Bugs.High))
	if b.Bugs.High > 0 {
		high = p.high.Sprint(high)
	}

	return table.Row{
		name,
		humanize.Comma(int64(b.Files)),
		humanize.Comma(int64(b.Lines)),
		humanize.Comma(int64(b.Bugs.Total)),
		high,
		humanize.Comma(int64(b.Bugs.Med)),
		humanize.Comma(int64(b.Bugs.Low)),
		fmt.Sprintf(bugsPerLineFmt, b.BugsPerLine),
	}
}

// drawHeader draws a heavy-bordered section header.
//
//	┏━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━┓
//	┃ TITLE                     rightText ┃
//	┗━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━┛
func drawHeader(title, rightText string, width int) string {
	width = max(width, len(title)+len(rightText)+4+headerPadding*2)
	inner := width - 2
	contentWidth := inner - headerPadding*2
	gap := max(contentWidth-len(title)-len(rightText), 1)
	pad := strings.Repeat(" ", headerPadding)

	return "┏" + strings.Repeat("━", inner) + "┓\n" +
		"┃" + pad + title + strings.Repeat(" ", gap) + rightText + pad + "┃\n" +
		"┗" + strings.Repeat("━", inner) + "┛"
}
