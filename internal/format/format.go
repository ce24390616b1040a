// Package format renders fetch results for humans: a newsletter-style
// digest and a terminal table.
package format

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/maltedev/ph-ai-tracker/internal/models"
)

const taglineColumnWidth = 48

// Newsletter is a rendered digest of one fetch.
type Newsletter struct {
	Title       string
	GeneratedAt time.Time
	Products    []models.Product
	TopTags     []TagCount
}

// TagCount pairs a tag with how many products carry it.
type TagCount struct {
	Tag   string
	Count int
}

// NewNewsletter sorts products by votes descending (name ascending on ties)
// and computes tag frequencies. The input slice is not modified.
func NewNewsletter(title string, products []models.Product) Newsletter {
	sorted := make([]models.Product, len(products))
	copy(sorted, products)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].VotesCount != sorted[j].VotesCount {
			return sorted[i].VotesCount > sorted[j].VotesCount
		}
		return sorted[i].Name < sorted[j].Name
	})
	return Newsletter{
		Title:       title,
		GeneratedAt: time.Now().UTC(),
		Products:    sorted,
		TopTags:     topTags(sorted),
	}
}

func topTags(products []models.Product) []TagCount {
	counts := make(map[string]int)
	for _, p := range products {
		for _, t := range p.Tags {
			counts[t]++
		}
	}
	out := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

// Markdown renders the digest as a markdown document.
func (n Newsletter) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", n.Title)
	fmt.Fprintf(&b, "_Generated %s_\n\n", n.GeneratedAt.Format("2006-01-02 15:04 UTC"))

	if len(n.Products) == 0 {
		b.WriteString("No products found.\n")
		return b.String()
	}

	for i, p := range n.Products {
		fmt.Fprintf(&b, "## %d. %s", i+1, p.Name)
		if p.VotesCount > 0 {
			fmt.Fprintf(&b, " (%d votes)", p.VotesCount)
		}
		b.WriteString("\n\n")
		if p.Tagline != "" {
			fmt.Fprintf(&b, "%s\n\n", p.Tagline)
		}
		if p.URL != "" {
			fmt.Fprintf(&b, "<%s>\n\n", p.URL)
		}
		if len(p.Tags) > 0 {
			fmt.Fprintf(&b, "Tags: %s\n\n", strings.Join(p.Tags, ", "))
		}
	}

	if len(n.TopTags) > 0 {
		b.WriteString("## Trending tags\n\n")
		for _, tc := range n.TopTags {
			fmt.Fprintf(&b, "- %s (%d)\n", tc.Tag, tc.Count)
		}
	}
	return b.String()
}

// RenderTable writes the product list as a terminal table.
func RenderTable(w io.Writer, products []models.Product) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Name", "Votes", "Tagline", "URL"})
	for i, p := range products {
		t.AppendRow(table.Row{i + 1, p.Name, p.VotesCount, p.Tagline, p.URL})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, WidthMax: taglineColumnWidth},
	})
	t.SetStyle(table.StyleLight)
	t.Render()
}
