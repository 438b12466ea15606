package api

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"datalens/domain/core"
	domaindataset "datalens/domain/dataset"
	"datalens/internal/profile"

	"github.com/gin-gonic/gin"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// handleReport renders a profiling summary. The report is built as markdown
// and served as HTML by default; ?format=md returns the raw markdown.
func (h *Handler) handleReport(c *gin.Context) {
	id, err := core.ParseDatasetID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ds, err := h.processor.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if ds.Profile == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "dataset has no profile yet"})
		return
	}

	md := buildReport(ds)
	if c.Query("format") == "md" {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
		return
	}

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	c.Data(http.StatusOK, "text/html; charset=utf-8", markdown.ToHTML([]byte(md), p, renderer))
}

// buildReport writes the dataset summary as markdown
func buildReport(ds *domaindataset.Dataset) string {
	p := ds.Profile
	quality := profile.ScoreQuality(p)

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Profile: %s\n\n", ds.Filename)

	fmt.Fprintf(&sb, "## Overview\n\n")
	fmt.Fprintf(&sb, "- Rows: %d", p.RowCount)
	if p.Sampled {
		sb.WriteString(" (statistics computed over a sample)")
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "- Columns: %d\n", len(p.Columns))
	fmt.Fprintf(&sb, "- Missing cells: %d\n", p.MissingTotal)
	fmt.Fprintf(&sb, "- Duplicate rows: %d", p.DuplicateRows)
	if p.DuplicateApprox {
		sb.WriteString(" (approximate)")
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "- Duplicate columns: %d\n\n", p.DuplicateColumns)

	fmt.Fprintf(&sb, "## Quality\n\n")
	fmt.Fprintf(&sb, "- Completeness: %.1f%%\n", quality.Completeness*100)
	fmt.Fprintf(&sb, "- Uniqueness: %.1f%%\n", quality.Uniqueness*100)
	fmt.Fprintf(&sb, "- Consistency: %.1f%%\n", quality.Consistency*100)
	fmt.Fprintf(&sb, "- Overall: %.1f%%\n\n", quality.Overall*100)

	if len(p.TypeDistribution) > 0 {
		fmt.Fprintf(&sb, "## Type distribution\n\n")
		types := make([]string, 0, len(p.TypeDistribution))
		for t := range p.TypeDistribution {
			types = append(types, string(t))
		}
		sort.Strings(types)
		for _, t := range types {
			fmt.Fprintf(&sb, "- %s: %d\n", t, p.TypeDistribution[domaindataset.ColumnType(t)])
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "## Columns\n\n")
	sb.WriteString("| Column | Type | Missing | Unique | Details |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, col := range p.Columns {
		fmt.Fprintf(&sb, "| %s | %s | %.1f%% | %d | %s |\n",
			col.OriginalName, col.Type, col.MissingPercent, col.UniqueValues, columnDetail(col))
	}
	sb.WriteString("\n")

	if p.Correlation != nil && len(p.Correlation.Labels) > 1 {
		fmt.Fprintf(&sb, "## Strong correlations\n\n")
		wrote := false
		for i := range p.Correlation.Labels {
			for j := i + 1; j < len(p.Correlation.Labels); j++ {
				r := p.Correlation.Matrix[i][j]
				if r > 0.7 || r < -0.7 {
					fmt.Fprintf(&sb, "- %s / %s: %.3f\n",
						p.Correlation.Labels[i], p.Correlation.Labels[j], r)
					wrote = true
				}
			}
		}
		if !wrote {
			sb.WriteString("No pairs beyond |r| = 0.7.\n")
		}
		if p.Correlation.Truncated {
			sb.WriteString("\nSome numeric columns were excluded by the correlation cap.\n")
		}
	}

	return sb.String()
}

func columnDetail(col domaindataset.ColumnInfo) string {
	if col.Numeric != nil {
		return fmt.Sprintf("mean %.4g, median %.4g, stddev %.4g, %d outliers",
			col.Numeric.Mean, col.Numeric.Median, col.Numeric.StdDev, col.Numeric.OutlierCount)
	}
	if col.Categorical != nil {
		return fmt.Sprintf("mode %q (%d)", col.Categorical.Mode, col.Categorical.ModeFrequency)
	}
	return ""
}
