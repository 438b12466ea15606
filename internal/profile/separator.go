package profile

import (
	"math"
	"strings"
)

// separatorSampleLines caps how many lines the detector inspects.
const separatorSampleLines = 5

// DetectSeparator inspects the first few lines of raw CSV text and picks
// between comma and semicolon. Decision order: a separator that appears
// alone wins; a separator with at least 3x the other's total count wins;
// otherwise the higher (count x consistency) score wins, where consistency
// is the inverse of the per-line count spread. Ties and separator-free
// input default to comma. Never fails.
func DetectSeparator(text string) rune {
	lines := sampleLines(text, separatorSampleLines)
	if len(lines) == 0 {
		return ','
	}

	commaCounts := make([]float64, len(lines))
	semiCounts := make([]float64, len(lines))
	commaTotal, semiTotal := 0, 0

	for i, line := range lines {
		c := strings.Count(line, ",")
		s := strings.Count(line, ";")
		commaCounts[i] = float64(c)
		semiCounts[i] = float64(s)
		commaTotal += c
		semiTotal += s
	}

	switch {
	case commaTotal == 0 && semiTotal == 0:
		return ','
	case semiTotal == 0:
		return ','
	case commaTotal == 0:
		return ';'
	case commaTotal >= 3*semiTotal:
		return ','
	case semiTotal >= 3*commaTotal:
		return ';'
	}

	commaScore := float64(commaTotal) * consistencyScore(commaCounts)
	semiScore := float64(semiTotal) * consistencyScore(semiCounts)
	if semiScore > commaScore {
		return ';'
	}
	return ','
}

// consistencyScore rewards separators whose per-line counts barely vary.
// 1/(1+stddev) keeps the score finite for perfectly consistent input.
func consistencyScore(counts []float64) float64 {
	if len(counts) == 0 {
		return 0
	}
	mean := 0.0
	for _, c := range counts {
		mean += c
	}
	mean /= float64(len(counts))

	variance := 0.0
	for _, c := range counts {
		d := c - mean
		variance += d * d
	}
	variance /= float64(len(counts))

	return 1.0 / (1.0 + math.Sqrt(variance))
}

// sampleLines returns up to limit non-empty lines from the start of text.
func sampleLines(text string, limit int) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) >= limit {
			break
		}
	}
	return lines
}
