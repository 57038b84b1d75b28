package tabular

import (
	"fmt"
	"sort"
	"strings"
)

// ColumnStats summarizes one column independent of row count.
type ColumnStats struct {
	Name        string     `json:"name"`
	Kind        ColumnKind `json:"kind"`
	NonNull     int        `json:"non_null"`
	MissingRate float64    `json:"missing_rate"`

	// Numeric columns
	Min  float64 `json:"min,omitempty"`
	Max  float64 `json:"max,omitempty"`
	Mean float64 `json:"mean,omitempty"`

	// Text columns: most frequent values, capped
	TopCategories []Category `json:"top_categories,omitempty"`
}

// Category is one frequent value in a text column.
type Category struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Digest is the bounded statistical summary that crosses the AI provider
// boundary in place of the raw table. Its size depends on column count and the
// category cap, never on row count.
type Digest struct {
	SheetName string        `json:"sheet_name"`
	Rows      int           `json:"rows"`
	Columns   []ColumnStats `json:"columns"`
}

// BuildDigest computes a digest of the table. maxCategories caps the frequent
// values reported per text column.
func BuildDigest(t *Table, maxCategories int) *Digest {
	if maxCategories <= 0 {
		maxCategories = 5
	}

	digest := &Digest{
		SheetName: t.Name,
		Rows:      t.RowCount(),
		Columns:   make([]ColumnStats, 0, len(t.Columns)),
	}

	for _, col := range t.Columns {
		digest.Columns = append(digest.Columns, summarizeColumn(col, maxCategories))
	}

	return digest
}

func summarizeColumn(col Column, maxCategories int) ColumnStats {
	stats := ColumnStats{Name: col.Name, Kind: col.Kind}

	total := len(col.Cells)
	for _, c := range col.Cells {
		if !c.Null {
			stats.NonNull++
		}
	}
	if total > 0 {
		stats.MissingRate = float64(total-stats.NonNull) / float64(total)
	}

	if col.Kind == KindNumeric {
		summarizeNumeric(col.Cells, &stats)
	} else {
		stats.TopCategories = topCategories(col.Cells, maxCategories)
	}

	return stats
}

func summarizeNumeric(cells []Cell, stats *ColumnStats) {
	var sum float64
	first := true
	for _, c := range cells {
		if c.Null || !c.Numeric {
			continue
		}
		if first {
			stats.Min, stats.Max = c.Number, c.Number
			first = false
		} else {
			if c.Number < stats.Min {
				stats.Min = c.Number
			}
			if c.Number > stats.Max {
				stats.Max = c.Number
			}
		}
		sum += c.Number
	}
	if stats.NonNull > 0 {
		stats.Mean = sum / float64(stats.NonNull)
	}
}

func topCategories(cells []Cell, max int) []Category {
	counts := make(map[string]int)
	for _, c := range cells {
		if c.Null {
			continue
		}
		counts[c.Raw]++
	}

	categories := make([]Category, 0, len(counts))
	for value, count := range counts {
		categories = append(categories, Category{Value: value, Count: count})
	}

	// Order by frequency, value as tie-break for stable output
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Count != categories[j].Count {
			return categories[i].Count > categories[j].Count
		}
		return categories[i].Value < categories[j].Value
	})

	if len(categories) > max {
		categories = categories[:max]
	}
	return categories
}

// Text renders the digest as the compact plain-text block submitted to the AI
// provider.
func (d *Digest) Text() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Sheet: %s\n", d.SheetName)
	fmt.Fprintf(&b, "Rows: %d, Columns: %d\n", d.Rows, len(d.Columns))

	for _, col := range d.Columns {
		fmt.Fprintf(&b, "- %s (%s): %d non-null, %.0f%% missing", col.Name, col.Kind, col.NonNull, col.MissingRate*100)
		if col.Kind == KindNumeric && col.NonNull > 0 {
			fmt.Fprintf(&b, ", min=%.4g, max=%.4g, mean=%.4g", col.Min, col.Max, col.Mean)
		}
		if len(col.TopCategories) > 0 {
			parts := make([]string, len(col.TopCategories))
			for i, cat := range col.TopCategories {
				parts[i] = fmt.Sprintf("%s(%d)", cat.Value, cat.Count)
			}
			fmt.Fprintf(&b, ", top: %s", strings.Join(parts, ", "))
		}
		b.WriteString("\n")
	}

	return b.String()
}
