// Package bibliometrics derives researcher-level indicators from stored
// citation counts: h-index, i10-index, citation totals and benchmark
// percentile rankings.
package bibliometrics

import (
	"math"
	"sort"

	"github.com/papertalks/bibliometrics-service/internal/domain"
)

// Ranking weights for the overall percentile.
const (
	hIndexWeight      = 0.4
	citationWeight    = 0.3
	publicationWeight = 0.15
	i10Weight         = 0.15
)

// Report is a full bibliometric snapshot for one researcher.
type Report struct {
	TotalPapers         int      `json:"total_papers"`
	TotalCitations      int      `json:"total_citations"`
	PapersWithCitations int      `json:"papers_with_citations"`
	AverageCitations    int      `json:"average_citations"`
	HIndex              int      `json:"h_index"`
	I10Index            int      `json:"i10_index"`
	FirstYear           *int     `json:"first_year,omitempty"`
	LastYear            *int     `json:"last_year,omitempty"`
	Rankings            Rankings `json:"rankings"`
}

// Rankings holds estimated "top N%" percentiles against academic benchmarks.
// Lower is better. The overall percentile is nil for researchers without any
// papers, because a weighted rank over nothing is meaningless.
type Rankings struct {
	HIndexPercentile      int  `json:"h_index_percentile"`
	CitationPercentile    int  `json:"citation_percentile"`
	PublicationPercentile int  `json:"publication_percentile"`
	I10Percentile         int  `json:"i10_percentile"`
	OverallPercentile     *int `json:"overall_percentile"`
}

// Compute builds a report from a researcher's papers. Papers with no stored
// count contribute zero citations.
func Compute(papers []domain.Paper) Report {
	counts := make([]int, 0, len(papers))
	totalCitations := 0
	withCitations := 0

	var firstYear, lastYear *int
	for _, p := range papers {
		counts = append(counts, p.CitationCount)
		totalCitations += p.CitationCount
		if p.CitationCount > 0 {
			withCitations++
		}
		if p.PublishedDate != nil {
			year := p.PublishedDate.Year()
			if firstYear == nil || year < *firstYear {
				firstYear = &year
			}
			if lastYear == nil || year > *lastYear {
				lastYear = &year
			}
		}
	}

	report := Report{
		TotalPapers:         len(papers),
		TotalCitations:      totalCitations,
		PapersWithCitations: withCitations,
		HIndex:              HIndex(counts),
		I10Index:            I10Index(counts),
		FirstYear:           firstYear,
		LastYear:            lastYear,
	}
	if report.TotalPapers > 0 {
		report.AverageCitations = int(math.Round(float64(totalCitations) / float64(report.TotalPapers)))
	}
	report.Rankings = rank(report.HIndex, totalCitations, report.TotalPapers, report.I10Index)

	return report
}

// HIndex returns the largest h such that h papers have at least h citations
// each.
func HIndex(counts []int) int {
	sorted := make([]int, len(counts))
	copy(sorted, counts)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	h := 0
	for i, count := range sorted {
		if count < i+1 {
			break
		}
		h = i + 1
	}
	return h
}

// I10Index returns the number of papers with at least ten citations.
func I10Index(counts []int) int {
	n := 0
	for _, count := range counts {
		if count >= 10 {
			n++
		}
	}
	return n
}

// rank maps the four indicators onto benchmark percentile bands and combines
// them into the weighted overall percentile. The bands follow Hirsch (2005)
// style career benchmarks.
func rank(hIndex, totalCitations, totalPapers, i10Index int) Rankings {
	r := Rankings{
		HIndexPercentile: stepPercentile(hIndex, []step{
			{50, 1}, {30, 5}, {20, 10}, {12, 25}, {6, 50},
		}),
		CitationPercentile: stepPercentile(totalCitations, []step{
			{10000, 1}, {3000, 5}, {1000, 10}, {300, 25}, {50, 50},
		}),
		PublicationPercentile: stepPercentile(totalPapers, []step{
			{200, 1}, {100, 5}, {50, 10}, {25, 25}, {10, 50},
		}),
		I10Percentile: stepPercentile(i10Index, []step{
			{100, 1}, {50, 5}, {25, 10}, {10, 25}, {5, 50},
		}),
	}

	if totalPapers > 0 {
		overall := int(math.Round(
			float64(r.HIndexPercentile)*hIndexWeight +
				float64(r.CitationPercentile)*citationWeight +
				float64(r.PublicationPercentile)*publicationWeight +
				float64(r.I10Percentile)*i10Weight))
		r.OverallPercentile = &overall
	}

	return r
}

// step is one band of a percentile step function: values at or above the
// threshold fall into the given percentile.
type step struct {
	threshold  int
	percentile int
}

// stepPercentile returns the percentile of the first matching band, or 100
// when the value clears no threshold. Bands must be ordered best first.
func stepPercentile(value int, steps []step) int {
	for _, s := range steps {
		if value >= s.threshold {
			return s.percentile
		}
	}
	return 100
}
