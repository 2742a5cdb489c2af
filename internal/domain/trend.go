package domain

import (
	"sort"
	"time"
)

// PopulationDataPoint is one year's aggregated population, either observed or
// projected. Confidence is present only on projected points.
type PopulationDataPoint struct {
	Year        int             `json:"year"`
	Count       int             `json:"count"`
	IsProjected bool            `json:"is_projected"`
	Confidence  Option[float64] `json:"confidence"`
}

// Change is the difference between two points of a series.
type Change struct {
	Amount  int     `json:"amount"`
	Percent float64 `json:"percent"`
}

// TrendSummary reports the change across each partition of a trend.
type TrendSummary struct {
	Historical Change `json:"historical"`
	Projected  Change `json:"projected"`
}

// Trend is a chartable series with its summary.
type Trend struct {
	Species     string                `json:"species"`
	Points      []PopulationDataPoint `json:"points"`
	Summary     TrendSummary          `json:"summary"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// BuildTrend merges historical sightings and predictions for one species into
// a series sorted ascending by year, with at most one point per year in each
// partition. Missing years are left out rather than interpolated.
func BuildTrend(sightings []HistoricalSighting, predictions []PredictionResult, species string) []PopulationDataPoint {
	points := historicalPoints(sightings, species)
	points = append(points, projectedPoints(predictions)...)

	sort.SliceStable(points, func(i, j int) bool {
		if points[i].Year != points[j].Year {
			return points[i].Year < points[j].Year
		}
		return !points[i].IsProjected && points[j].IsProjected
	})
	return points
}

func historicalPoints(sightings []HistoricalSighting, species string) []PopulationDataPoint {
	totals := make(map[int]int)
	for _, s := range sightings {
		if s.Species != species || s.Timeline != TimelineHistorical {
			continue
		}
		totals[s.Year] += s.Count
	}

	points := make([]PopulationDataPoint, 0, len(totals))
	for year, count := range totals {
		points = append(points, PopulationDataPoint{
			Year:       year,
			Count:      count,
			Confidence: None[float64](),
		})
	}
	return points
}

func projectedPoints(predictions []PredictionResult) []PopulationDataPoint {
	type acc struct {
		sum        float64
		confidence float64
		n          int
	}
	byYear := make(map[int]*acc)
	for _, p := range predictions {
		if p.Year < ProjectionStartYear {
			continue
		}
		a, ok := byYear[p.Year]
		if !ok {
			a = &acc{}
			byYear[p.Year] = a
		}
		a.sum += p.PredictedCount
		a.confidence += p.Confidence
		a.n++
	}

	points := make([]PopulationDataPoint, 0, len(byYear))
	for year, a := range byYear {
		points = append(points, PopulationDataPoint{
			Year:        year,
			Count:       DisplayCount(a.sum),
			IsProjected: true,
			Confidence:  Some(a.confidence / float64(a.n)),
		})
	}
	return points
}

// ChangeBetween returns end.Count - start.Count and that difference as a
// percentage of start.Count. A zero baseline yields a zero percentage.
func ChangeBetween(start, end PopulationDataPoint) Change {
	amount := end.Count - start.Count
	var percent float64
	if start.Count > 0 {
		percent = float64(amount) / float64(start.Count) * 100
	}
	return Change{Amount: amount, Percent: percent}
}

// SummarizeTrend computes the first-to-last change of the historical and the
// projected partitions of a sorted series.
func SummarizeTrend(points []PopulationDataPoint) TrendSummary {
	var hist, proj []PopulationDataPoint
	for _, p := range points {
		if p.IsProjected {
			proj = append(proj, p)
		} else {
			hist = append(hist, p)
		}
	}
	return TrendSummary{
		Historical: partitionChange(hist),
		Projected:  partitionChange(proj),
	}
}

func partitionChange(points []PopulationDataPoint) Change {
	if len(points) == 0 {
		return Change{}
	}
	return ChangeBetween(points[0], points[len(points)-1])
}

// NewTrend builds the series and its summary, stamped with the package clock.
func NewTrend(sightings []HistoricalSighting, predictions []PredictionResult, species string) Trend {
	points := BuildTrend(sightings, predictions, species)
	return Trend{
		Species:     species,
		Points:      points,
		Summary:     SummarizeTrend(points),
		GeneratedAt: clock.Now().UTC(),
	}
}
