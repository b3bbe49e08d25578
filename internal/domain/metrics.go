package domain

// QualityMetric is one chart returned by GET /metrics/experiments/{id}/quality.
type QualityMetric struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Value       []float64 `json:"value"`
	Graph       string    `json:"graph"`
	Plot        Plot      `json:"plot"`
}

type Plot struct {
	XAxis  string    `json:"x_axis"`
	YAxis  string    `json:"y_axis"`
	Data   []float64 `json:"data"`
	Labels []string  `json:"labels"`
}

// Points pairs each label with its value; extra entries on either side are dropped.
func (p Plot) Points() []PlotPoint {
	n := min(len(p.Labels), len(p.Data))
	points := make([]PlotPoint, n)
	for i := range n {
		points[i] = PlotPoint{Label: p.Labels[i], Value: p.Data[i]}
	}
	return points
}

type PlotPoint struct {
	Label string
	Value float64
}
