// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package combined

import (
	"errors"
	"math"
	"sort"
)

// ErrTooFewPoints means fewer than three entities carry both metrics,
// below the floor for a meaningful correlation.
var ErrTooFewPoints = errors.New("too few data points for correlation")

// Point is one entity positioned on the two chosen metrics.
type Point struct {
	Code string  `json:"code"`
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Correlation is the relationship between two metrics across a
// combined dataset.
type Correlation struct {
	XMetric string `json:"x_metric"`
	YMetric string `json:"y_metric"`
	N       int    `json:"n"`

	R        float64 `json:"r"`
	RSquared float64 `json:"r_squared"`

	// Least-squares fit y = Slope*x + Intercept.
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`

	Points    []Point `json:"points"`
	TopByY    []Point `json:"top_by_y"`
	BottomByY []Point `json:"bottom_by_y"`

	// Highlight is the optionally requested entity, nil when it lacks
	// either metric or was not asked for.
	Highlight *Point `json:"highlight,omitempty"`
}

// Analyze computes the correlation between two metrics over a dataset.
//
// # Description
//
//	Only entities carrying both metrics participate. Returns
//	ErrTooFewPoints below three such entities; a correlation over one
//	or two points is noise presented as signal. The top and bottom
//	lists rank by the y metric, up to five entities each.
func Analyze(ds *Dataset, xMetric, yMetric, highlightCode string) (*Correlation, error) {
	points := make([]Point, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		x, okX := row.Metrics[xMetric]
		y, okY := row.Metrics[yMetric]
		if !okX || !okY {
			continue
		}
		points = append(points, Point{Code: row.Code, Name: row.Name, X: x, Y: y})
	}
	if len(points) < 3 {
		return nil, ErrTooFewPoints
	}

	r, slope, intercept := linearFit(points)

	c := &Correlation{
		XMetric:   xMetric,
		YMetric:   yMetric,
		N:         len(points),
		R:         r,
		RSquared:  r * r,
		Slope:     slope,
		Intercept: intercept,
		Points:    points,
	}

	ranked := make([]Point, len(points))
	copy(ranked, points)
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Y > ranked[j].Y })
	c.TopByY = topN(ranked, 5)
	reversed := make([]Point, len(ranked))
	for i, p := range ranked {
		reversed[len(ranked)-1-i] = p
	}
	c.BottomByY = topN(reversed, 5)

	if highlightCode != "" {
		for i := range points {
			if points[i].Code == highlightCode {
				c.Highlight = &points[i]
				break
			}
		}
	}
	return c, nil
}

// linearFit returns the Pearson coefficient and least-squares line.
func linearFit(points []Point) (r, slope, intercept float64) {
	n := float64(len(points))

	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	meanX, meanY := sumX/n, sumY/n

	var covXY, varX, varY float64
	for _, p := range points {
		dx, dy := p.X-meanX, p.Y-meanY
		covXY += dx * dy
		varX += dx * dx
		varY += dy * dy
	}

	// A constant metric has no direction to correlate with.
	if varX == 0 || varY == 0 {
		return 0, 0, meanY
	}

	r = covXY / math.Sqrt(varX*varY)
	slope = covXY / varX
	intercept = meanY - slope*meanX
	return r, slope, intercept
}

func topN(points []Point, n int) []Point {
	if len(points) < n {
		n = len(points)
	}
	out := make([]Point, n)
	copy(out, points[:n])
	return out
}
