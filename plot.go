/*
 * plot.go, part of gofes.
 *
 * Copyright 2023 Raul Mera <rmera{at}usach(dot)cl>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package fes

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

func basicPlot(title, xlabel, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Padding = 3 * vg.Millimeter
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())
	return p
}

//Plot saves the profile as a line plot in plotname.png.
func (P *Profile) Plot(title, xlabel, plotname string) error {
	if P == nil || len(P.Qs) == 0 {
		return CError{ErrNilData, []string{"Profile.Plot"}}
	}
	p := basicPlot(title, xlabel, "Free energy (kJ/mol)")
	pts := make(plotter.XYs, len(P.Qs))
	for i := range P.Qs {
		pts[i].X = P.Qs[i]
		pts[i].Y = P.Es[i]
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	l.LineStyle.Width = vg.Points(1.5)
	l.LineStyle.Color = color.RGBA{B: 255, A: 255}
	p.Add(l)
	filename := fmt.Sprintf("%s.png", plotname)
	if err := p.Save(5*vg.Inch, 4*vg.Inch, filename); err != nil {
		return err
	}
	return nil
}

//SeriesPlot saves a collective-variable time series as a scatter plot in
//plotname.png.
func SeriesPlot(steps []int, vals []float64, title, ylabel, plotname string) error {
	if steps == nil || vals == nil || len(steps) != len(vals) {
		return CError{ErrNilData, []string{"SeriesPlot"}}
	}
	p := basicPlot(title, "Step", ylabel)
	pts := make(plotter.XYs, len(steps))
	for i := range steps {
		pts[i].X = float64(steps[i])
		pts[i].Y = vals[i]
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	s.GlyphStyle.Radius = vg.Points(1)
	s.GlyphStyle.Color = color.RGBA{R: 180, A: 255}
	p.Add(s)
	filename := fmt.Sprintf("%s.png", plotname)
	if err := p.Save(5*vg.Inch, 4*vg.Inch, filename); err != nil {
		return err
	}
	return nil
}

//HistogramsPlot saves a set of per-window collective-variable histograms
//in one plot, one line per window, in plotname.png. It is meant for a
//visual check of the overlap between umbrella windows.
func HistogramsPlot(centers []float64, counts [][]float64, title, xlabel, plotname string) error {
	if centers == nil || counts == nil {
		return CError{ErrNilData, []string{"HistogramsPlot"}}
	}
	p := basicPlot(title, xlabel, "Counts")
	for key, c := range counts {
		if len(c) != len(centers) {
			return CError{fmt.Sprintf("histogram %d has %d bins, grid has %d", key, len(c), len(centers)), []string{"HistogramsPlot"}}
		}
		pts := make(plotter.XYs, len(centers))
		for i := range centers {
			pts[i].X = centers[i]
			pts[i].Y = c[i]
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		r, g, b := colors(key, len(counts))
		l.LineStyle.Color = color.RGBA{R: r, G: g, B: b, A: 255}
		p.Add(l)
	}
	filename := fmt.Sprintf("%s.png", plotname)
	if err := p.Save(5*vg.Inch, 4*vg.Inch, filename); err != nil {
		return err
	}
	return nil
}

//takes the index of the line and the total lines, returns r,g,b so the
//lines spread over a blue-to-red range.
func colors(key, steps int) (uint8, uint8, uint8) {
	if steps < 2 {
		return 0, 0, 255
	}
	norm := float64(key) / float64(steps-1)
	r := uint8(255 * norm)
	b := uint8(255 * (1 - norm))
	return r, 0, b
}
