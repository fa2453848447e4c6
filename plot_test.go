/*
 * plot_test.go, part of gofes.
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
	"os"
	"path/filepath"
	"testing"
)

func TestPlots(Te *testing.T) {
	fmt.Println("Plot writing test!")
	dir := Te.TempDir()
	p, err := NewProfile([]float64{-180, -90, 0, 90, 180}, []float64{3.5, 1.2, 0, 1.2, 3.5})
	if err != nil {
		Te.Fatal(err)
	}
	name := filepath.Join(dir, "fes")
	if err := p.Plot("Free energy", "q", name); err != nil {
		Te.Fatal(err)
	}
	if fi, err := os.Stat(name + ".png"); err != nil || fi.Size() == 0 {
		Te.Error("profile plot not written")
	}
	name = filepath.Join(dir, "cv")
	if err := SeriesPlot([]int{0, 10, 20}, []float64{-178.2, 34.5, 179.9}, "Collective variable", "q", name); err != nil {
		Te.Fatal(err)
	}
	if fi, err := os.Stat(name + ".png"); err != nil || fi.Size() == 0 {
		Te.Error("series plot not written")
	}
	name = filepath.Join(dir, "windows")
	centers := []float64{0.5, 1.5, 2.5}
	counts := [][]float64{{3, 1, 0}, {1, 3, 1}, {0, 1, 3}}
	if err := HistogramsPlot(centers, counts, "Umbrella windows", "q", name); err != nil {
		Te.Fatal(err)
	}
	if fi, err := os.Stat(name + ".png"); err != nil || fi.Size() == 0 {
		Te.Error("histograms plot not written")
	}
	//mismatched shapes must be caught before anything is drawn
	if err := HistogramsPlot(centers, [][]float64{{1, 2}}, "bad", "q", filepath.Join(dir, "bad")); err == nil {
		Te.Error("mismatched histogram shape accepted")
	}
	if err := (&Profile{}).Plot("empty", "q", filepath.Join(dir, "empty")); err == nil {
		Te.Error("empty profile plotted")
	}
}
