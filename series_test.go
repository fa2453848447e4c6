/*
 * series_test.go, part of gofes.
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
	"math"
	"os"
	"path/filepath"
	"testing"
)

//a 2-atom trajectory where the interatomic distance grows by 1 A per
//frame
const testXYZ = `2
frame 0
H 0.0 0.0 0.0
H 1.0 0.0 0.0
2
frame 1
H 0.0 0.0 0.0
H 2.0 0.0 0.0
2
frame 2
H 0.0 0.0 0.0
H 3.0 0.0 0.0
`

func TestFileSeries(Te *testing.T) {
	fmt.Println("File series test!")
	name := filepath.Join(Te.TempDir(), "traj.xyz")
	if err := os.WriteFile(name, []byte(testXYZ), 0644); err != nil {
		Te.Fatal(err)
	}
	d, err := NewDistance(0, 1)
	if err != nil {
		Te.Fatal(err)
	}
	steps, vals, err := FileSeries(name, d, 10)
	if err != nil {
		Te.Fatal(err)
	}
	if len(vals) != 3 {
		Te.Fatalf("want 3 values, got %d", len(vals))
	}
	for i, want := range []float64{1, 2, 3} {
		if math.Abs(vals[i]-want) > 1e-8 {
			Te.Errorf("frame %d: want %.1f, got %f", i, want, vals[i])
		}
		if steps[i] != i*10 {
			Te.Errorf("frame %d: want step %d, got %d", i, i*10, steps[i])
		}
	}
	//a series is a pure function of the file, reading it again gives
	//the same values
	_, vals2, err := FileSeries(name, d, 10)
	if err != nil {
		Te.Fatal(err)
	}
	for i := range vals {
		if vals[i] != vals2[i] {
			Te.Errorf("second read differs at %d: %f vs %f", i, vals[i], vals2[i])
		}
	}
}

func TestMissingTrajectory(Te *testing.T) {
	fmt.Println("Missing trajectory test!")
	d, _ := NewDistance(0, 1)
	_, _, err := FileSeries("/nonexistent/no.xyz", d, 1)
	if err == nil {
		Te.Fatal("missing trajectory accepted")
	}
	fmt.Println("got the expected error:", err.Error())
}

func TestSeriesWRoundtrip(Te *testing.T) {
	fmt.Println("Series write/read test!")
	name := filepath.Join(Te.TempDir(), "cv.dat")
	w, err := NewSeriesW(name)
	if err != nil {
		Te.Fatal(err)
	}
	insteps := []int{0, 10, 20, 30}
	invals := []float64{-178.21, 34.5, 0.001, 179.9}
	for i, s := range insteps {
		if err := w.WNext(s, invals[i]); err != nil {
			Te.Error(err)
		}
	}
	w.Close()
	w.Close() //harmless
	steps, vals, err := SeriesFileRead(name)
	if err != nil {
		Te.Fatal(err)
	}
	if len(steps) != len(insteps) {
		Te.Fatalf("want %d records, got %d", len(insteps), len(steps))
	}
	for i := range steps {
		if steps[i] != insteps[i] || math.Abs(vals[i]-invals[i]) > 1e-6 {
			Te.Errorf("record %d: want (%d, %f), got (%d, %f)", i, insteps[i], invals[i], steps[i], vals[i])
		}
	}
}

func TestSeriesFileReadBad(Te *testing.T) {
	fmt.Println("Unreadable series test!")
	name := filepath.Join(Te.TempDir(), "bad.dat")
	if err := os.WriteFile(name, []byte("# comment\n10 notanumber\n"), 0644); err != nil {
		Te.Fatal(err)
	}
	if _, _, err := SeriesFileRead(name); err == nil {
		Te.Error("malformed series accepted")
	}
	if _, _, err := SeriesFileRead(filepath.Join(Te.TempDir(), "no.dat")); err == nil {
		Te.Error("missing series accepted")
	}
}
