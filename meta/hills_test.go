/*
 * hills_test.go, part of gofes.
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

package meta

import (
	"fmt"
	"math"
	"path/filepath"
	"testing"
)

//writeStore deposits the given centers one by one, writing the
//cumulative row after each deposition, as a metadynamics run would.
func writeStore(Te *testing.T, name string, centers []float64) {
	w, err := NewHillsW(name, 15, 1, "dihedral(5-7-9-15)")
	if err != nil {
		Te.Fatal(err)
	}
	defer w.Close()
	b, err := NewBias(15, 1)
	if err != nil {
		Te.Fatal(err)
	}
	for _, c := range centers {
		b.Add(c)
		if err := w.WNext(b.Centers()); err != nil {
			Te.Fatal(err)
		}
	}
	if w.Rows() != len(centers) {
		Te.Errorf("want %d rows, got %d", len(centers), w.Rows())
	}
}

func TestHillsRoundtrip(Te *testing.T) {
	fmt.Println("Hills store roundtrip test!")
	centers := []float64{-178.2, -60.01, 55.5, 178.9}
	for _, name := range []string{"hills.hl", "hills.hlz"} {
		full := filepath.Join(Te.TempDir(), name)
		writeStore(Te, full, centers)
		hills, header, err := ReadHills(full)
		if err != nil {
			Te.Fatal(err)
		}
		if header["cv"] != "dihedral(5-7-9-15)" {
			Te.Errorf("%s: header cv label lost: %v", name, header)
		}
		if len(hills) != len(centers) {
			Te.Fatalf("%s: want %d hills, got %d", name, len(centers), len(hills))
		}
		for i, h := range hills {
			if math.Abs(h.Center-centers[i]) > 1e-5 {
				Te.Errorf("%s: hill %d: want center %f, got %f", name, i, centers[i], h.Center)
			}
			if h.Width != 15 || h.Height != 1 {
				Te.Errorf("%s: hill %d: parameters not recovered from header", name, i)
			}
		}
	}
}

//The profile reconstructed from the stored hills must match the one from
//the in-memory bias, with no in-memory state surviving the "run".
func TestHillsDurable(Te *testing.T) {
	fmt.Println("Hills durability test!")
	name := filepath.Join(Te.TempDir(), "hills.hlz")
	centers := []float64{-30, 0, 12.5, 31}
	writeStore(Te, name, centers)
	b, _ := NewBias(15, 1)
	for _, c := range centers {
		b.Add(c)
	}
	grid := []float64{-40, -20, 0, 20, 40}
	want, err := b.Reconstruct(grid)
	if err != nil {
		Te.Fatal(err)
	}
	hills, _, err := ReadHills(name)
	if err != nil {
		Te.Fatal(err)
	}
	got, err := Reconstruct(hills, grid)
	if err != nil {
		Te.Fatal(err)
	}
	for i := range grid {
		if math.Abs(want.Es[i]-got.Es[i]) > 1e-5 {
			Te.Errorf("grid point %d: want %f, got %f", i, want.Es[i], got.Es[i])
		}
	}
}

func TestHillsEdgeCases(Te *testing.T) {
	fmt.Println("Hills store edge cases test!")
	if _, _, err := ReadHills(filepath.Join(Te.TempDir(), "no.hlz")); err == nil {
		Te.Error("missing hills store accepted")
	}
	//a store with a header but no depositions is valid and empty
	name := filepath.Join(Te.TempDir(), "empty.hl")
	w, err := NewHillsW(name, 10, 0.5, "distance(1-2)")
	if err != nil {
		Te.Fatal(err)
	}
	w.Close()
	w.Close() //harmless
	hills, header, err := ReadHills(name)
	if err != nil {
		Te.Fatal(err)
	}
	if len(hills) != 0 {
		Te.Errorf("want no hills, got %d", len(hills))
	}
	if header["width"] == "" || header["height"] == "" {
		Te.Error("header lost in empty store")
	}
	if err := w.WNext([]float64{1.0}); err == nil {
		Te.Error("write to a closed store accepted")
	}
}
