/*
 * profile.go, part of gofes.
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
	"bufio"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

//KB is the Boltzmann constant in kJ/(mol*K), to convert between the
//temperatures given to the engine and the energy units of the profiles.
const KB = 0.008314462618

//Profile is a free-energy profile: an ordered sequence of (CV value,
//energy) samples. It is derived data, recomputed from hills or combined
//histograms; only the differences between its energies have physical
//meaning, the additive constant does not.
type Profile struct {
	Qs []float64
	Es []float64
}

//NewProfile returns a profile over the given grid and energies.
func NewProfile(qs, es []float64) (*Profile, error) {
	if qs == nil || es == nil {
		return nil, CError{ErrNilData, []string{"NewProfile"}}
	}
	if len(qs) != len(es) {
		return nil, CError{fmt.Sprintf("%d grid points but %d energies", len(qs), len(es)), []string{"NewProfile"}}
	}
	return &Profile{Qs: qs, Es: es}, nil
}

//Len returns the number of grid points in the profile.
func (P *Profile) Len() int { return len(P.Qs) }

//MinShift shifts the profile so its minimum is zero. It is idempotent:
//shifting an already shifted profile changes nothing.
func (P *Profile) MinShift() {
	if len(P.Es) == 0 {
		return
	}
	min := floats.Min(P.Es)
	for i := range P.Es {
		P.Es[i] -= min
	}
}

//MinQ returns the CV value at which the profile attains its minimum
//energy.
func (P *Profile) MinQ() float64 {
	if len(P.Es) == 0 {
		return 0
	}
	return P.Qs[floats.MinIdx(P.Es)]
}

//FileWrite writes the profile as a plain-text two-column (CV value,
//energy) table.
func (P *Profile) FileWrite(name string) error {
	f, err := os.Create(name)
	if err != nil {
		return CError{fmt.Sprintf("can't create profile file %s: %s", name, err.Error()), []string{"Profile.FileWrite"}}
	}
	defer f.Close()
	for i := range P.Qs {
		if _, err := fmt.Fprintf(f, "%12.6f %12.6f\n", P.Qs[i], P.Es[i]); err != nil {
			return CError{fmt.Sprintf("writing profile file %s: %s", name, err.Error()), []string{"Profile.FileWrite"}}
		}
	}
	return nil
}

//ProfileFileRead reads a two-column (CV value, energy) table, such as the
//output of an external WHAM program. Lines starting with # or @ and empty
//lines are skipped.
func ProfileFileRead(name string) (*Profile, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, CError{fmt.Sprintf("%s: %s", ErrUnreadableOutput, name), []string{"ProfileFileRead"}}
	}
	defer f.Close()
	qs := make([]float64, 0, 100)
	es := make([]float64, 0, 100)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "@") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, CError{fmt.Sprintf("%s: %s: short line '%s'", ErrUnreadableOutput, name, line), []string{"ProfileFileRead"}}
		}
		q, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, CError{fmt.Sprintf("%s: %s: %s", ErrUnreadableOutput, name, err.Error()), []string{"ProfileFileRead"}}
		}
		e, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			//Some WHAM implementations print "inf" for empty bins. We
			//skip those points rather than failing the whole table.
			if strings.Contains(strings.ToLower(fields[1]), "inf") {
				continue
			}
			return nil, CError{fmt.Sprintf("%s: %s: %s", ErrUnreadableOutput, name, err.Error()), []string{"ProfileFileRead"}}
		}
		qs = append(qs, q)
		es = append(es, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, CError{fmt.Sprintf("%s: %s: %s", ErrUnreadableOutput, name, err.Error()), []string{"ProfileFileRead"}}
	}
	return NewProfile(qs, es)
}

//Grid returns n equally spaced CV values covering [min,max], both ends
//included.
func Grid(min, max float64, n int) ([]float64, error) {
	if n < 2 {
		return nil, CError{ErrShortGrid, []string{"Grid"}}
	}
	if max <= min {
		return nil, CError{fmt.Sprintf("%s: grid maximum %5.3f not greater than minimum %5.3f", ErrConfiguration, max, min), []string{"Grid"}}
	}
	return floats.Span(make([]float64, n), min, max), nil
}

//Histogram bins vals into n bins covering [min,max] and returns the bin
//centers and counts. Values outside the range are ignored.
func Histogram(vals []float64, min, max float64, n int) ([]float64, []float64, error) {
	if n < 1 {
		return nil, nil, CError{fmt.Sprintf("%s: %d histogram bins", ErrConfiguration, n), []string{"Histogram"}}
	}
	dividers := floats.Span(make([]float64, n+1), min, max)
	//gonum's Histogram excludes the top divider, so we push it one ulp up
	//to keep values sitting exactly at max in the last bin.
	dividers[n] = math.Nextafter(max, max+1)
	inrange := make([]float64, 0, len(vals))
	for _, v := range vals {
		if v >= min && v <= max {
			inrange = append(inrange, v)
		}
	}
	sort.Float64s(inrange)
	counts := stat.Histogram(nil, dividers, inrange, nil)
	centers := make([]float64, n)
	for i := 0; i < n; i++ {
		centers[i] = (dividers[i] + dividers[i+1]) / 2
	}
	return centers, counts, nil
}
