/*
 * series.go, part of gofes.
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
	"os"
	"strconv"
	"strings"

	chem "github.com/rmera/gochem"
	"github.com/rmera/gochem/traj/stf"
	v3 "github.com/rmera/gochem/v3"
)

//IsLastFrame returns true if err just signals the normal end of a
//trajectory, false if it is an actual problem. Some goChem trajectory
//objects predate the LastFrameError convention, so the "No more frames"
//message is also accepted.
func IsLastFrame(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := err.(chem.LastFrameError); ok {
		return true
	}
	m := err.Error()
	return strings.Contains(m, "No more frames") || m == "EOF"
}

//Series is the lazy sequence of values of one collective variable over a
//stored trajectory, one value per recorded frame, in trajectory order.
//It is finite (as long as the trajectory) and does not modify its source,
//so a new Series over the same file yields the same values again.
type Series struct {
	traj   chem.Traj
	cv     CV
	buf    *v3.Matrix
	stride int //integration steps between recorded frames
	frame  int
}

//NewSeries returns a Series for cv over traj. stride is the number of
//integration steps between recorded frames, used only to produce step
//indices; give 1 if the trajectory holds every step.
func NewSeries(traj chem.Traj, cv CV, stride int) (*Series, error) {
	if traj == nil || cv == nil {
		return nil, CError{ErrNilData, []string{"NewSeries"}}
	}
	if stride < 1 {
		stride = 1
	}
	return &Series{traj: traj, cv: cv, buf: v3.Zeros(traj.Len()), stride: stride}, nil
}

//Next returns the step index and variable value for the next recorded
//frame. When the trajectory is exhausted it returns the underlying
//last-frame error, which can be told apart from real trouble with
//IsLastFrame.
func (S *Series) Next() (int, float64, error) {
	err := S.traj.Next(S.buf)
	if err != nil {
		if IsLastFrame(err) {
			return 0, 0, err
		}
		return 0, 0, errDecorate(err, "Series.Next")
	}
	val, err := S.cv.Eval(S.buf)
	if err != nil {
		return 0, 0, errDecorate(err, "Series.Next")
	}
	step := S.frame * S.stride
	S.frame++
	return step, val, nil
}

//All drains the series, returning the step indices and values for every
//remaining frame.
func (S *Series) All() ([]int, []float64, error) {
	steps := make([]int, 0, 100)
	vals := make([]float64, 0, 100)
	for {
		s, v, err := S.Next()
		if err != nil {
			if IsLastFrame(err) {
				return steps, vals, nil
			}
			return nil, nil, errDecorate(err, "Series.All")
		}
		steps = append(steps, s)
		vals = append(vals, v)
	}
}

//OpenTraj opens the trajectory file name for reading, guessing the format
//from the extension (STF family, or multi-frame XYZ otherwise). It
//returns the trajectory, a closing function to be deferred by the caller,
//and error or nil.
func OpenTraj(name string) (chem.Traj, func(), error) {
	if _, err := os.Stat(name); err != nil {
		return nil, nil, CError{fmt.Sprintf("%s: %s", ErrMissingTrajectory, name), []string{"OpenTraj"}}
	}
	lower := strings.ToLower(name)
	if i := strings.LastIndex(lower, "."); i >= 0 && strings.HasPrefix(lower[i:], ".st") {
		tr, _, err := stf.New(name)
		if err != nil {
			return nil, nil, errDecorate(err, "OpenTraj")
		}
		return tr, func() { tr.Close() }, nil
	}
	mol, err := chem.XYZFileRead(name)
	if err != nil {
		return nil, nil, CError{fmt.Sprintf("%s: %s: %s", ErrUnreadableOutput, name, err.Error()), []string{"OpenTraj"}}
	}
	return mol, func() {}, nil
}

//FileSeries evaluates cv on every recorded frame of the trajectory file
//name. Each call re-reads the file from the beginning, with no side
//effects on it.
func FileSeries(name string, cv CV, stride int) ([]int, []float64, error) {
	traj, closer, err := OpenTraj(name)
	if err != nil {
		return nil, nil, errDecorate(err, "FileSeries")
	}
	defer closer()
	ser, err := NewSeries(traj, cv, stride)
	if err != nil {
		return nil, nil, errDecorate(err, "FileSeries")
	}
	return ser.All()
}

//SeriesW writes a per-run collective-variable time series as plain text,
//two columns: integer step index and value. The file handle is guaranteed
//closed after Close, which is safe to defer together with error returns.
type SeriesW struct {
	f    *os.File
	name string
	open bool
}

//NewSeriesW creates the series file name for writing.
func NewSeriesW(name string) (*SeriesW, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, CError{fmt.Sprintf("can't create series file %s: %s", name, err.Error()), []string{"NewSeriesW"}}
	}
	return &SeriesW{f: f, name: name, open: true}, nil
}

//WNext appends one (step, value) record.
func (S *SeriesW) WNext(step int, val float64) error {
	if !S.open {
		return CError{fmt.Sprintf("series file %s not open for writing", S.name), []string{"SeriesW.WNext"}}
	}
	_, err := fmt.Fprintf(S.f, "%-10d %12.6f\n", step, val)
	return err
}

//Close closes the underlying file. Calling it more than once is harmless.
func (S *SeriesW) Close() {
	if S == nil || !S.open {
		return
	}
	S.f.Close()
	S.open = false
}

//SeriesFileRead reads a two-column (step, value) series file written by
//SeriesW. Lines starting with # and empty lines are skipped.
func SeriesFileRead(name string) ([]int, []float64, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, CError{fmt.Sprintf("%s: %s", ErrUnreadableOutput, name), []string{"SeriesFileRead"}}
	}
	defer f.Close()
	steps := make([]int, 0, 100)
	vals := make([]float64, 0, 100)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, nil, CError{fmt.Sprintf("%s: %s: short line '%s'", ErrUnreadableOutput, name, line), []string{"SeriesFileRead"}}
		}
		s, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, nil, CError{fmt.Sprintf("%s: %s: %s", ErrUnreadableOutput, name, err.Error()), []string{"SeriesFileRead"}}
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, nil, CError{fmt.Sprintf("%s: %s: %s", ErrUnreadableOutput, name, err.Error()), []string{"SeriesFileRead"}}
		}
		steps = append(steps, s)
		vals = append(vals, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, CError{fmt.Sprintf("%s: %s: %s", ErrUnreadableOutput, name, err.Error()), []string{"SeriesFileRead"}}
	}
	return steps, vals, nil
}
