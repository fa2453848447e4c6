/*
 * hills.go, part of gofes.
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
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/rmera/gofes"
)

//The hills store is a small text format in the spirit of goChem's STF
//trajectories: a few k=v header lines, a "** hills" separator, then one
//row per bias update, each row holding every center deposited as of that
//update (so row n has n columns). The full hill list can therefore be
//rebuilt from the last row alone, after the run ended and independently
//of any in-memory state. Files whose name ends in 'z' are
//zstd-compressed.

//HillsW writes the hill store for one metadynamics run. Every row is
//flushed as it is written, so a crashed run still leaves all hills
//deposited up to that point on disk.
type HillsW struct {
	f        *os.File
	h        io.Writer
	enc      *zstd.Encoder
	filename string
	rows     int
	open     bool
}

//NewHillsW creates the hill store name and writes its header. width and
//height are the (fixed) hill parameters, cvname a label for the biased
//variable.
func NewHillsW(name string, width, height float64, cvname string) (*HillsW, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, Error{fes.ErrUnreadableOutput + ": " + err.Error(), name, []string{"NewHillsW"}, true}
	}
	W := &HillsW{f: f, filename: name, open: true}
	if compressed(name) {
		W.enc, err = zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			f.Close()
			return nil, Error{err.Error(), name, []string{"NewHillsW"}, true}
		}
		W.h = W.enc
	} else {
		W.h = f
	}
	header := fmt.Sprintf("width=%8.4f\nheight=%8.4f\ncv=%s\n** hills\n", width, height, cvname)
	if _, err := W.h.Write([]byte(header)); err != nil {
		W.Close()
		return nil, Error{err.Error(), name, []string{"NewHillsW"}, true}
	}
	return W, W.flush("NewHillsW")
}

//WNext writes one row holding all the centers deposited so far, and
//flushes it to disk.
func (W *HillsW) WNext(centers []float64) error {
	if !W.open {
		return Error{"hills store not open for writing", W.filename, []string{"HillsW.WNext"}, true}
	}
	if len(centers) == 0 {
		return Error{fes.ErrNilData, W.filename, []string{"HillsW.WNext"}, true}
	}
	s := make([]string, 0, len(centers))
	for _, c := range centers {
		s = append(s, strconv.FormatFloat(c, 'f', 6, 64))
	}
	if _, err := W.h.Write([]byte(strings.Join(s, " ") + "\n")); err != nil {
		return Error{err.Error(), W.filename, []string{"HillsW.WNext"}, true}
	}
	W.rows++
	return W.flush("HillsW.WNext")
}

func (W *HillsW) flush(caller string) error {
	if W.enc != nil {
		if err := W.enc.Flush(); err != nil {
			return Error{err.Error(), W.filename, []string{caller}, true}
		}
	}
	if err := W.f.Sync(); err != nil {
		return Error{err.Error(), W.filename, []string{caller}, true}
	}
	return nil
}

//Rows returns the number of update rows written so far.
func (W *HillsW) Rows() int { return W.rows }

//Close closes the store. It can be called more than once, and must be
//called on every exit path.
func (W *HillsW) Close() {
	if W == nil || !W.open {
		return
	}
	if W.enc != nil {
		W.enc.Close()
	}
	W.f.Close()
	W.open = false
}

//ReadHills reads a hill store and returns the full hill list (from the
//last row, using the width and height in the header) together with the
//header metadata.
func ReadHills(name string) ([]Hill, map[string]string, error) {
	if _, err := os.Stat(name); err != nil {
		return nil, nil, Error{fes.ErrMissingTrajectory, name, []string{"ReadHills"}, true}
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, Error{fes.ErrUnreadableOutput + ": " + err.Error(), name, []string{"ReadHills"}, true}
	}
	defer f.Close()
	var r io.Reader = f
	if compressed(name) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, nil, Error{fes.ErrUnreadableOutput + ": " + err.Error(), name, []string{"ReadHills"}, true}
		}
		defer dec.Close()
		r = dec
	}
	meta := make(map[string]string)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024) //rows grow with the hill count
	inheader := true
	var last string
	rows := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if inheader {
			if strings.HasPrefix(line, "**") {
				inheader = false
				continue
			}
			kv := strings.SplitN(line, "=", 2)
			if len(kv) != 2 {
				return nil, nil, Error{fes.ErrUnreadableOutput + ": malformed header line " + line, name, []string{"ReadHills"}, true}
			}
			meta[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
			continue
		}
		rows++
		last = line
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, Error{fes.ErrUnreadableOutput + ": " + err.Error(), name, []string{"ReadHills"}, true}
	}
	if inheader {
		return nil, nil, Error{fes.ErrUnreadableOutput + ": no hills section", name, []string{"ReadHills"}, true}
	}
	width, err := headerFloat(meta, "width")
	if err != nil {
		return nil, nil, Error{err.Error(), name, []string{"ReadHills"}, true}
	}
	height, err := headerFloat(meta, "height")
	if err != nil {
		return nil, nil, Error{err.Error(), name, []string{"ReadHills"}, true}
	}
	if rows == 0 {
		return []Hill{}, meta, nil //a run that deposited nothing is not corrupt
	}
	fields := strings.Fields(last)
	if len(fields) < rows {
		return nil, nil, Error{fmt.Sprintf("%s: %d update rows but only %d centers in the last one", fes.ErrUnreadableOutput, rows, len(fields)), name, []string{"ReadHills"}, true}
	}
	hills := make([]Hill, 0, len(fields))
	for _, v := range fields {
		c, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, nil, Error{fes.ErrUnreadableOutput + ": " + err.Error(), name, []string{"ReadHills"}, true}
		}
		hills = append(hills, Hill{c, width, height})
	}
	return hills, meta, nil
}

func headerFloat(meta map[string]string, key string) (float64, error) {
	v, ok := meta[key]
	if !ok {
		return 0, fmt.Errorf("%s: no %s in header", fes.ErrUnreadableOutput, key)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: bad %s in header: %s", fes.ErrUnreadableOutput, key, err.Error())
	}
	return f, nil
}

func compressed(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), "z")
}

//Error is the error type for the hills store. It fulfills chem.Error and
//chem.TrajError.
type Error struct {
	message  string
	filename string
	deco     []string
	critical bool
}

func (err Error) Error() string {
	if err.filename == "" {
		return fmt.Sprintf("hills error: %s", err.message)
	}
	return fmt.Sprintf("hills file %s error: %s", err.filename, err.message)
}

//Decorate adds new information to the error.
func (E Error) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

//FileName returns the file associated to the error, if any.
func (err Error) FileName() string { return err.filename }

//Format returns the format of the file associated to the error.
func (err Error) Format() string { return "hills" }

//Critical returns true if the error is critical, false otherwise.
func (err Error) Critical() bool { return err.critical }
