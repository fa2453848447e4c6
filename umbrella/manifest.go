/*
 * manifest.go, part of gofes.
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

package umbrella

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/rmera/gofes"
)

//Entry is one line of the umbrella manifest: the per-run series file plus
//the window's restraint parameters. The external WHAM program consumes
//exactly this.
type Entry struct {
	Series string  //path to the two-column (step, CV) series file
	Q0     float64 //the window's target CV value
	K      float64 //the window's spring constant
}

//WriteManifest writes the manifest file consumed by the external
//combiner: one tab-separated line per run, <series-file>\t<q0>\t<k>.
func WriteManifest(name string, entries []Entry) error {
	if len(entries) == 0 {
		return Error{"no entries for the manifest", name, []string{"WriteManifest"}, true}
	}
	f, err := os.Create(name)
	if err != nil {
		return Error{err.Error(), name, []string{"WriteManifest"}, true}
	}
	defer f.Close()
	for _, e := range entries {
		if _, err := fmt.Fprintf(f, "%s\t%10.5f\t%10.5f\n", e.Series, e.Q0, e.K); err != nil {
			return Error{err.Error(), name, []string{"WriteManifest"}, true}
		}
	}
	return nil
}

//ReadManifest reads a manifest file back into its entries.
func ReadManifest(name string) ([]Entry, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, Error{fes.ErrUnreadableOutput + ": " + err.Error(), name, []string{"ReadManifest"}, true}
	}
	defer f.Close()
	entries := make([]Entry, 0, 10)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, Error{fmt.Sprintf("%s: short manifest line '%s'", fes.ErrUnreadableOutput, line), name, []string{"ReadManifest"}, true}
		}
		q0, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, Error{fes.ErrUnreadableOutput + ": " + err.Error(), name, []string{"ReadManifest"}, true}
		}
		k, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, Error{fes.ErrUnreadableOutput + ": " + err.Error(), name, []string{"ReadManifest"}, true}
		}
		entries = append(entries, Entry{Series: fields[0], Q0: q0, K: k})
	}
	if err := scanner.Err(); err != nil {
		return nil, Error{fes.ErrUnreadableOutput + ": " + err.Error(), name, []string{"ReadManifest"}, true}
	}
	return entries, nil
}

//Collect checks the series file of each candidate entry and returns the
//usable ones. A window whose series file is missing or unreadable is
//skipped with a logged warning, never aborting the batch; the second
//return value lists the skipped series files. Collect fails only if no
//window at all survives.
func Collect(candidates []Entry) ([]Entry, []string, error) {
	good := make([]Entry, 0, len(candidates))
	skipped := make([]string, 0)
	for _, e := range candidates {
		if _, _, err := fes.SeriesFileRead(e.Series); err != nil {
			log.Printf("Skipping umbrella window at q0=%5.3f: %s", e.Q0, err.Error())
			skipped = append(skipped, e.Series)
			continue
		}
		good = append(good, e)
	}
	if len(good) == 0 {
		return nil, skipped, Error{"no umbrella window has a readable series file", "", []string{"Collect"}, true}
	}
	return good, skipped, nil
}
