/*
 * errors.go, part of gofes.
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

import "fmt"

//Recurring error messages. They are the "taxonomy" of things that can go
//wrong while post-processing runs: bad CV definitions, absent or corrupt
//output files, and physical parameters that make no sense.
const (
	ErrInvalidIndices    = "Invalid or out-of-range atom indices for the collective variable"
	ErrMissingTrajectory = "Expected trajectory file or group absent"
	ErrUnreadableOutput  = "Output file absent or corrupt"
	ErrConfiguration     = "Out-of-range physical parameter"
	ErrNilData           = "Nil data given"
	ErrShortGrid         = "Grid needs at least 2 points"
)

//CError is the error type of this package. It implements chem.Error, so
//it can be decorated while it is passed up the calling stack, without
//wrapping it into anything else.
type CError struct {
	msg  string
	deco []string
}

func (err CError) Error() string { return fmt.Sprintf("gofes error: %s", err.msg) }

//Decorate adds deco to the information carried by the error, and returns
//the current decoration. An empty string only queries.
func (err CError) Decorate(deco string) []string {
	if deco != "" {
		err.deco = append(err.deco, deco)
	}
	return err.deco
}

//errDecorate asserts that err implements the goChem decorated-error
//convention and adds the caller's name to it before returning it.
func errDecorate(err error, caller string) error {
	err2, ok := err.(interface {
		Error() string
		Decorate(string) []string
	})
	if !ok {
		return err
	}
	err2.Decorate(caller)
	return err2.(error)
}
