/*
 * doc.go, part of gofes.
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

/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

//Package fes provides collective variables, free-energy profiles and the
//common machinery for enhanced-sampling simulations (metadynamics and
//umbrella sampling) driven through an external MD engine. The actual
//dynamics, thermostatting and force evaluation are delegated to that
//engine; this library only deals with the parts that can be computed
//from stored trajectories and bias parameters: evaluating collective
//variables frame by frame, accumulating and reconstructing Gaussian-hill
//biases, evaluating harmonic restraints and assembling the input for an
//external WHAM program.
//
//The library is built on top of goChem (github.com/rmera/gochem), which
//provides structure reading, trajectory formats and the basic geometry.
package fes
