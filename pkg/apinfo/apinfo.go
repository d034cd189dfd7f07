// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package apinfo implements the libpals apinfo binary file format: the
// per-job node/task/NIC layout the PALS shell plugin writes so the PMI
// bootstrap and application launcher can discover their placement
// without talking to the scheduler again.
//
// Pure binary encode/decode over encoding/binary is the right tool here
// rather than a general-purpose serialization library: the format's
// exact byte layout has to round-trip against a fixed reader that knows
// nothing about Go, protobuf, or any other framing.
package apinfo

import (
	"encoding/binary"

	"github.com/flux-framework/flux-coral2/pkg/errors"
)

// Version selects the wire layout. Only the two variants the reference
// implementation ships are supported.
type Version int

const (
	// V1 is the original layout: no distance or status sections.
	V1 Version = 1

	// V5 is the CXI-aware layout: comm profiles and NICs carry Slingshot
	// service/VNI/traffic-class data, and distance/status sections (kept
	// empty by this implementation; see Document) are part of every
	// layout computation even at zero length.
	V5 Version = 5
)

func (v Version) valid() bool {
	return v == V1 || v == V5
}

// byteOrder is the encoding used for every multi-byte field. The format
// is native-endian by the reference implementation's own definition (it
// is only ever read back on the host that wrote it); NativeEndian keeps
// that property true on whatever architecture this binary runs on.
var byteOrder = binary.NativeEndian

const (
	int32Size  = 4
	uint64Size = 8
)
