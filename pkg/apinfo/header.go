// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package apinfo

// header mirrors pals_header_t: a fixed-size preamble that records, for
// each section, its per-record size, its byte offset from the start of
// the file, and its element count. v1 stops at the NIC section; v5 adds
// the status and distance offsets/size at the end.
//
// Field order and the 4-byte padding words between int fields and the
// size_t field that follows reproduce the layout a LP64 C compiler
// gives pals_header_t: every size_t member is 8-byte aligned.
type header struct {
	version Version

	totalSize uint64

	commProfileSize   uint64
	commProfileOffset uint64
	nCommProfiles     int32

	cmdSize   uint64
	cmdOffset uint64
	nCmds     int32

	peSize   uint64
	peOffset uint64
	nPes     int32

	nodeSize   uint64
	nodeOffset uint64
	nNodes     int32

	nicSize   uint64
	nicOffset uint64
	nNics     int32

	// v5 only.
	statusOffset uint64
	distSize     uint64
	distOffset   uint64
}

// headerSizeV1 is sizeof(pals_header_t) for the v1 layout (no status/dist
// fields): 17 * 4-or-8-byte members plus 6 padding words, 136 bytes.
const headerSizeV1 = 136

// headerSizeV5 adds the three trailing size_t fields (24 bytes) with no
// further padding, since nNics already sits at an offset that needs the
// same 4-byte pad before them: 160 bytes.
const headerSizeV5 = 160

func (h *header) marshal() []byte {
	if h.version == V5 {
		return h.marshalV5()
	}
	return h.marshalV1()
}

func (h *header) marshalV1() []byte {
	buf := make([]byte, 0, headerSizeV1)
	buf = appendInt32(buf, int32(h.version))
	buf = appendPad4(buf)
	buf = appendUint64(buf, h.totalSize)
	buf = appendUint64(buf, h.commProfileSize)
	buf = appendUint64(buf, h.commProfileOffset)
	buf = appendInt32(buf, h.nCommProfiles)
	buf = appendPad4(buf)
	buf = appendUint64(buf, h.cmdSize)
	buf = appendUint64(buf, h.cmdOffset)
	buf = appendInt32(buf, h.nCmds)
	buf = appendPad4(buf)
	buf = appendUint64(buf, h.peSize)
	buf = appendUint64(buf, h.peOffset)
	buf = appendInt32(buf, h.nPes)
	buf = appendPad4(buf)
	buf = appendUint64(buf, h.nodeSize)
	buf = appendUint64(buf, h.nodeOffset)
	buf = appendInt32(buf, h.nNodes)
	buf = appendPad4(buf)
	buf = appendUint64(buf, h.nicSize)
	buf = appendUint64(buf, h.nicOffset)
	buf = appendInt32(buf, h.nNics)
	buf = appendPad4(buf)
	return buf
}

func (h *header) marshalV5() []byte {
	buf := h.marshalV1()
	buf = appendUint64(buf, h.statusOffset)
	buf = appendUint64(buf, h.distSize)
	buf = appendUint64(buf, h.distOffset)
	return buf
}

func appendInt32(buf []byte, v int32) []byte {
	tmp := make([]byte, int32Size)
	byteOrder.PutUint32(tmp, uint32(v))
	return append(buf, tmp...)
}

func appendUint64(buf []byte, v uint64) []byte {
	tmp := make([]byte, uint64Size)
	byteOrder.PutUint64(tmp, v)
	return append(buf, tmp...)
}

func appendPad4(buf []byte) []byte {
	return append(buf, 0, 0, 0, 0)
}
