// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package apinfo

// buildHeader assigns every section's per-record size and, in offset
// order (comm_profiles, cmds, pes, nodes, nics, then v5's distances and
// status), its byte offset — recomputed from scratch on every call so a
// section mutation never leaves a stale offset behind. Distance and
// status offsets are 0 when their count is 0, matching the reference's
// set_offsets rule that an empty section contributes no bytes and no
// offset of its own.
func (d *Document) buildHeader() header {
	h := header{version: d.version}

	if d.version == V5 {
		h.commProfileSize = commProfileSizeV5
		h.nicSize = nicSizeV5
	} else {
		h.commProfileSize = commProfileSizeV1
		h.nicSize = nicSizeV1
	}
	h.cmdSize = cmdSize
	h.peSize = peSize
	h.nodeSize = nodeSize

	h.nCommProfiles = int32(d.numCommProfiles())
	h.nCmds = int32(len(d.cmds))
	h.nPes = int32(len(d.pes))
	h.nNodes = int32(len(d.nodes))
	h.nNics = int32(d.numNICs())

	headerSize := uint64(headerSizeV1)
	if d.version == V5 {
		headerSize = headerSizeV5
	}

	offset := headerSize
	h.commProfileOffset = offset
	offset += h.commProfileSize * uint64(h.nCommProfiles)
	h.cmdOffset = offset
	offset += h.cmdSize * uint64(h.nCmds)
	h.peOffset = offset
	offset += h.peSize * uint64(h.nPes)
	h.nodeOffset = offset
	offset += h.nodeSize * uint64(h.nNodes)
	h.nicOffset = offset
	offset += h.nicSize * uint64(h.nNics)

	if d.version == V5 {
		const distRecordSize = 2 // sizeof(pals_distance_t) with a zero-length flexible array
		h.distSize = distRecordSize
		if d.nDist > 0 {
			h.distOffset = offset
		}
		offset += h.distSize * uint64(d.nDist)

		const statusRecordSize = int32Size
		if d.nStatus > 0 {
			h.statusOffset = offset
		}
		offset += uint64(statusRecordSize) * uint64(d.nStatus)
	}

	h.totalSize = offset
	return h
}

func (d *Document) numCommProfiles() int {
	if d.version == V5 {
		return len(d.commProfilesV5)
	}
	return len(d.commProfilesV1)
}

func (d *Document) numNICs() int {
	if d.version == V5 {
		return len(d.nicsV5)
	}
	return len(d.nicsV1)
}
