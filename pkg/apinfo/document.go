// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package apinfo

import (
	"bytes"
	"io"
	"os"

	"github.com/flux-framework/flux-coral2/pkg/errors"
)

// Document is an in-memory apinfo file being built up one section at a
// time. It replaces the reference implementation's version-dispatched
// vtable (apinfo_impl) with a single type carrying two cases, one per
// Version, the way a Go tagged union is usually built: only the fields
// matching d.version are ever populated, and every exported method that
// touches version-specific sections checks d.version first.
type Document struct {
	version Version

	commProfilesV1 []CommProfileV1
	commProfilesV5 []CommProfileV5

	cmds  []Cmd
	pes   []Pe
	nodes []Node

	nicsV1 []NicV1
	nicsV5 []NicV5

	// Distance and status sections exist in the v5 layout but are never
	// populated by this implementation: both describe Cassini-specific
	// NIC telemetry that is out of scope (the real device API is an
	// external collaborator, never queried directly by this package).
	// They are kept at zero length, each contributing a zero offset, so
	// the v5 header layout still reflects their presence.
	nDist   int
	nStatus int
}

// Create allocates an empty Document for the given format version.
func Create(version Version) (*Document, error) {
	if !version.valid() {
		return nil, errors.Validation("apinfo.create", "unsupported apinfo version %d", version)
	}
	return &Document{version: version}, nil
}

// Version returns the document's format version.
func (d *Document) Version() Version { return d.version }

// SetHostlist installs the node section, one entry per host in order;
// node ID is the host's index in hosts.
func (d *Document) SetHostlist(hosts []string) error {
	nodes := make([]Node, len(hosts))
	for i, host := range hosts {
		nodes[i] = Node{NID: int32(i), Hostname: host}
	}
	d.nodes = nodes
	return nil
}

// SetTaskmap installs the cmd and pe sections derived from tm: npes is
// the total task count, pes_per_node is the largest per-node task
// count, and each pe's localidx is its position within its node's task
// set ordered by global task ID. cpusPerPE is recorded on the (single,
// non-MPMD) cmd record as-is.
func (d *Document) SetTaskmap(tm TaskMap, cpusPerPE int) error {
	d.pes = tm.pes()
	d.cmds = []Cmd{{
		NPEs:       int32(tm.NumTasks()),
		PEsPerNode: int32(tm.maxTasksPerNode()),
		CPUsPerPE:  int32(cpusPerPE),
	}}
	return nil
}

// SetCommProfilesV1 installs the comm-profile section for a v1
// document. It errors if the document was created with a different
// version.
func (d *Document) SetCommProfilesV1(profiles []CommProfileV1) error {
	if d.version != V1 {
		return errors.Validation("apinfo.setcommprofiles", "document is version %d, not v1", d.version)
	}
	d.commProfilesV1 = profiles
	return nil
}

// SetCommProfilesV5 installs the comm-profile section for a v5
// document.
func (d *Document) SetCommProfilesV5(profiles []CommProfileV5) error {
	if d.version != V5 {
		return errors.Validation("apinfo.setcommprofiles", "document is version %d, not v5", d.version)
	}
	d.commProfilesV5 = profiles
	return nil
}

// SetNICsV1 installs the NIC section for a v1 document.
func (d *Document) SetNICsV1(nics []NicV1) error {
	if d.version != V1 {
		return errors.Validation("apinfo.setnics", "document is version %d, not v1", d.version)
	}
	d.nicsV1 = nics
	return nil
}

// SetNICsV5 installs the NIC section for a v5 document.
func (d *Document) SetNICsV5(nics []NicV5) error {
	if d.version != V5 {
		return errors.Validation("apinfo.setnics", "document is version %d, not v5", d.version)
	}
	d.nicsV5 = nics
	return nil
}

// Check verifies the invariants every written document must satisfy:
// every pe's nodeidx names a node that exists, and every node is
// referenced by at least one pe. It reports the first violation found,
// matching the reference op_check's single-error-at-a-time behavior.
func (d *Document) Check() error {
	for taskID, pe := range d.pes {
		if int(pe.NodeIdx) >= len(d.nodes) || pe.NodeIdx < 0 {
			return errors.Validation("apinfo.check", "pes[%d].nodeidx >= nnodes (%d)", taskID, len(d.nodes))
		}
	}
	for nodeID, node := range d.nodes {
		found := false
		for _, pe := range d.pes {
			if int(pe.NodeIdx) == nodeID {
				found = true
				break
			}
		}
		if !found {
			return errors.Validation("apinfo.check", "no PE references nodeid %d (%s)", node.NID, node.Hostname)
		}
	}
	return nil
}

// Write emits the header followed by every section in fixed order:
// comm_profiles, cmds, pes, nodes, nics, then (v5 only) distances,
// status. Every section's size and offset is recomputed immediately
// before the write so a mutation made after the last Set call is never
// missed.
func (d *Document) Write(w io.Writer) error {
	h := d.buildHeader()

	var buf bytes.Buffer
	buf.Write(h.marshal())

	if d.version == V5 {
		for _, p := range d.commProfilesV5 {
			buf.Write(p.marshal())
		}
	} else {
		for _, p := range d.commProfilesV1 {
			buf.Write(p.marshal())
		}
	}
	for _, c := range d.cmds {
		buf.Write(c.marshal())
	}
	for _, p := range d.pes {
		buf.Write(p.marshal())
	}
	for _, n := range d.nodes {
		buf.Write(n.marshal())
	}
	if d.version == V5 {
		for _, n := range d.nicsV5 {
			buf.Write(n.marshal())
		}
	} else {
		for _, n := range d.nicsV1 {
			buf.Write(n.marshal())
		}
	}
	// Distance and status sections are always empty (see Document), so
	// nothing more to emit: buildHeader already assigned them zero
	// offsets and zero-length contributions to total_size.

	_, err := w.Write(buf.Bytes())
	if err != nil {
		return errors.Wrap(errors.KindValidation, "apinfo.write", err, "writing document")
	}
	return nil
}

// Put writes the document to path, creating or truncating it.
func (d *Document) Put(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.KindValidation, "apinfo.put", err, "creating %s", path)
	}
	if writeErr := d.Write(f); writeErr != nil {
		f.Close()
		return writeErr
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errors.KindValidation, "apinfo.put", err, "closing %s", path)
	}
	return nil
}

// GetSize returns the document's total encoded size in bytes.
func (d *Document) GetSize() int {
	return int(d.buildHeader().totalSize)
}

// GetNNodes returns the number of nodes in the document.
func (d *Document) GetNNodes() int { return len(d.nodes) }

// GetNPes returns the number of PEs (tasks) in the document.
func (d *Document) GetNPes() int { return len(d.pes) }

// GetHostlist reconstructs the host list from the stored node section,
// in node-ID order.
func (d *Document) GetHostlist() []string {
	hosts := make([]string, len(d.nodes))
	for i, n := range d.nodes {
		hosts[i] = n.Hostname
	}
	return hosts
}

// GetTaskmap reconstructs a TaskMap from the stored pe section.
func (d *Document) GetTaskmap() TaskMap {
	tm := make(TaskMap, len(d.pes))
	for taskID, pe := range d.pes {
		tm[taskID] = int(pe.NodeIdx)
	}
	return tm
}
