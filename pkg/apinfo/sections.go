// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package apinfo

// AddressType names a NIC's address family, matching pals_address_type_t.
type AddressType int32

const (
	AddressIPv4 AddressType = iota
	AddressIPv6
	AddressMAC
)

// Cmd is one pals_cmd_t record. Both versions share this layout; this
// implementation never emits more than one (no MPMD support, matching
// the reference's set_cmd).
type Cmd struct {
	NPEs       int32
	PEsPerNode int32
	CPUsPerPE  int32
}

const cmdSize = 12

func (c Cmd) marshal() []byte {
	buf := make([]byte, 0, cmdSize)
	buf = appendInt32(buf, c.NPEs)
	buf = appendInt32(buf, c.PEsPerNode)
	buf = appendInt32(buf, c.CPUsPerPE)
	return buf
}

// Pe is one pals_pe_t record: a single task's placement.
type Pe struct {
	LocalIdx int32
	CmdIdx   int32
	NodeIdx  int32
}

const peSize = 12

func (p Pe) marshal() []byte {
	buf := make([]byte, 0, peSize)
	buf = appendInt32(buf, p.LocalIdx)
	buf = appendInt32(buf, p.CmdIdx)
	buf = appendInt32(buf, p.NodeIdx)
	return buf
}

// Node is one pals_node_t record. The hostname field is 64 bytes in
// both v1 and v5 (apinfo1.h and apinfo5.h agree; only the NIC address
// field width differs between versions).
type Node struct {
	NID      int32
	Hostname string
}

const (
	hostnameFieldWidth = 64
	nodeSize           = int32Size + hostnameFieldWidth
)

func (n Node) marshal() []byte {
	buf := make([]byte, 0, nodeSize)
	buf = appendInt32(buf, n.NID)
	buf = append(buf, fixedString(n.Hostname, hostnameFieldWidth)...)
	return buf
}

// CommProfileV1 is one pals_comm_profile_t record in the v1 layout.
type CommProfileV1 struct {
	TokenID        string
	VNI            int32
	VLAN           int32
	TrafficClasses int32
}

const (
	tokenIDFieldWidth = 40
	commProfileSizeV1 = tokenIDFieldWidth + 3*int32Size
)

func (c CommProfileV1) marshal() []byte {
	buf := make([]byte, 0, commProfileSizeV1)
	buf = append(buf, fixedString(c.TokenID, tokenIDFieldWidth)...)
	buf = appendInt32(buf, c.VNI)
	buf = appendInt32(buf, c.VLAN)
	buf = appendInt32(buf, c.TrafficClasses)
	return buf
}

// NicV1 is one pals_nic_t record in the v1 layout: a 40-byte address
// field, no service/VNI/traffic-class data (those are CXI-specific,
// introduced with v5).
type NicV1 struct {
	NodeIdx     int32
	AddressType AddressType
	Address     string
}

const (
	addressFieldWidthV1 = 40
	nicSizeV1           = 2*int32Size + addressFieldWidthV1
)

func (n NicV1) marshal() []byte {
	buf := make([]byte, 0, nicSizeV1)
	buf = appendInt32(buf, n.NodeIdx)
	buf = appendInt32(buf, int32(n.AddressType))
	buf = append(buf, fixedString(n.Address, addressFieldWidthV1)...)
	return buf
}

// MaxVNIsPerCommProfile bounds CommProfileV5.VNIs, matching the v5
// record's fixed vnis[4] array (the same CXI_SVC_MAX_VNIS limit
// pkg/vnipool.MaxVNIsPerReservation enforces on the reservation side).
const MaxVNIsPerCommProfile = 4

// CommProfileV5 is one pals_comm_profile_t record in the v5 layout: the
// CXI service this profile grants, up to four VNIs, and the device it
// was matched on.
type CommProfileV5 struct {
	ServiceID      uint32
	TrafficClasses uint32
	VNIs           []uint16
	DeviceName     string
}

const (
	deviceNameFieldWidth = 16
	// svc_id(4) + traffic_classes(4) + vnis[4]uint16(8) + nvnis(1) +
	// device_name[16] = 33, padded to a 4-byte struct alignment.
	commProfileSizeV5 = 36
)

func (c CommProfileV5) marshal() []byte {
	buf := make([]byte, 0, commProfileSizeV5)
	tmp := make([]byte, 4)
	byteOrder.PutUint32(tmp, c.ServiceID)
	buf = append(buf, tmp...)
	byteOrder.PutUint32(tmp, c.TrafficClasses)
	buf = append(buf, tmp...)

	vnis := make([]byte, 2*MaxVNIsPerCommProfile)
	for i := 0; i < MaxVNIsPerCommProfile && i < len(c.VNIs); i++ {
		byteOrder.PutUint16(vnis[i*2:], c.VNIs[i])
	}
	buf = append(buf, vnis...)

	nvnis := len(c.VNIs)
	if nvnis > MaxVNIsPerCommProfile {
		nvnis = MaxVNIsPerCommProfile
	}
	buf = append(buf, byte(nvnis))
	buf = append(buf, fixedString(c.DeviceName, deviceNameFieldWidth)...)
	buf = append(buf, 0, 0, 0) // trailing pad to 36 bytes
	return buf
}

// NicV5 is one pals_hsn_nic_t record in the v5 layout: a wider address
// field, NUMA locality, and a device name, with the reference struct's
// trailing reserved longs reproduced as zero padding.
type NicV5 struct {
	NodeIdx     int32
	AddressType AddressType
	Address     string
	NumaNode    int16
	DeviceName  string
}

const (
	addressFieldWidthV5 = 64
	// nodeidx(4) + address_type(4) + address[64] + numa_node(2) +
	// device_name[16] = 90, padded to 96 before two reserved longs (8
	// bytes each), for a final size of 112.
	nicSizeV5 = 112
)

func (n NicV5) marshal() []byte {
	buf := make([]byte, 0, nicSizeV5)
	buf = appendInt32(buf, n.NodeIdx)
	buf = appendInt32(buf, int32(n.AddressType))
	buf = append(buf, fixedString(n.Address, addressFieldWidthV5)...)

	numa := make([]byte, 2)
	byteOrder.PutUint16(numa, uint16(n.NumaNode))
	buf = append(buf, numa...)

	buf = append(buf, fixedString(n.DeviceName, deviceNameFieldWidth)...)
	// Pad up to the 8-byte alignment the two reserved longs require,
	// then emit them as zero (the reference leaves them unused).
	for len(buf) < nicSizeV5-2*uint64Size {
		buf = append(buf, 0)
	}
	buf = append(buf, make([]byte, 2*uint64Size)...)
	return buf
}

// fixedString returns s as a NUL-padded byte slice exactly width bytes
// long, truncating if s is too long to fit (matching the reference
// implementation's snprintf into a fixed buffer).
func fixedString(s string, width int) []byte {
	buf := make([]byte, width)
	copy(buf[:width-1], s)
	return buf
}
