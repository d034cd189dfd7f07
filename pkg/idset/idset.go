// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package idset represents a set of non-negative integers with a compact
// "a,b-c,d" range encoding, the allocation primitive the VNI pool draws
// on, and the set algebra spec.md §4.1 requires.
package idset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/flux-framework/flux-coral2/pkg/errors"
)

// IDSet is a mutable set of non-negative integers. The zero value is an
// empty set ready to use.
type IDSet struct {
	members map[uint32]bool
	// order records insertion order of the *free* set for round-robin
	// allocation: the first element is the next one alloc() will return.
	order []uint32
}

// New returns an empty IDSet.
func New() *IDSet {
	return &IDSet{members: make(map[uint32]bool)}
}

// ReservedVNIs holds the VNIs the Cassini driver reserves for its own use
// (1: the PTLTE default VNI, 10: the driver's internal VNI) and that must
// never appear in a configured pool universe, regardless of what a
// vni-pool directive asks for.
var ReservedVNIs = mustDecode("1,10")

func mustDecode(spec string) *IDSet {
	s, err := Decode(spec)
	if err != nil {
		panic("idset: invalid built-in spec " + spec + ": " + err.Error())
	}
	return s
}

// Decode parses a range spec like "1024-1026,2000" into an IDSet. An
// empty string decodes to the empty set. Decode errors carry the
// offending substring.
func Decode(spec string) (*IDSet, error) {
	s := New()
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return s, nil
	}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, errors.Validation("idset.decode", "empty range element in %q", spec)
		}
		if dash := strings.IndexByte(part, '-'); dash >= 0 {
			loStr, hiStr := part[:dash], part[dash+1:]
			lo, err := parseID(loStr, part)
			if err != nil {
				return nil, err
			}
			hi, err := parseID(hiStr, part)
			if err != nil {
				return nil, err
			}
			if hi < lo {
				return nil, errors.Validation("idset.decode", "descending range %q", part)
			}
			for id := lo; id <= hi; id++ {
				s.insert(id)
			}
		} else {
			id, err := parseID(part, part)
			if err != nil {
				return nil, err
			}
			s.insert(id)
		}
	}
	return s, nil
}

func parseID(s, context string) (uint32, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, errors.Validation("idset.decode", "invalid integer %q in %q", s, context)
	}
	return uint32(n), nil
}

func (s *IDSet) insert(id uint32) {
	if s.members[id] {
		return
	}
	s.members[id] = true
	s.order = append(s.order, id)
}

// Encode renders the set as a range-coalesced string in ascending order.
func (s *IDSet) Encode() string {
	ids := s.sortedMembers()
	if len(ids) == 0 {
		return ""
	}
	var parts []string
	i := 0
	for i < len(ids) {
		j := i
		for j+1 < len(ids) && ids[j+1] == ids[j]+1 {
			j++
		}
		if j == i {
			parts = append(parts, strconv.FormatUint(uint64(ids[i]), 10))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", ids[i], ids[j]))
		}
		i = j + 1
	}
	return strings.Join(parts, ",")
}

func (s *IDSet) sortedMembers() []uint32 {
	ids := make([]uint32, 0, len(s.members))
	for id := range s.members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Test reports whether id is a member of the set.
func (s *IDSet) Test(id uint32) bool {
	return s.members[id]
}

// Count returns the set's cardinality.
func (s *IDSet) Count() int {
	return len(s.members)
}

// Equal reports whether s and other contain exactly the same members.
func (s *IDSet) Equal(other *IDSet) bool {
	if other == nil {
		return s.Count() == 0
	}
	if len(s.members) != len(other.members) {
		return false
	}
	for id := range s.members {
		if !other.members[id] {
			return false
		}
	}
	return true
}

// Intersect returns a new IDSet containing members present in both sets.
func (s *IDSet) Intersect(other *IDSet) *IDSet {
	result := New()
	if other == nil {
		return result
	}
	for _, id := range s.sortedMembers() {
		if other.members[id] {
			result.insert(id)
		}
	}
	return result
}

// IsSubsetOf reports whether every member of s is also a member of other.
func (s *IDSet) IsSubsetOf(other *IDSet) bool {
	return s.Intersect(other).Count() == s.Count()
}

// Add inserts id into the set, appending it to the round-robin order if
// it was not already present.
func (s *IDSet) Add(id uint32) {
	s.insert(id)
}

// Remove deletes id from the set, if present.
func (s *IDSet) Remove(id uint32) {
	if !s.members[id] {
		return
	}
	delete(s.members, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Alloc removes and returns one member of the set, round-robin: it
// always returns the member that has been in the free set the longest,
// so a just-freed ID is the last one reused. It fails with a
// KindExhaustion error if the set is empty.
func (s *IDSet) Alloc() (uint32, error) {
	if len(s.order) == 0 {
		return 0, errors.Exhaustion("idset.alloc", "set exhausted")
	}
	id := s.order[0]
	s.order = s.order[1:]
	delete(s.members, id)
	return id, nil
}

// Clone returns a deep copy of s, preserving round-robin order.
func (s *IDSet) Clone() *IDSet {
	c := New()
	c.order = append([]uint32(nil), s.order...)
	for id := range s.members {
		c.members[id] = true
	}
	return c
}

// Members returns the set's members in ascending numeric order.
func (s *IDSet) Members() []uint32 {
	return s.sortedMembers()
}
