// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/flux-framework/flux-coral2/internal/device"
	"github.com/spf13/cobra"
)

var (
	flagListMax      bool
	flagListNoHeader bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List CXI services configured on every local Cassini device",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&flagListMax, "max", false, "print each resource's max limit instead of its reserved amount")
	listCmd.Flags().BoolVar(&flagListNoHeader, "no-header", false, "suppress the column header row")
}

// serviceEntry is one row of "list" output: a CXI service's properties,
// plus the set of device names that expose an identical service
// (combined by serviceEntryEqual so the same service on every NIC in a
// multi-NIC node prints once, not once per device).
type serviceEntry struct {
	devices []string
	svc     device.Service
}

// serviceEntryEqual reports whether two services are the same entry for
// listing purposes, ignoring which device each came from.
func serviceEntryEqual(a, b device.Service) bool {
	if a.ID != b.ID || a.IsSystemService != b.IsSystemService ||
		a.RestrictedMembers != b.RestrictedMembers || a.Enabled != b.Enabled {
		return false
	}
	if a.RestrictedMembers && a.UID != b.UID {
		return false
	}
	if len(a.VNIs) != len(b.VNIs) {
		return false
	}
	aSorted, bSorted := append([]uint32(nil), a.VNIs...), append([]uint32(nil), b.VNIs...)
	slices.Sort(aSorted)
	slices.Sort(bSorted)
	for i := range aSorted {
		if aSorted[i] != bSorted[i] {
			return false
		}
	}
	for _, kind := range device.ResourceKinds {
		if a.Limits[kind] != b.Limits[kind] {
			return false
		}
	}
	return true
}

// insertServiceEntry appends svc under devName to the first matching
// entry in entries, or appends a new entry if none matches
// (insert_services_entry).
func insertServiceEntry(entries []serviceEntry, devName string, svc device.Service) []serviceEntry {
	for i := range entries {
		if serviceEntryEqual(entries[i].svc, svc) {
			entries[i].devices = append(entries[i].devices, devName)
			return entries
		}
	}
	return append(entries, serviceEntry{devices: []string{devName}, svc: svc})
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	out := cmd.OutOrStdout()
	if !flagListNoHeader {
		printListHeader(out)
	}

	enum, err := newDeviceEnumerator()
	if err != nil {
		return err
	}

	devices, err := enum.ListDevices(ctx)
	if err != nil {
		return err
	}

	var entries []serviceEntry
	for _, dev := range devices {
		services, err := enum.Services(ctx, dev)
		if err != nil {
			log.Warn("cxil_get_svc_list", "device", dev.Name, "error", err)
			continue
		}
		for _, svc := range services {
			entries = insertServiceEntry(entries, dev.Name, svc)
		}
	}

	for _, entry := range entries {
		printListEntry(out, entry)
	}
	return nil
}

func printListHeader(out io.Writer) {
	fmt.Fprintf(out, "%-8s %-6s %-5s %-9s", "Name", "Svc", "UID", "VNIs")
	for _, kind := range device.ResourceKinds {
		fmt.Fprintf(out, " %-5s", kind)
	}
	fmt.Fprintln(out)
}

func printListEntry(out io.Writer, entry serviceEntry) {
	svc := entry.svc

	idStr := fmt.Sprintf("%d", svc.ID)
	if svc.IsSystemService {
		idStr += "/sys"
	}
	if !svc.Enabled {
		idStr += "-"
	}

	uidStr := "-"
	if svc.RestrictedMembers {
		uidStr = fmt.Sprintf("%d", svc.UID)
	}

	vniStrs := make([]string, len(svc.VNIs))
	for i, v := range svc.VNIs {
		vniStrs[i] = fmt.Sprintf("%d", v)
	}

	fmt.Fprintf(out, "%-8s %-6s %-5s %-9s", strings.Join(entry.devices, ","), idStr, uidStr, strings.Join(vniStrs, ","))
	for _, kind := range device.ResourceKinds {
		limit := svc.Limits[kind]
		if flagListMax {
			fmt.Fprintf(out, " %-5d", limit.Max)
		} else {
			fmt.Fprintf(out, " %-5d", limit.Reserved)
		}
	}
	fmt.Fprintln(out)
}
