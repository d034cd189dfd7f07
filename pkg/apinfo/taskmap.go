// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package apinfo

// TaskMap assigns each global task (the slice index, 0-based) to the
// node index that runs it. It is the Go stand-in for the reference
// implementation's struct taskmap: this package only ever needs
// "which node does task N run on", never the richer RLE encoding the
// original library supports.
type TaskMap []int

// NumTasks returns the total number of tasks (processing elements).
func (tm TaskMap) NumTasks() int { return len(tm) }

// tasksPerNode counts, for each node index present in tm, how many
// tasks it runs, the same count max_ntasks walks over to find
// pes_per_node.
func (tm TaskMap) tasksPerNode() map[int]int {
	counts := make(map[int]int)
	for _, nodeIdx := range tm {
		counts[nodeIdx]++
	}
	return counts
}

// maxTasksPerNode mirrors max_ntasks: the largest per-node task count,
// used as pals_cmd_t.pes_per_node.
func (tm TaskMap) maxTasksPerNode() int {
	max := 0
	for _, count := range tm.tasksPerNode() {
		if count > max {
			max = count
		}
	}
	return max
}

// pes derives one Pe record per task, in increasing task-ID order. A
// task's localidx is the count of earlier tasks (by global ID) already
// assigned to the same node, matching the reference's localidx helper,
// which walks the node's taskid set in ascending order.
func (tm TaskMap) pes() []Pe {
	pes := make([]Pe, len(tm))
	localCounters := make(map[int]int32)
	for taskID, nodeIdx := range tm {
		pes[taskID] = Pe{
			LocalIdx: localCounters[nodeIdx],
			CmdIdx:   0,
			NodeIdx:  int32(nodeIdx),
		}
		localCounters[nodeIdx]++
	}
	return pes
}
