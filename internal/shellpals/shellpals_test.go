// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package shellpals

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flux-framework/flux-coral2/pkg/apinfo"
	"github.com/flux-framework/flux-coral2/pkg/eventlog"
)

func testInfo(tmpdir string) ShellInfo {
	return ShellInfo{
		ShellSize:    2,
		ShellRank:    0,
		NTasks:       4,
		JobID:        "42",
		TmpDir:       tmpdir,
		Nodelist:     []string{"n0", "n1"},
		TaskMap:      apinfo.TaskMap{0, 1, 0, 1},
		CoresPerTask: 2,
	}
}

func TestInit_SingleNodeSkipsBootstrapAndWritesApinfo(t *testing.T) {
	dir := t.TempDir()
	shell := NewFakeShellEnv()
	info := testInfo(dir)
	info.ShellSize = 1

	err := Init(context.Background(), Deps{Shell: shell}, info, Options{ApinfoVersion: apinfo.V1})
	require.NoError(t, err)

	assert.Equal(t, "0", shell.Env["PALS_NODEID"])
	assert.Equal(t, "42", shell.Env["PALS_APID"])
	assert.Equal(t, dir, shell.Env["PALS_SPOOL_DIR"])
	assert.Equal(t, filepath.Join(dir, apinfoFileName), shell.Env["PALS_APINFO"])
	_, hasPort := shell.Env["PMI_CONTROL_PORT"]
	assert.False(t, hasPort)

	_, statErr := os.Stat(filepath.Join(dir, apinfoFileName))
	assert.NoError(t, statErr)
}

func TestInit_MultiNodeReadsPortDistributionEvent(t *testing.T) {
	dir := t.TempDir()
	shell := NewFakeShellEnv()
	info := testInfo(dir)

	entry, err := eventlog.Decode([]byte(`{"name":"cray_port_distribution","timestamp":1.0,"context":{"ports":[20000,20001],"random_integer":555}}` + "\n"))
	require.NoError(t, err)
	waiter := eventlog.NewWaiter(eventlog.NewFakeSource(entry))

	err = Init(context.Background(), Deps{Shell: shell, Waiter: waiter}, info, Options{ApinfoVersion: apinfo.V1})
	require.NoError(t, err)

	assert.Equal(t, "20000,20001", shell.Env["PMI_CONTROL_PORT"])
	assert.Equal(t, "555", shell.Env["PMI_SHARED_SECRET"])
}

func TestInit_MultiNodeReadsPmiBootstrapEvent(t *testing.T) {
	dir := t.TempDir()
	shell := NewFakeShellEnv()
	info := testInfo(dir)

	entry, err := eventlog.Decode([]byte(`{"name":"cray-pmi-bootstrap","timestamp":1.0,"context":{"ports":[30000,30001],"random_integer":777}}` + "\n"))
	require.NoError(t, err)
	waiter := eventlog.NewWaiter(eventlog.NewFakeSource(entry))

	err = Init(context.Background(), Deps{Shell: shell, Waiter: waiter}, info, Options{ApinfoVersion: apinfo.V1})
	require.NoError(t, err)

	assert.Equal(t, "30000,30001", shell.Env["PMI_CONTROL_PORT"])
	assert.Equal(t, "777", shell.Env["PMI_SHARED_SECRET"])
}

func TestInit_MultiNodeNoPortDistributionProceedsWithoutPorts(t *testing.T) {
	dir := t.TempDir()
	shell := NewFakeShellEnv()
	info := testInfo(dir)

	waiter := eventlog.NewWaiter(eventlog.NewFakeSource(&eventlog.Entry{Name: "start"}))

	err := Init(context.Background(), Deps{Shell: shell, Waiter: waiter}, info, Options{ApinfoVersion: apinfo.V1})
	require.NoError(t, err)
	_, hasPort := shell.Env["PMI_CONTROL_PORT"]
	assert.False(t, hasPort)
}

func TestInit_PMIBootstrapDisabledSkipsWait(t *testing.T) {
	dir := t.TempDir()
	shell := NewFakeShellEnv()
	info := testInfo(dir)

	// No waiter supplied at all; if Init tried to use it, this would panic.
	err := Init(context.Background(), Deps{Shell: shell}, info, Options{
		ApinfoVersion: apinfo.V1,
		PMI:           PMIBootstrap{Disabled: true},
	})
	require.NoError(t, err)
}

func TestUnsetAll_ClearsEveryKnownVariable(t *testing.T) {
	shell := NewFakeShellEnv()
	for _, name := range palsEnvNames {
		shell.Env[name] = "x"
	}
	require.NoError(t, UnsetAll(shell))
	assert.Empty(t, shell.Env)
}

func TestEnabled_ChecksCSVMembership(t *testing.T) {
	assert.True(t, Enabled("pmix,cray-pals"))
	assert.True(t, Enabled("cray-pals"))
	assert.False(t, Enabled("pmix"))
	assert.False(t, Enabled(""))
}

func TestTaskInit_SetsRankAndStripsLibraryPath(t *testing.T) {
	task := NewFakeTaskEnv(map[string]string{
		"LD_LIBRARY_PATH": "/usr/lib:/opt/cray/pmi/lib:/usr/local/lib",
	})
	err := TaskInit(task, 3, "/opt/cray/pmi/lib", false)
	require.NoError(t, err)
	assert.Equal(t, "3", task.Env["PALS_RANKID"])
	assert.Equal(t, "/usr/lib:/usr/local/lib", task.Env["LD_LIBRARY_PATH"])
}

func TestTaskInit_NoEditEnvLeavesLibraryPathAlone(t *testing.T) {
	task := NewFakeTaskEnv(map[string]string{
		"LD_LIBRARY_PATH": "/opt/cray/pmi/lib",
	})
	err := TaskInit(task, 0, "/opt/cray/pmi/lib", true)
	require.NoError(t, err)
	assert.Equal(t, "/opt/cray/pmi/lib", task.Env["LD_LIBRARY_PATH"])
}

func TestRemoveAllFromPathList_RemovesEveryOccurrence(t *testing.T) {
	result, removed := removeAllFromPathList("/a:/b:/a:/c", "/a")
	assert.True(t, removed)
	assert.Equal(t, "/b:/c", result)
}

func TestRemoveAllFromPathList_NoMatchReportsFalse(t *testing.T) {
	result, removed := removeAllFromPathList("/a:/b", "/z")
	assert.False(t, removed)
	assert.Equal(t, "/a:/b", result)
}
