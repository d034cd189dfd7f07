// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package broker

import "encoding/json"

// JobAttrs is the slice of a job's submitted attributes the jobtap run
// handler needs: the raw "cray-slingshot" shell option, exactly as the
// reference plugin's job.state.run callback unpacks it out of
// jobspec.attributes.system.shell.options.
//
// SlingshotOption is nil when the job was submitted without a
// cray-slingshot shell option at all. Otherwise it holds whichever JSON
// value the user supplied: the bare string "off", or an object such as
// {"vnicount":2}.
type JobAttrs struct {
	SlingshotOption json.RawMessage
}

// JobAttrReader reads the submitted attributes of a job by ID (the
// jobspec the job-manager hands the reference plugin's job.state.run
// callback). It
// exists so the jobtap run handler can be built and tested without a
// live Flux job-manager to query.
type JobAttrReader interface {
	Attrs(jobID string) (JobAttrs, error)
}

// FakeJobAttrReader is a canned JobAttrReader for tests.
type FakeJobAttrReader struct {
	Options map[string]json.RawMessage
	Err     error
}

var _ JobAttrReader = (*FakeJobAttrReader)(nil)

// Attrs implements JobAttrReader.
func (f *FakeJobAttrReader) Attrs(jobID string) (JobAttrs, error) {
	if f.Err != nil {
		return JobAttrs{}, f.Err
	}
	return JobAttrs{SlingshotOption: f.Options[jobID]}, nil
}
