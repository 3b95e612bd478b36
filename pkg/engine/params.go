package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/funkyHat/orchard/pkg/plan"
)

// mergeExecutionParameters merges caller-supplied parameters against the
// workflow's declared parameter set.
//
// Declared parameters without a default are mandatory; every missing name is
// reported in one validation error so the caller can fix all of them in a
// single pass. The same applies to caller-supplied names the workflow does
// not declare, unless custom parameters are allowed, in which case they pass
// through unchanged.
func mergeExecutionParameters(workflowName string, wf *plan.Workflow, supplied map[string]any, allowCustom bool) (map[string]any, error) {
	merged := make(map[string]any, len(wf.Parameters)+len(supplied))

	var missing []string
	for name, param := range wf.Parameters {
		value, ok := supplied[name]
		switch {
		case ok:
			merged[name] = value
		case param.HasDefault:
			merged[name] = param.Default
		default:
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, NewValidationError(fmt.Sprintf(
			"workflow %q must be provided with the following parameters to execute: %s",
			workflowName, strings.Join(missing, ", "))).
			WithDetail("missing_parameters", missing)
	}

	var custom []string
	for name := range supplied {
		if _, declared := wf.Parameters[name]; !declared {
			custom = append(custom, name)
		}
	}
	if len(custom) > 0 && !allowCustom {
		sort.Strings(custom)
		return nil, NewValidationError(fmt.Sprintf(
			"workflow %q does not have the following parameters declared: %s; "+
				"remove these parameters or allow custom parameters",
			workflowName, strings.Join(custom, ", "))).
			WithDetail("custom_parameters", custom)
	}
	for _, name := range custom {
		merged[name] = supplied[name]
	}

	return merged, nil
}
