package engine

// GetAttribute is the one intrinsic function recognized in deployment
// output values. It collects a runtime property across every instance of a
// named node.
type GetAttribute struct {
	// NodeName is the node whose instances are scanned.
	NodeName string

	// AttributeName is the runtime property collected from each instance.
	AttributeName string
}

// parseFunction recognizes the {"get_attribute": [node, attribute]}
// expression form. Anything else is a plain value.
func parseFunction(v any) *GetAttribute {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return nil
	}
	raw, ok := m["get_attribute"]
	if !ok {
		return nil
	}
	args, ok := raw.([]any)
	if !ok || len(args) != 2 {
		return nil
	}
	nodeName, ok := args[0].(string)
	if !ok {
		return nil
	}
	attributeName, ok := args[1].(string)
	if !ok {
		return nil
	}
	return &GetAttribute{NodeName: nodeName, AttributeName: attributeName}
}

// scanProperties walks a decoded value tree depth-first and offers every
// map value and slice element to visit. When visit returns a replacement,
// it is stored in place and not descended into.
func scanProperties(v any, visit func(value any) (any, bool)) {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if replacement, ok := visit(val); ok {
				t[k] = replacement
				continue
			}
			scanProperties(val, visit)
		}
	case []any:
		for i, val := range t {
			if replacement, ok := visit(val); ok {
				t[i] = replacement
				continue
			}
			scanProperties(val, visit)
		}
	}
}
