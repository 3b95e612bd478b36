package plan

// Operation describes a single operation mapping: the dotted
// "<module>.<attribute>" path of the external implementation plus its
// declared inputs.
type Operation struct {
	// Implementation is the dotted path of the registered implementation.
	Implementation string `json:"implementation" yaml:"implementation" validate:"required"`

	// Inputs are the declared inputs passed to the implementation.
	Inputs map[string]any `json:"inputs,omitempty" yaml:"inputs,omitempty"`
}

// Relationship connects a node (or node instance) to a target, carrying the
// operation mappings run on each side of the relationship.
type Relationship struct {
	// Type is the relationship type (e.g. "contained_in").
	Type string `json:"type" yaml:"type"`

	// Target is the id of the target node (template level) or target node
	// instance (instance level).
	Target string `json:"target" yaml:"target"`

	// SourceOperations are the operations run on the source side.
	// Never nil after Normalize.
	SourceOperations map[string]Operation `json:"source_operations,omitempty" yaml:"source_operations,omitempty" validate:"dive"`

	// TargetOperations are the operations run on the target side.
	// Never nil after Normalize.
	TargetOperations map[string]Operation `json:"target_operations,omitempty" yaml:"target_operations,omitempty" validate:"dive"`
}

// Node is a template-level entity of the deployment.
type Node struct {
	// ID is the stable node id, unique within the plan.
	ID string `json:"id" yaml:"id" validate:"required"`

	// Type is the node type name.
	Type string `json:"type" yaml:"type" validate:"required"`

	// Properties are the template-level properties.
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`

	// Operations maps operation kind to its descriptor.
	Operations map[string]Operation `json:"operations,omitempty" yaml:"operations,omitempty" validate:"dive"`

	// Relationships are the node's outgoing relationships.
	Relationships []Relationship `json:"relationships,omitempty" yaml:"relationships,omitempty" validate:"dive"`
}

// NodeInstance is a running instance of a Node. The instance id is the
// storage primary key; Version is the optimistic-concurrency token and only
// ever grows by exactly one per accepted update.
type NodeInstance struct {
	// ID is the stable instance id, unique within the plan.
	ID string `json:"id" yaml:"id" validate:"required"`

	// NodeID is the id of the owning node template.
	NodeID string `json:"node_id" yaml:"node_id" validate:"required"`

	// State is the free-form lifecycle state (e.g. "uninitialized", "started").
	State string `json:"state" yaml:"state"`

	// RuntimeProperties hold the instance's runtime property values.
	RuntimeProperties map[string]any `json:"runtime_properties,omitempty" yaml:"runtime_properties,omitempty"`

	// Version is the optimistic-concurrency version counter, starting at 0.
	Version int64 `json:"version" yaml:"version" validate:"gte=0"`

	// Relationships mirror the owning node's relationships at instance level.
	Relationships []Relationship `json:"relationships,omitempty" yaml:"relationships,omitempty" validate:"dive"`
}

// Parameter declares a single workflow parameter. HasDefault distinguishes
// an absent default from an explicit null default.
type Parameter struct {
	// Default is the default value, meaningful only when HasDefault is set.
	Default any `json:"default,omitempty"`

	// HasDefault reports whether a default was declared at all.
	HasDefault bool `json:"has_default"`
}

// Workflow names an external workflow implementation and declares its
// parameter set.
type Workflow struct {
	// Operation names the external workflow implementation.
	Operation Operation `json:"operation" yaml:"operation" validate:"required"`

	// Parameters maps parameter name to its declaration.
	Parameters map[string]Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Plan is the full compiled deployment plan.
type Plan struct {
	// Name is the deployment name.
	Name string `json:"name" yaml:"name"`

	// Nodes are all node templates.
	Nodes []*Node `json:"nodes" yaml:"nodes" validate:"dive"`

	// NodeInstances are all running node instances.
	NodeInstances []*NodeInstance `json:"node_instances" yaml:"node_instances" validate:"dive"`

	// Workflows maps workflow name to its definition.
	Workflows map[string]*Workflow `json:"workflows,omitempty" yaml:"workflows,omitempty" validate:"dive"`

	// Outputs maps output name to a literal value or an intrinsic function
	// expression resolved at read time.
	Outputs map[string]any `json:"outputs,omitempty" yaml:"outputs,omitempty"`
}

// CopyValue returns a deep copy of an arbitrary decoded plan value.
// Maps and slices are cloned recursively; scalars are returned as-is.
func CopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = CopyValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = CopyValue(val)
		}
		return out
	default:
		return v
	}
}

// CopyProperties deep-copies a property mapping. A nil input yields nil.
func CopyProperties(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	return CopyValue(props).(map[string]any)
}

// Clone returns a deep copy of the operation descriptor.
func (o Operation) Clone() Operation {
	return Operation{
		Implementation: o.Implementation,
		Inputs:         CopyProperties(o.Inputs),
	}
}

func cloneOperations(ops map[string]Operation) map[string]Operation {
	if ops == nil {
		return nil
	}
	out := make(map[string]Operation, len(ops))
	for k, op := range ops {
		out[k] = op.Clone()
	}
	return out
}

// Clone returns a deep copy of the relationship.
func (r Relationship) Clone() Relationship {
	return Relationship{
		Type:             r.Type,
		Target:           r.Target,
		SourceOperations: cloneOperations(r.SourceOperations),
		TargetOperations: cloneOperations(r.TargetOperations),
	}
}

func cloneRelationships(rels []Relationship) []Relationship {
	if rels == nil {
		return nil
	}
	out := make([]Relationship, len(rels))
	for i, rel := range rels {
		out[i] = rel.Clone()
	}
	return out
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	return &Node{
		ID:            n.ID,
		Type:          n.Type,
		Properties:    CopyProperties(n.Properties),
		Operations:    cloneOperations(n.Operations),
		Relationships: cloneRelationships(n.Relationships),
	}
}

// Clone returns a deep copy of the node instance.
func (i *NodeInstance) Clone() *NodeInstance {
	if i == nil {
		return nil
	}
	return &NodeInstance{
		ID:                i.ID,
		NodeID:            i.NodeID,
		State:             i.State,
		RuntimeProperties: CopyProperties(i.RuntimeProperties),
		Version:           i.Version,
		Relationships:     cloneRelationships(i.Relationships),
	}
}
