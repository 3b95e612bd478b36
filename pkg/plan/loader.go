package plan

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// UnmarshalYAML decodes a parameter declaration, recording whether the
// "default" key was present so a declared null default stays distinguishable
// from no default at all.
func (p *Parameter) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if d, ok := raw["default"]; ok {
		p.Default = d
		p.HasDefault = true
	}
	return nil
}

// Decode reads one compiled plan document from r, normalizes it and
// validates its structure. JSON documents are accepted as a YAML subset.
func Decode(r io.Reader) (*Plan, error) {
	var p Plan
	if err := yaml.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode plan document: %w", err)
	}
	if err := p.Normalize(); err != nil {
		return nil, err
	}
	if err := validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("invalid plan document: %w", err)
	}
	return &p, nil
}

// Load reads a compiled plan document from path.
func Load(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plan %s: %w", path, err)
	}
	defer f.Close()

	p, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", path, err)
	}
	return p, nil
}

// Normalize prepares a decoded plan for use: relationship operation maps are
// defaulted to empty, workflow and output maps are allocated, and the plan's
// structural invariants (unique ids, instances owned by known nodes) are
// checked.
func (p *Plan) Normalize() error {
	if p.Workflows == nil {
		p.Workflows = make(map[string]*Workflow)
	}
	if p.Outputs == nil {
		p.Outputs = make(map[string]any)
	}

	nodeIDs := make(map[string]struct{}, len(p.Nodes))
	for _, node := range p.Nodes {
		if node == nil {
			return errors.New("plan contains a null node entry")
		}
		if _, ok := nodeIDs[node.ID]; ok {
			return fmt.Errorf("duplicate node id %q", node.ID)
		}
		nodeIDs[node.ID] = struct{}{}
		if node.Operations == nil {
			node.Operations = make(map[string]Operation)
		}
		normalizeRelationships(node.Relationships)
	}

	instanceIDs := make(map[string]struct{}, len(p.NodeInstances))
	for _, instance := range p.NodeInstances {
		if instance == nil {
			return errors.New("plan contains a null node instance entry")
		}
		if _, ok := instanceIDs[instance.ID]; ok {
			return fmt.Errorf("duplicate node instance id %q", instance.ID)
		}
		instanceIDs[instance.ID] = struct{}{}
		if _, ok := nodeIDs[instance.NodeID]; !ok {
			return fmt.Errorf("node instance %q references unknown node %q",
				instance.ID, instance.NodeID)
		}
		normalizeRelationships(instance.Relationships)
	}

	return nil
}

func normalizeRelationships(rels []Relationship) {
	for i := range rels {
		if rels[i].SourceOperations == nil {
			rels[i].SourceOperations = make(map[string]Operation)
		}
		if rels[i].TargetOperations == nil {
			rels[i].TargetOperations = make(map[string]Operation)
		}
	}
}
