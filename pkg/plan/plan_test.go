package plan

import (
	"strings"
	"testing"
)

const samplePlan = `
name: web-app
nodes:
  - id: vm
    type: host
    properties:
      image: ubuntu
    operations:
      create:
        implementation: compute.start
        inputs:
          flavor: small
  - id: server
    type: web_server
    relationships:
      - type: contained_in
        target: vm
        source_operations:
          preconfigure:
            implementation: web.preconfigure
node_instances:
  - id: vm_1
    node_id: vm
    state: uninitialized
  - id: server_1
    node_id: server
    relationships:
      - type: contained_in
        target: vm_1
workflows:
  install:
    operation:
      implementation: workflows.install
    parameters:
      mandatory: {}
      optional:
        default: 5
      nullable:
        default: null
outputs:
  endpoint:
    get_attribute: [server, url]
`

func decodeSample(t *testing.T) *Plan {
	t.Helper()
	p, err := Decode(strings.NewReader(samplePlan))
	if err != nil {
		t.Fatalf("failed to decode plan: %v", err)
	}
	return p
}

func TestDecode(t *testing.T) {
	p := decodeSample(t)

	if p.Name != "web-app" {
		t.Errorf("expected name web-app, got %s", p.Name)
	}
	if len(p.Nodes) != 2 || len(p.NodeInstances) != 2 {
		t.Fatalf("expected 2 nodes and 2 instances, got %d and %d",
			len(p.Nodes), len(p.NodeInstances))
	}

	create, ok := p.Nodes[0].Operations["create"]
	if !ok {
		t.Fatal("expected create operation on vm")
	}
	if create.Implementation != "compute.start" {
		t.Errorf("unexpected implementation: %s", create.Implementation)
	}
	if create.Inputs["flavor"] != "small" {
		t.Errorf("unexpected inputs: %v", create.Inputs)
	}

	if p.NodeInstances[0].Version != 0 {
		t.Errorf("expected initial version 0, got %d", p.NodeInstances[0].Version)
	}
}

func TestDecodeParameterDefaults(t *testing.T) {
	p := decodeSample(t)

	params := p.Workflows["install"].Parameters
	if params["mandatory"].HasDefault {
		t.Error("parameter without a default must report HasDefault false")
	}
	if !params["optional"].HasDefault || params["optional"].Default != 5 {
		t.Errorf("expected default 5, got %+v", params["optional"])
	}
	// An explicit null default is still a default.
	if !params["nullable"].HasDefault || params["nullable"].Default != nil {
		t.Errorf("expected explicit null default, got %+v", params["nullable"])
	}
}

func TestNormalizeDefaultsRelationshipOperations(t *testing.T) {
	p := decodeSample(t)

	rel := p.NodeInstances[1].Relationships[0]
	if rel.SourceOperations == nil || rel.TargetOperations == nil {
		t.Error("relationship operation maps must never be nil after Normalize")
	}
	if p.Nodes[1].Relationships[0].TargetOperations == nil {
		t.Error("node relationship target operations must never be nil after Normalize")
	}
}

func TestNormalizeRejectsDuplicateNodeID(t *testing.T) {
	p := &Plan{Nodes: []*Node{
		{ID: "vm", Type: "host"},
		{ID: "vm", Type: "host"},
	}}
	if err := p.Normalize(); err == nil {
		t.Fatal("expected duplicate node id error")
	}
}

func TestNormalizeRejectsDuplicateInstanceID(t *testing.T) {
	p := &Plan{
		Nodes: []*Node{{ID: "vm", Type: "host"}},
		NodeInstances: []*NodeInstance{
			{ID: "vm_1", NodeID: "vm"},
			{ID: "vm_1", NodeID: "vm"},
		},
	}
	if err := p.Normalize(); err == nil {
		t.Fatal("expected duplicate node instance id error")
	}
}

func TestNormalizeRejectsUnknownNodeReference(t *testing.T) {
	p := &Plan{
		Nodes:         []*Node{{ID: "vm", Type: "host"}},
		NodeInstances: []*NodeInstance{{ID: "db_1", NodeID: "db"}},
	}
	err := p.Normalize()
	if err == nil {
		t.Fatal("expected unknown node reference error")
	}
	if !strings.Contains(err.Error(), "db") {
		t.Errorf("error should name the unknown node, got %v", err)
	}
}

func TestDecodeRejectsMissingImplementation(t *testing.T) {
	doc := `
nodes:
  - id: vm
    type: host
    operations:
      create:
        inputs: {}
`
	if _, err := Decode(strings.NewReader(doc)); err == nil {
		t.Fatal("expected validation error for operation without implementation")
	}
}

func TestCopyValue(t *testing.T) {
	original := map[string]any{
		"list":   []any{1, map[string]any{"k": "v"}},
		"scalar": "s",
	}
	copied := CopyValue(original).(map[string]any)

	copied["list"].([]any)[1].(map[string]any)["k"] = "changed"
	if original["list"].([]any)[1].(map[string]any)["k"] != "v" {
		t.Error("CopyValue must deep-copy nested containers")
	}
}

func TestNodeInstanceClone(t *testing.T) {
	instance := &NodeInstance{
		ID:                "vm_1",
		NodeID:            "vm",
		State:             "started",
		RuntimeProperties: map[string]any{"nested": map[string]any{"k": "v"}},
		Version:           3,
		Relationships: []Relationship{{
			Type:   "contained_in",
			Target: "host_1",
			SourceOperations: map[string]Operation{
				"unlink": {Implementation: "web.unlink", Inputs: map[string]any{"force": true}},
			},
		}},
	}

	clone := instance.Clone()
	clone.RuntimeProperties["nested"].(map[string]any)["k"] = "changed"
	clone.Relationships[0].SourceOperations["unlink"].Inputs["force"] = false

	if instance.RuntimeProperties["nested"].(map[string]any)["k"] != "v" {
		t.Error("Clone must deep-copy runtime properties")
	}
	if instance.Relationships[0].SourceOperations["unlink"].Inputs["force"] != true {
		t.Error("Clone must deep-copy relationship operation inputs")
	}
	if clone.Version != 3 || clone.State != "started" {
		t.Errorf("Clone must preserve scalar fields, got %+v", clone)
	}
}

func TestNodeClone(t *testing.T) {
	node := &Node{
		ID:         "vm",
		Type:       "host",
		Properties: map[string]any{"image": "ubuntu"},
		Operations: map[string]Operation{
			"create": {Implementation: "compute.start"},
		},
	}

	clone := node.Clone()
	clone.Properties["image"] = "debian"
	if node.Properties["image"] != "ubuntu" {
		t.Error("Clone must deep-copy node properties")
	}
}
