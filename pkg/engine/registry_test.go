package engine

import (
	"context"
	"strings"
	"testing"
)

func noopTask(ctx context.Context, tctx *Context, kwargs map[string]any) error {
	return nil
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry()
	r.Register("plugins.compute", "start", noopTask)

	fn, err := r.Resolve("plugins.compute.start")
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}
	if fn == nil {
		t.Fatal("expected a task function")
	}
}

func TestRegistryResolveUnknownModule(t *testing.T) {
	r := NewRegistry()

	_, err := r.Resolve("plugins.compute.start")
	if !IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if !strings.Contains(err.Error(), "no module named plugins.compute") {
		t.Errorf("error should name the missing module, got %v", err)
	}
}

func TestRegistryResolveUnknownAttribute(t *testing.T) {
	r := NewRegistry()
	r.Register("plugins.compute", "start", noopTask)

	_, err := r.Resolve("plugins.compute.stop")
	if !IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if !strings.Contains(err.Error(), `module plugins.compute has no attribute "stop"`) {
		t.Errorf("error should name the missing attribute, got %v", err)
	}
}

func TestRegisterModule(t *testing.T) {
	r := NewRegistry()
	r.RegisterModule("workflows", map[string]TaskFunc{
		"install":   noopTask,
		"uninstall": noopTask,
	})

	for _, path := range []string{"workflows.install", "workflows.uninstall"} {
		if _, err := r.Resolve(path); err != nil {
			t.Errorf("failed to resolve %s: %v", path, err)
		}
	}
}

func TestSplitTaskPath(t *testing.T) {
	tests := []struct {
		path      string
		module    string
		attribute string
	}{
		{"compute.start", "compute", "start"},
		{"plugins.compute.start", "plugins.compute", "start"},
		{"start", "", "start"},
	}
	for _, tt := range tests {
		module, attribute := splitTaskPath(tt.path)
		if module != tt.module || attribute != tt.attribute {
			t.Errorf("splitTaskPath(%q) = %q, %q; want %q, %q",
				tt.path, module, attribute, tt.module, tt.attribute)
		}
	}
}

func TestParseFunction(t *testing.T) {
	fn := parseFunction(map[string]any{"get_attribute": []any{"vm", "ip"}})
	if fn == nil {
		t.Fatal("expected a parsed function")
	}
	if fn.NodeName != "vm" || fn.AttributeName != "ip" {
		t.Errorf("unexpected function: %+v", fn)
	}

	// Anything that is not exactly the expression form is a plain value.
	plain := []any{
		"get_attribute",
		map[string]any{"get_attribute": []any{"vm"}},
		map[string]any{"get_attribute": []any{"vm", "ip", "extra"}},
		map[string]any{"get_attribute": []any{1, "ip"}},
		map[string]any{"get_attribute": "vm.ip"},
		map[string]any{"get_attribute": []any{"vm", "ip"}, "other": true},
		nil,
	}
	for _, v := range plain {
		if parseFunction(v) != nil {
			t.Errorf("expected %v to be a plain value", v)
		}
	}
}

func TestScanProperties(t *testing.T) {
	tree := map[string]any{
		"top": map[string]any{"replace": true},
		"list": []any{
			map[string]any{"replace": true},
			"keep",
		},
	}

	scanProperties(tree, func(v any) (any, bool) {
		m, ok := v.(map[string]any)
		if ok && m["replace"] == true {
			return "replaced", true
		}
		return nil, false
	})

	if tree["top"] != "replaced" {
		t.Errorf("expected map value replacement, got %v", tree["top"])
	}
	if tree["list"].([]any)[0] != "replaced" {
		t.Errorf("expected list element replacement, got %v", tree["list"])
	}
	if tree["list"].([]any)[1] != "keep" {
		t.Errorf("expected untouched element, got %v", tree["list"])
	}
}
