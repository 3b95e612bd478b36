package commands

import (
	"testing"
)

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{
		"replicas=3",
		"name=web",
		"debug=true",
		"endpoint=http://localhost:8080",
	})
	if err != nil {
		t.Fatalf("failed to parse params: %v", err)
	}

	if params["replicas"] != 3 {
		t.Errorf("expected integer 3, got %T %v", params["replicas"], params["replicas"])
	}
	if params["name"] != "web" {
		t.Errorf("expected string web, got %v", params["name"])
	}
	if params["debug"] != true {
		t.Errorf("expected boolean true, got %v", params["debug"])
	}
	if params["endpoint"] != "http://localhost:8080" {
		t.Errorf("expected the raw string, got %v", params["endpoint"])
	}
}

func TestParseParamsRejectsMalformed(t *testing.T) {
	if _, err := parseParams([]string{"novalue"}); err == nil {
		t.Error("expected error for flag without =")
	}
	if _, err := parseParams([]string{"=value"}); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestParseParamsEmpty(t *testing.T) {
	params, err := parseParams(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params != nil {
		t.Errorf("expected nil map for no flags, got %v", params)
	}
}
