package main

import "testing"

func TestResolveAlias(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"python", "python@3.13"},
		{"node", "node@22"},
		{"postgres", "postgresql@17"},
		{"mysql", "mysql@9.1"},
		{"java", "openjdk@23"},
		{"go", "go@1.23"},
		{"unaliased-formula", "unaliased-formula"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveAlias(tt.name); got != tt.want {
				t.Errorf("resolveAlias(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}
