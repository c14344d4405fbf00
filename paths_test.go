package shadertpl

import (
	"path/filepath"
	"testing"
)

func TestResolveOutputPath(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		outputDir string
		want      string
	}{
		{
			name: "simple",
			path: "fur.sg2.txt",
			want: "fur.shader",
		},
		{
			name: "with_path",
			path: "/home/user/shaders/fur.sg2.txt",
			want: "/home/user/shaders/fur.shader",
		},
		{
			name:      "with_output_dir",
			path:      "/home/user/shaders/fur.sg2.txt",
			outputDir: "/tmp/generated",
			want:      "/tmp/generated/fur.shader",
		},
		{
			name: "different_extension",
			path: "templates/toon.txt",
			want: "templates/toon.shader",
		},
		{
			name: "dotted_name",
			path: "templates/toon.v2.sg2.txt",
			want: "templates/toon.v2.shader",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveOutputPath(tt.path, tt.outputDir)

			// Use filepath.Clean to normalize paths for comparison
			if filepath.Clean(got) != filepath.Clean(tt.want) {
				t.Errorf("ResolveOutputPath() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTemplatePath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{path: "fur.sg2.txt", want: true},
		{path: "dir/fur.sg2.txt", want: true},
		{path: "fur.txt", want: false},
		{path: "fur.shader", want: false},
	}

	for _, tt := range tests {
		if got := IsTemplatePath(tt.path); got != tt.want {
			t.Errorf("IsTemplatePath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
