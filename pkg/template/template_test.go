package template

import "testing"

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		template string
		vars     map[string]interface{}
		expected string
	}{
		{
			name:     "single_placeholder",
			template: "{filename}.sha256",
			vars:     map[string]interface{}{"filename": "App-1.2.3.AppImage"},
			expected: "App-1.2.3.AppImage.sha256",
		},
		{
			name:     "appname_placeholder",
			template: "{appname}.AppImage",
			vars:     map[string]interface{}{"appname": "obsidian"},
			expected: "obsidian.AppImage",
		},
		{
			name:     "no_placeholders_passes_through",
			template: "static-name.sha256",
			vars:     map[string]interface{}{"filename": "unused"},
			expected: "static-name.sha256",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Render(tt.template, tt.vars)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if result != tt.expected {
				t.Errorf("Render() = %q, want %q", result, tt.expected)
			}
		})
	}
}
