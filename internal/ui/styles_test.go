package ui

import "testing"

func TestRenderPlain(t *testing.T) {
	DisableColor()

	tests := []struct {
		name   string
		render func(string) string
	}{
		{"accent", RenderAccent},
		{"pass", RenderPass},
		{"warn", RenderWarn},
		{"fail", RenderFail},
		{"muted", RenderMuted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.render("en.json"); got != "en.json" {
				t.Errorf("plain render = %q, want %q", got, "en.json")
			}
		})
	}
}

func TestColorEnabled_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if ColorEnabled() {
		t.Error("NO_COLOR should disable color")
	}
}
