package payload

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"explicit sensor type", `{"type":"sensor","sensors":{}}`, EventTypeSensor},
		{"explicit config type", `{"type":"config","layout_type":"quad"}`, EventTypeConfig},
		{"explicit status type", `{"type":"status","uptime":3}`, EventTypeStatus},
		{"sensors shape heuristic", `{"sensors":{"t":[{"Value":1}]}}`, EventTypeSensor},
		{"layout shape heuristic", `{"layout_type":"grid","lvgl_grid":{"rows":2}}`, EventTypeConfig},
		{"grid block heuristic", `{"lvgl_grid":{"rows":4,"columns":4}}`, EventTypeConfig},
		{"unknown object", `{"foo":"bar"}`, EventTypeUnknown},
		{"not json", "boot: panel v2.1", EventTypeUnknown},
		{"empty", "", EventTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.body); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}
