package geom

import "testing"

func TestRectCenter(t *testing.T) {
	r := Rect{Left: 10, Top: 20, Width: 40, Height: 16}
	if p := r.Center(); p.X != 30 || p.Y != 28 {
		t.Errorf("Center() = %+v, want (30, 28)", p)
	}
}

func TestRectDegenerate(t *testing.T) {
	tests := []struct {
		name string
		r    Rect
		want bool
	}{
		{"zero rect", Rect{}, true},
		{"positioned but sizeless", Rect{Left: 5, Top: 5}, true},
		{"zero width only", Rect{Width: 0, Height: 16}, false},
		{"zero height only", Rect{Width: 40, Height: 0}, false},
		{"normal", Rect{Width: 40, Height: 16}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Degenerate(); got != tt.want {
				t.Errorf("Degenerate() = %v, want %v", got, tt.want)
			}
		})
	}
}
