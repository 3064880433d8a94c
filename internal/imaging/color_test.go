package imaging

import (
	"image/color"
	"testing"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    color.NRGBA
		wantErr bool
	}{
		{name: "long hex", input: "#FF8000", want: color.NRGBA{255, 128, 0, 255}},
		{name: "lowercase without hash", input: "ff8000", want: color.NRGBA{255, 128, 0, 255}},
		{name: "short hex", input: "#fff", want: color.NRGBA{255, 255, 255, 255}},
		{name: "with alpha", input: "#00000080", want: color.NRGBA{0, 0, 0, 128}},
		{name: "named", input: " White ", want: color.NRGBA{255, 255, 255, 255}},
		{name: "empty", input: "", wantErr: true},
		{name: "bad length", input: "#12345", wantErr: true},
		{name: "bad digits", input: "#GGGGGG", wantErr: true},
		{name: "bad alpha", input: "#000000ZZ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseColor(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseColor(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseColor(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseColor(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestMustParseColor_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParseColor should panic on invalid input")
		}
	}()
	MustParseColor("not-a-color")
}

func TestColorHex(t *testing.T) {
	if got := ColorHex(color.RGBA{255, 0, 128, 255}); got != "#FF0080" {
		t.Errorf("ColorHex = %s, want #FF0080", got)
	}
	if got := ColorHex(MustParseColor("#123456")); got != "#123456" {
		t.Errorf("ColorHex round trip = %s, want #123456", got)
	}
}
