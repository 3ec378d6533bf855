package plate

import (
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
)

func box(text string, x, y, w, h int) domain.TextBlock {
	return domain.TextBlock{
		Text:       text,
		Confidence: 0.9,
		Polygon:    []image.Point{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}},
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		" 123-abc ":     "123 ABC",
		"ab\t 1234":     "AB 1234",
		"NCR.":          "NCR",
		"Ñ 12 · 34":     "12 34",
		"":              "",
		"region iv-a\n": "REGION IV A",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLooksLikePlate(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"123 ABC", true},
		{"AB 12345", true},
		{"1234", false},
		{"NCR", false},
		{"A1", false},
		{"ABCDE 12345", false},
	}
	for _, tt := range tests {
		if got := LooksLikePlate(tt.in); got != tt.want {
			t.Errorf("LooksLikePlate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		blocks []domain.TextBlock
		want   Match
		wantOK bool
	}{
		{
			name:   "plate above region",
			blocks: []domain.TextBlock{box("NCR", 10, 120, 60, 20), box("123 ABC", 10, 40, 200, 60)},
			want:   Match{Plate: "123 ABC", Region: "NCR", Confidence: 0.9},
			wantOK: true,
		},
		{
			name: "words merged into one line",
			blocks: []domain.TextBlock{
				box("ABC", 120, 42, 80, 58),
				box("123", 10, 40, 90, 60),
				box("Central Luzon", 10, 130, 150, 20),
			},
			want:   Match{Plate: "123 ABC", Region: "REGION III", Confidence: 0.9},
			wantOK: true,
		},
		{
			name: "noise above the plate is skipped",
			blocks: []domain.TextBlock{
				box("LTO", 10, 5, 40, 15),
				box("AB-1234", 10, 40, 200, 60),
				box("Region IV-A", 10, 120, 120, 20),
			},
			want:   Match{Plate: "AB 1234", Region: "REGION IV-A", Confidence: 0.9},
			wantOK: true,
		},
		{
			name: "known region label wins over a nearer line",
			blocks: []domain.TextBlock{
				box("123 ABC", 10, 40, 200, 60),
				box("MOTORCYCLE", 10, 110, 120, 18),
				box("Davao Region", 10, 140, 150, 20),
			},
			want:   Match{Plate: "123 ABC", Region: "REGION XI", Confidence: 0.9},
			wantOK: true,
		},
		{
			name: "nothing plate shaped falls back to topmost line",
			blocks: []domain.TextBlock{
				box("PILIPINAS", 10, 5, 100, 15),
				box("MOTOR", 10, 40, 100, 30),
			},
			want:   Match{Plate: "PILIPINAS", Region: "MOTOR", Confidence: 0.9},
			wantOK: true,
		},
		{
			name:   "single block has no region",
			blocks: []domain.TextBlock{box("456 XYZ", 0, 0, 10, 10)},
			want:   Match{Plate: "456 XYZ", Confidence: 0.9},
			wantOK: true,
		},
		{
			name:   "blocks without geometry keep provider order",
			blocks: []domain.TextBlock{{Text: "789 DEF"}, {Text: "bicol"}},
			want:   Match{Plate: "789 DEF", Region: "REGION V"},
			wantOK: true,
		},
		{
			name:   "only blank blocks",
			blocks: []domain.TextBlock{{Text: "  "}, {Text: "*"}},
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.blocks)
			if ok != tt.wantOK {
				t.Fatalf("Extract() ok = %v, want %v", ok, tt.wantOK)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalizeRegion(t *testing.T) {
	tests := map[string]string{
		"NCR":                        "NCR",
		"Metro Manila":               "NCR",
		"REGION 4A":                  "REGION IV-A",
		"region 4 b":                 "REGION IV-B",
		"REGION XIII":                "REGION XIII",
		"Caraga":                     "REGION XIII",
		"CAR":                        "CAR",
		"Region VII Central Visayas": "REGION VII",
		"Somewhere else":             "SOMEWHERE ELSE",
		"":                           "",
	}
	for in, want := range tests {
		if got := NormalizeRegion(in); got != want {
			t.Errorf("NormalizeRegion(%q) = %q, want %q", in, got, want)
		}
	}
	if IsKnownRegion("PILIPINAS") {
		t.Error("IsKnownRegion(PILIPINAS) = true")
	}
}
