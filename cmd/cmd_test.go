package cmd

import (
	"bufio"
	"strings"
	"testing"

	"github.com/andresmejia3/stampscan/internal/gallery"
)

func TestTally(t *testing.T) {
	counts := tally{}
	counts.add(1, gallery.Result{Label: "rose", Score: 40, Matched: true})
	counts.add(2, gallery.Result{}) // no match is not counted
	counts.add(3, gallery.Result{Label: "anchor", Score: 30, Matched: true})
	counts.add(4, gallery.Result{Label: "rose", Score: 35, Matched: true})
	counts.add(5, gallery.Result{Label: "anchor", Score: 31, Matched: true})
	counts.add(6, gallery.Result{Label: "rose", Score: 36, Matched: true})

	got := counts.sorted()
	if len(got) != 2 {
		t.Fatalf("Expected 2 labels, got %d", len(got))
	}
	rose := got[0]
	if rose.Label != "rose" || rose.Hits != 3 {
		t.Errorf("Expected rose x3 first, got %+v", rose)
	}
	if rose.BestScore != 35 || rose.FirstSeen != 1 || rose.LastSeen != 6 {
		t.Errorf("Unexpected rose aggregates: %+v", rose)
	}
	if got[1].Label != "anchor" || got[1].BestScore != 30 {
		t.Errorf("Unexpected anchor entry: %+v", got[1])
	}
}

func TestTallyTieBreaksByLabel(t *testing.T) {
	counts := tally{}
	counts.add(1, gallery.Result{Label: "zeta", Matched: true})
	counts.add(2, gallery.Result{Label: "alpha", Matched: true})

	got := counts.sorted()
	if got[0].Label != "alpha" {
		t.Errorf("Expected alphabetical order on equal hits, got %q first", got[0].Label)
	}
}

func TestDescribeResult(t *testing.T) {
	if got := describeResult(gallery.Result{}); got != "no match" {
		t.Errorf("Expected 'no match', got %q", got)
	}
	if got := describeResult(gallery.Result{Label: "rose", Matched: true}); got != "rose" {
		t.Errorf("Expected 'rose', got %q", got)
	}
}

func TestValidateWatchFlags(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"Valid camera", Options{SamplesDir: "samples", NthFrame: 1}, false},
		{"Valid input", Options{SamplesDir: "samples", NthFrame: 5, InputPath: "clip.mp4", Camera: -1}, false},
		{"Missing samples", Options{NthFrame: 1}, true},
		{"Zero nth-frame", Options{SamplesDir: "samples"}, true},
		{"Negative camera", Options{SamplesDir: "samples", NthFrame: 1, Camera: -1}, true},
		{"Negative max-dim", Options{SamplesDir: "samples", NthFrame: 1, MaxDim: -5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			err := validateWatchFlags(&opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateWatchFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateGalleryFlagsClampsEngines(t *testing.T) {
	opts := Options{SamplesDir: "samples", NumEngines: 0}
	if err := validateGalleryFlags(&opts); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if opts.NumEngines != 1 {
		t.Errorf("Expected engines clamped to 1, got %d", opts.NumEngines)
	}
}

func TestResolveDBURL(t *testing.T) {
	saved := dbURL
	defer func() { dbURL = saved }()

	dbURL = ""
	t.Setenv("POSTGRES_HOST", "")
	if got := resolveDBURL(); got != "" {
		t.Errorf("Expected no URL without flag or env, got %q", got)
	}

	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_USER", "u")
	t.Setenv("POSTGRES_PASSWORD", "p")
	t.Setenv("POSTGRES_DB", "stamps")
	t.Setenv("POSTGRES_PORT", "")
	if got, want := resolveDBURL(), "postgres://u:p@db:5432/stamps"; got != want {
		t.Errorf("resolveDBURL() = %q, want %q", got, want)
	}

	dbURL = "postgres://flag/wins"
	if got := resolveDBURL(); got != dbURL {
		t.Errorf("Expected flag to take precedence, got %q", got)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := confirm(bufio.NewReader(strings.NewReader(tt.input)), "?"); got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
