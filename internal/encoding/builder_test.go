package encoding

import (
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"

	"batchenc/internal/priority"
)

func TestBuildOutputPath(t *testing.T) {
	explicit := t.TempDir()
	tests := []struct {
		name     string
		input    string
		settings func(*Settings)
		want     string
	}{
		{
			name:  "suffix in same directory",
			input: "/videos/clip.mp4",
			want:  "/videos/clip_x265.mp4",
		},
		{
			name:     "suffix disabled keeps stem",
			input:    "/videos/clip.mp4",
			settings: func(s *Settings) { s.SuffixEnabled = false },
			want:     "/videos/clip.mp4",
		},
		{
			name:     "blank suffix behaves as disabled",
			input:    "/videos/clip.mkv",
			settings: func(s *Settings) { s.Suffix = "   " },
			want:     "/videos/clip.mkv",
		},
		{
			name:     "suffix is trimmed",
			input:    "/videos/clip.mkv",
			settings: func(s *Settings) { s.Suffix = " _hevc " },
			want:     "/videos/clip_hevc.mkv",
		},
		{
			name:  "explicit directory",
			input: "/videos/show/ep1.mov",
			settings: func(s *Settings) {
				s.OutputDirMode = OutputExplicitDir
				s.OutputDir = explicit
			},
			want: filepath.Join(explicit, "ep1_x265.mov"),
		},
		{
			name:  "only the last extension is preserved",
			input: "/videos/archive.tar.mp4",
			want:  "/videos/archive.tar_x265.mp4",
		},
		{
			name:  "dotfile without extension",
			input: "/videos/.clip",
			want:  "/videos/.clip_x265",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := DefaultSettings()
			if tt.settings != nil {
				tt.settings(&settings)
			}
			got := BuildOutputPath(filepath.FromSlash(tt.input), settings)
			if got != filepath.FromSlash(tt.want) {
				t.Fatalf("BuildOutputPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestBuildOutputPathWithoutSuffixKeepsNameInChosenDirectory(t *testing.T) {
	outDir := t.TempDir()
	inputs := []string{"/a/b/movie.mkv", "/x/episode 01.m4v", "/y/UPPER.MP4", "/z/noext"}
	for _, mode := range []OutputDirMode{OutputSameAsInput, OutputExplicitDir} {
		settings := DefaultSettings()
		settings.SuffixEnabled = false
		settings.OutputDirMode = mode
		settings.OutputDir = outDir
		for _, input := range inputs {
			input = filepath.FromSlash(input)
			got := BuildOutputPath(input, settings)
			if filepath.Base(got) != filepath.Base(input) {
				t.Fatalf("mode %s: base %q, want %q", mode, filepath.Base(got), filepath.Base(input))
			}
			if filepath.Ext(got) != filepath.Ext(input) {
				t.Fatalf("mode %s: ext %q, want %q", mode, filepath.Ext(got), filepath.Ext(input))
			}
			wantDir := filepath.Dir(input)
			if mode == OutputExplicitDir {
				wantDir = outDir
			}
			if filepath.Dir(got) != wantDir {
				t.Fatalf("mode %s: dir %q, want %q", mode, filepath.Dir(got), wantDir)
			}
		}
	}
}

func TestOverwriteRisk(t *testing.T) {
	settings := DefaultSettings()
	settings.SuffixEnabled = false
	input := filepath.FromSlash("/videos/clip.mp4")
	if !OverwriteRisk(input, BuildOutputPath(input, settings)) {
		t.Fatal("expected overwrite risk without suffix in same directory")
	}
	settings.SuffixEnabled = true
	if OverwriteRisk(input, BuildOutputPath(input, settings)) {
		t.Fatal("suffix should remove the overwrite risk")
	}
}

func TestBuildArguments(t *testing.T) {
	settings := DefaultSettings()
	settings.Preset = PresetMedium
	settings.CRF = 23
	got := BuildArguments("in.mp4", "out.mp4", settings)
	want := []string{"-y", "-i", "in.mp4", "-c:v", "libx265", "-preset", "medium", "-crf", "23", "-c:a", "copy", "out.mp4"}
	if !slices.Equal(got, want) {
		t.Fatalf("BuildArguments = %v, want %v", got, want)
	}
}

func TestBuildArgumentsCarriesPresetAndCRF(t *testing.T) {
	for _, preset := range Presets() {
		for crf := MinCRF; crf <= MaxCRF; crf++ {
			settings := DefaultSettings()
			settings.Preset = preset
			settings.CRF = crf
			args := BuildArguments("in.mkv", "out.mkv", settings)
			if got := valueAfter(t, args, "-crf"); got != strconv.Itoa(crf) {
				t.Fatalf("-crf value %q, want %d", got, crf)
			}
			if got := Preset(valueAfter(t, args, "-preset")); !got.Valid() || got != preset {
				t.Fatalf("-preset value %q, want %q", got, preset)
			}
		}
	}
}

func valueAfter(t *testing.T, args []string, flag string) string {
	t.Helper()
	idx := slices.Index(args, flag)
	if idx < 0 || idx+1 >= len(args) {
		t.Fatalf("flag %s missing from %v", flag, args)
	}
	return args[idx+1]
}

func TestCommandLineQuotesUnsafeArguments(t *testing.T) {
	got := CommandLine("/usr/bin/ffmpeg", []string{"-i", "my clip's.mp4", "-crf", "20", ""})
	want := `/usr/bin/ffmpeg -i 'my clip'"'"'s.mp4' -crf 20 ''`
	if got != want {
		t.Fatalf("CommandLine = %s, want %s", got, want)
	}
}

func TestParsePreset(t *testing.T) {
	got, err := ParsePreset("  VerySlow ")
	if err != nil || got != PresetVeryslow {
		t.Fatalf("ParsePreset = %q, %v", got, err)
	}
	got, err = ParsePreset("")
	if err != nil || got != DefaultPreset {
		t.Fatalf("empty preset = %q, %v", got, err)
	}
	_, err = ParsePreset("slowr")
	if err == nil || !strings.Contains(err.Error(), `did you mean "slow`) {
		t.Fatalf("expected suggestion, got %v", err)
	}
	_, err = ParsePreset("zzzzzz")
	if err == nil || !strings.Contains(err.Error(), "valid:") {
		t.Fatalf("expected preset list, got %v", err)
	}
}

func TestPresetRankIsOrdered(t *testing.T) {
	list := Presets()
	if len(list) != 10 {
		t.Fatalf("expected 10 presets, got %d", len(list))
	}
	for i, p := range list {
		if p.Rank() != i {
			t.Fatalf("%s rank %d, want %d", p, p.Rank(), i)
		}
	}
	if Preset("turbo").Valid() {
		t.Fatal("unknown preset reported valid")
	}
}

func TestSettingsValidate(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{name: "defaults"},
		{name: "crf low bound", mutate: func(s *Settings) { s.CRF = 0 }},
		{name: "crf high bound", mutate: func(s *Settings) { s.CRF = 51 }},
		{name: "crf below range", mutate: func(s *Settings) { s.CRF = -1 }, wantErr: "encoding.crf"},
		{name: "crf above range", mutate: func(s *Settings) { s.CRF = 52 }, wantErr: "encoding.crf"},
		{name: "unknown preset", mutate: func(s *Settings) { s.Preset = "turbo" }, wantErr: "encoding.preset"},
		{name: "bad priority", mutate: func(s *Settings) { s.Priority = priority.Level(42) }, wantErr: "encoding.priority"},
		{name: "explicit dir", mutate: func(s *Settings) { s.OutputDirMode = OutputExplicitDir; s.OutputDir = dir }},
		{name: "explicit dir missing", mutate: func(s *Settings) { s.OutputDirMode = OutputExplicitDir }, wantErr: "required"},
		{name: "explicit dir absent", mutate: func(s *Settings) {
			s.OutputDirMode = OutputExplicitDir
			s.OutputDir = filepath.Join(dir, "nope")
		}, wantErr: "encoding.output_dir"},
		{name: "explicit dir is file", mutate: func(s *Settings) {
			s.OutputDirMode = OutputExplicitDir
			s.OutputDir = file
		}, wantErr: "not a directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			if tt.mutate != nil {
				tt.mutate(&s)
			}
			err := s.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}
