package audio

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// fakeFFmpeg records invocations and writes content to the last argument.
type fakeFFmpeg struct {
	calls  [][]string
	output []byte
	err    error
}

func (f *fakeFFmpeg) run(ctx context.Context, name string, args ...string) error {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.err != nil {
		return f.err
	}
	if f.output != nil {
		return os.WriteFile(args[len(args)-1], f.output, 0644)
	}
	return nil
}

func writeRaw(t *testing.T, dir string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, "Artist - Song-vorbis.raw")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranscoder_Arguments(t *testing.T) {
	tests := []struct {
		name string
		cfg  TranscodeConfig
		want []string
	}{
		{"mp3 cbr normal", TranscodeConfig{Format: FormatMP3, Quality: QualityNormal}, []string{"-c:a", "libmp3lame", "-b:a", "160k", "-f", "mp3"}},
		{"mp3 cbr high", TranscodeConfig{Format: FormatMP3, Quality: QualityHigh}, []string{"-c:a", "libmp3lame", "-b:a", "320k", "-f", "mp3"}},
		{"mp3 vbr normal", TranscodeConfig{Format: FormatMP3, Quality: QualityNormal, VBR: true}, []string{"-c:a", "libmp3lame", "-q:a", "4", "-f", "mp3"}},
		{"mp3 vbr high", TranscodeConfig{Format: FormatMP3, Quality: QualityHigh, VBR: true}, []string{"-c:a", "libmp3lame", "-q:a", "0", "-f", "mp3"}},
		{"ogg copy", TranscodeConfig{Format: FormatOGG, Quality: QualityHigh}, []string{"-c:a", "copy", "-f", "ogg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			raw := writeRaw(t, dir, []byte("raw"))
			final := filepath.Join(dir, "Artist - Song."+tt.cfg.Format.Extension())
			ff := &fakeFFmpeg{output: []byte("encoded")}

			tc := NewTranscoder(&tt.cfg).WithCommandRunner(ff.run)
			if err := tc.Transcode(context.Background(), raw, final); err != nil {
				t.Fatalf("Transcode() error = %v", err)
			}

			if len(ff.calls) != 1 {
				t.Fatalf("ffmpeg called %d times", len(ff.calls))
			}
			args := ff.calls[0]
			if args[0] != "ffmpeg" {
				t.Errorf("binary = %q", args[0])
			}
			codec := args[len(args)-1-len(tt.want) : len(args)-1]
			if !reflect.DeepEqual(codec, tt.want) {
				t.Errorf("codec args = %v, want %v", codec, tt.want)
			}
			if args[len(args)-1] != final {
				t.Errorf("output arg = %q, want %q", args[len(args)-1], final)
			}
			if _, err := os.Stat(raw); !os.IsNotExist(err) {
				t.Error("temporary stream should be removed after transcoding")
			}
		})
	}
}

func TestTranscoder_RawPassthrough(t *testing.T) {
	payload := []byte("OggS\x00\x02 exact stream bytes")

	for _, keep := range []bool{false, true} {
		dir := t.TempDir()
		raw := writeRaw(t, dir, payload)
		final := filepath.Join(dir, "Artist - Song.ogg")
		ff := &fakeFFmpeg{}

		tc := NewTranscoder(&TranscodeConfig{Mode: ModeRaw, Format: FormatMP3, KeepRaw: keep}).WithCommandRunner(ff.run)
		if err := tc.Transcode(context.Background(), raw, final); err != nil {
			t.Fatalf("keep=%v: Transcode() error = %v", keep, err)
		}

		got, err := os.ReadFile(final)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("keep=%v: final file differs from stream", keep)
		}
		if len(ff.calls) != 0 {
			t.Errorf("keep=%v: raw mode ran ffmpeg", keep)
		}
		_, statErr := os.Stat(raw)
		if keep && statErr != nil {
			t.Errorf("keep=true: raw file removed")
		}
		if !keep && !os.IsNotExist(statErr) {
			t.Errorf("keep=false: raw file still present")
		}
	}
}

func TestTranscoder_Failure(t *testing.T) {
	tests := []struct {
		name string
		ff   *fakeFFmpeg
	}{
		{"ffmpeg error", &fakeFFmpeg{err: errors.New("exit status 1")}},
		{"no output", &fakeFFmpeg{}},
		{"empty output", &fakeFFmpeg{output: []byte{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			raw := writeRaw(t, dir, []byte("raw"))
			final := filepath.Join(dir, "Artist - Song.mp3")

			err := NewTranscoder(nil).WithCommandRunner(tt.ff.run).Transcode(context.Background(), raw, final)
			if !errors.Is(err, ErrEncoding) {
				t.Fatalf("Transcode() error = %v, want ErrEncoding", err)
			}
			if _, err := os.Stat(final); !os.IsNotExist(err) {
				t.Error("partial output left behind")
			}
		})
	}
}

func TestTranscodeConfig_Extension(t *testing.T) {
	tests := []struct {
		cfg  TranscodeConfig
		want string
	}{
		{TranscodeConfig{Format: FormatMP3}, "mp3"},
		{TranscodeConfig{Format: FormatOGG}, "ogg"},
		{TranscodeConfig{Mode: ModeRaw, Format: FormatMP3}, "ogg"},
	}
	for _, tt := range tests {
		if got := tt.cfg.Extension(); got != tt.want {
			t.Errorf("%+v Extension() = %q, want %q", tt.cfg, got, tt.want)
		}
	}
}

func TestParseFormatAndQuality(t *testing.T) {
	if f, err := ParseFormat("MP3"); err != nil || f != FormatMP3 {
		t.Errorf("ParseFormat(MP3) = %v, %v", f, err)
	}
	if _, err := ParseFormat("flac"); err == nil {
		t.Error("ParseFormat(flac) should fail")
	}
	if q, err := ParseQuality("high"); err != nil || q.SourceKbps() != 320 {
		t.Errorf("ParseQuality(high) = %v, %v", q, err)
	}
	if q, _ := ParseQuality("normal"); q.SourceKbps() != 160 {
		t.Errorf("normal SourceKbps = %d", q.SourceKbps())
	}
}
