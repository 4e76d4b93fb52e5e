package timeline

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// buildTimeline returns a minimal xmeml document. rate is inserted verbatim
// inside the sequence; each clip is a raw clipitem body.
func buildTimeline(rate string, tracks ...[]string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString("<xmeml version=\"4\"><sequence><name>Test</name><duration>0</duration>")
	b.WriteString(rate)
	b.WriteString("<media><video>")
	for _, clips := range tracks {
		b.WriteString("<track>")
		for _, c := range clips {
			b.WriteString("<clipitem>" + c + "</clipitem>")
		}
		b.WriteString("</track>")
	}
	b.WriteString("</video></media></sequence></xmeml>")
	return b.String()
}

func clipBody(name, fileID string, in, out int) string {
	file := ""
	if fileID != "" {
		file = fmt.Sprintf(`<file id="%s"/>`, fileID)
	}
	return fmt.Sprintf("<name>%s</name><in>%d</in><out>%d</out>%s", name, in, out, file)
}

func TestLoad_PremiereExport(t *testing.T) {
	project, err := Load(filepath.Join("testdata", "premiere_export.xml"), DefaultFPS, createTestLogger())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	seq := project.Sequence
	if seq.Name != "Rough Cut" {
		t.Errorf("Expected sequence name 'Rough Cut', got %q", seq.Name)
	}
	if seq.FPS != 25 || seq.FPSDefaulted {
		t.Errorf("Expected fps 25 (not defaulted), got %d (defaulted=%v)", seq.FPS, seq.FPSDefaulted)
	}
	if seq.Duration != 750 {
		t.Errorf("Expected duration 750, got %d", seq.Duration)
	}
	if len(seq.Tracks) != 2 {
		t.Fatalf("Expected 2 video tracks, got %d", len(seq.Tracks))
	}

	clips := project.Clips()
	if len(clips) != 4 {
		t.Fatalf("Expected 4 clips across tracks, got %d", len(clips))
	}

	for i, c := range clips {
		if c.Index != i {
			t.Errorf("clip %d: expected document-order index %d, got %d", i, i, c.Index)
		}
	}

	if clips[1].In != 100 || clips[1].Out != 400 || clips[1].Frames() != 300 {
		t.Errorf("Expected clip 2 range 100-400, got %d-%d", clips[1].In, clips[1].Out)
	}
	if clips[2].Track != 1 {
		t.Errorf("Expected clip 3 on track 1, got %d", clips[2].Track)
	}

	// The reference-only file element resolves its pathurl through the id.
	if clips[2].FileID != "file-1" {
		t.Errorf("Expected clip 3 file id file-1, got %q", clips[2].FileID)
	}
	if clips[2].MediaURL != "file://localhost/Volumes/media/beach.mp4" {
		t.Errorf("Expected clip 3 media URL resolved from file-1, got %q", clips[2].MediaURL)
	}

	if clips[3].Range != RangeMissing {
		t.Errorf("Expected clip 4 without out point to be RangeMissing, got %v", clips[3].Range)
	}
	if clips[3].FileID != "" {
		t.Errorf("Expected clip 4 without file reference, got %q", clips[3].FileID)
	}
}

func TestRead_PayloadIsDetachedCopy(t *testing.T) {
	doc := buildTimeline("<rate><timebase>25</timebase></rate>",
		[]string{clipBody("a", "file-a", 0, 300) + "<filter><effect><name>Basic 3D</name></effect></filter>"})

	project, err := Read(strings.NewReader(doc), DefaultFPS, createTestLogger())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	clip := project.Clips()[0]
	payload := clip.Payload()
	if payload.FindElement(".//effect/name") == nil {
		t.Fatal("Expected payload to keep unknown children")
	}

	payload.SelectElement("in").SetText("999")
	if again := clip.Payload(); again.SelectElement("in").Text() != "0" {
		t.Errorf("Expected payload copies to be independent, got in=%s", again.SelectElement("in").Text())
	}

	layout, err := Locate(project.Document())
	if err != nil {
		t.Fatalf("Expected copied document to locate, got %v", err)
	}
	layout.Tracks[0].RemoveChild(layout.Tracks[0].SelectElement("clipitem"))
	if _, err := Locate(project.Document()); err != nil {
		t.Fatalf("Expected original document untouched, got %v", err)
	}
	if len(project.Document().FindElements("//clipitem")) != 1 {
		t.Error("Expected mutation of a document copy not to reach the parsed tree")
	}
}

func TestRead_StructuralErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{
			name:    "not xml",
			doc:     "this is not a timeline",
			wantErr: ErrMalformed,
		},
		{
			name:    "unclosed element",
			doc:     "<xmeml><sequence>",
			wantErr: ErrMalformed,
		},
		{
			name:    "empty document",
			doc:     "",
			wantErr: ErrMalformed,
		},
		{
			name:    "no sequence",
			doc:     "<xmeml><project/></xmeml>",
			wantErr: ErrNoSequence,
		},
		{
			name:    "no video",
			doc:     "<xmeml><sequence><media><audio/></media></sequence></xmeml>",
			wantErr: ErrNoVideo,
		},
		{
			name:    "no tracks",
			doc:     "<xmeml><sequence><media><video><format/></video></media></sequence></xmeml>",
			wantErr: ErrNoTracks,
		},
		{
			name:    "empty tracks",
			doc:     buildTimeline("", []string{}, []string{}),
			wantErr: ErrNoClips,
		},
		{
			name:    "bad timebase",
			doc:     buildTimeline("<rate><timebase>twenty</timebase></rate>", []string{clipBody("a", "", 0, 10)}),
			wantErr: ErrBadTimebase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.doc), DefaultFPS, createTestLogger())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRead_ClipsAcrossTracksCount(t *testing.T) {
	// An empty first track is fine as long as another track has clips.
	doc := buildTimeline("", []string{}, []string{clipBody("b", "", 0, 10)})

	project, err := Read(strings.NewReader(doc), DefaultFPS, createTestLogger())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := len(project.Clips()); got != 1 {
		t.Errorf("Expected 1 clip, got %d", got)
	}
}

func TestRead_InvalidRange(t *testing.T) {
	doc := buildTimeline("", []string{"<name>x</name><in>abc</in><out>10</out>"})

	project, err := Read(strings.NewReader(doc), DefaultFPS, createTestLogger())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := project.Clips()[0].Range; got != RangeInvalid {
		t.Errorf("Expected RangeInvalid, got %v", got)
	}
}

func TestRead_Latin1Charset(t *testing.T) {
	// "Café" encoded as ISO-8859-1.
	doc := `<?xml version="1.0" encoding="ISO-8859-1"?>` +
		"<xmeml><sequence><name>Caf\xe9</name><media><video><track><clipitem>" +
		"<in>0</in><out>10</out></clipitem></track></video></media></sequence></xmeml>"

	project, err := Read(strings.NewReader(doc), DefaultFPS, createTestLogger())
	if err != nil {
		t.Fatalf("Expected latin-1 document to load, got %v", err)
	}
	if project.Sequence.Name != "Café" {
		t.Errorf("Expected decoded name Café, got %q", project.Sequence.Name)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.xml"), DefaultFPS, createTestLogger())
	if err == nil {
		t.Fatal("Expected error for missing file, got nil")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist in chain, got %v", err)
	}
}
