package rebuild

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/beevik/etree"

	"github.com/agleyzer/clipshuffle/internal/segment"
	"github.com/agleyzer/clipshuffle/internal/timeline"
)

const testTimeline = `<!DOCTYPE xmeml>
<xmeml version="4" xmlns:ppro="http://ns.adobe.com/premiere/1.0">
  <sequence id="sequence-1">
    <name>Cut</name>
    <duration>900</duration>
    <rate><timebase>25</timebase></rate>
    <media>
      <video>
        <track>
          <clipitem id="clipitem-1">
            <masterclipid>masterclip-1</masterclipid>
            <name>a.mp4</name>
            <duration>300</duration>
            <start>0</start>
            <end>300</end>
            <in>0</in>
            <out>300</out>
            <file id="file-a"><pathurl>file://localhost/a.mp4</pathurl></file>
            <ppro:note>keep me</ppro:note>
            <comments><mastercomment1> </mastercomment1></comments>
          </clipitem>
          <clipitem id="clipitem-2">
            <masterclipid>masterclip-2</masterclipid>
            <name>b.mp4</name>
            <in>0</in>
            <out>300</out>
            <file id="file-b"/>
            <labels><label2>Mango</label2></labels>
          </clipitem>
          <enabled>TRUE</enabled>
          <locked>FALSE</locked>
        </track>
        <track>
          <clipitem id="clipitem-3">
            <name>c.mp4</name>
            <in>0</in>
            <out>300</out>
          </clipitem>
        </track>
      </video>
    </media>
  </sequence>
</xmeml>
`

func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func loadTestProject(t *testing.T) *timeline.Project {
	t.Helper()
	project, err := timeline.Read(strings.NewReader(testTimeline), timeline.DefaultFPS, createTestLogger())
	if err != nil {
		t.Fatalf("failed to load test timeline: %v", err)
	}
	return project
}

func cutAll(t *testing.T, project *timeline.Project) []segment.Segment {
	t.Helper()
	segs, _, err := segment.Cut(project.Clips(), 6, project.Sequence.FPS, createTestLogger())
	if err != nil {
		t.Fatalf("failed to cut: %v", err)
	}
	return segs
}

func intChild(t *testing.T, el *etree.Element, tag string) int {
	t.Helper()
	child := el.SelectElement(tag)
	if child == nil {
		t.Fatalf("clip %s has no <%s>", el.SelectAttrValue("id", "?"), tag)
	}
	n, err := strconv.Atoi(child.Text())
	if err != nil {
		t.Fatalf("clip %s: <%s> is %q", el.SelectAttrValue("id", "?"), tag, child.Text())
	}
	return n
}

func TestBuild_LaysSegmentsEndToEnd(t *testing.T) {
	project := loadTestProject(t)
	segs := cutAll(t, project)
	// Reverse to make sure output order follows the slice, not the source.
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}

	doc, summary, err := Build(project, segs)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if summary.Clips != 6 || summary.Duration != 900 {
		t.Errorf("Expected 6 clips / 900 frames, got %d / %d", summary.Clips, summary.Duration)
	}

	layout, err := timeline.Locate(doc)
	if err != nil {
		t.Fatalf("Expected output to locate, got %v", err)
	}

	clips := layout.Tracks[0].SelectElements("clipitem")
	if len(clips) != len(segs) {
		t.Fatalf("Expected %d clips on track 1, got %d", len(segs), len(clips))
	}
	if n := len(layout.Tracks[1].SelectElements("clipitem")); n != 0 {
		t.Errorf("Expected track 2 emptied, got %d clips", n)
	}

	position := 0
	sum := 0
	for i, el := range clips {
		seg := segs[i]
		if id := el.SelectAttrValue("id", ""); id != seg.ID {
			t.Errorf("clip %d: expected id %s, got %s", i, seg.ID, id)
		}
		if got := intChild(t, el, "start"); got != position {
			t.Errorf("clip %d: expected start %d, got %d", i, position, got)
		}
		if got := intChild(t, el, "end"); got != position+150 {
			t.Errorf("clip %d: expected end %d, got %d", i, position+150, got)
		}
		if got := intChild(t, el, "in"); got != seg.In {
			t.Errorf("clip %d: expected in %d, got %d", i, seg.In, got)
		}
		if got := intChild(t, el, "out"); got != seg.Out {
			t.Errorf("clip %d: expected out %d, got %d", i, seg.Out, got)
		}
		if label := el.FindElement("./labels/label2"); label == nil || label.Text() != seg.Color {
			t.Errorf("clip %d: expected label2 %s", i, seg.Color)
		}
		sum += intChild(t, el, "duration")
		position += 150
	}

	seqDuration := intChild(t, layout.Sequence, "duration")
	if seqDuration != sum {
		t.Errorf("Expected sequence duration %d to equal sum of clip durations %d", seqDuration, sum)
	}
}

func TestBuild_PreservesPayload(t *testing.T) {
	project := loadTestProject(t)
	segs := cutAll(t, project)

	doc, _, err := Build(project, segs[:1])
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	clip := doc.FindElement("//clipitem")
	if got := clip.SelectElement("masterclipid").Text(); got != "clipitem-1-1" {
		t.Errorf("Expected masterclipid clipitem-1-1, got %s", got)
	}
	if clip.FindElement("./file/pathurl") == nil {
		t.Error("Expected file reference kept in payload")
	}
	note := clip.FindElement("./ppro:note")
	if note == nil || note.Text() != "keep me" {
		t.Error("Expected namespaced child kept in payload")
	}
	comment := clip.FindElement("./comments/mastercomment1")
	if comment == nil || comment.Text() != " " {
		t.Error("Expected whitespace-only comment text kept in payload")
	}

	out, err := doc.WriteToString()
	if err != nil {
		t.Fatalf("Expected serialization, got %v", err)
	}
	if !strings.Contains(out, "<mastercomment1> </mastercomment1>") {
		t.Errorf("Expected whitespace-only leaf serialized verbatim, got:\n%s", out)
	}

	if doc.Root().SelectAttrValue("xmlns:ppro", "") != "http://ns.adobe.com/premiere/1.0" {
		t.Error("Expected namespace declaration preserved on root")
	}
}

func TestBuild_ReplacesExistingLabel(t *testing.T) {
	project := loadTestProject(t)
	segs := cutAll(t, project)

	// segs[2] is the first segment of clip 2, which carried label2 Mango.
	doc, _, err := Build(project, segs[2:3])
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	labels := doc.FindElements("//clipitem/labels/label2")
	if len(labels) != 1 {
		t.Fatalf("Expected exactly one label2, got %d", len(labels))
	}
	if labels[0].Text() != "Iris" {
		t.Errorf("Expected clip 2 color Iris, got %s", labels[0].Text())
	}
}

func TestBuild_KeepsTrackAttributesAfterClips(t *testing.T) {
	project := loadTestProject(t)

	doc, _, err := Build(project, cutAll(t, project))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	layout, _ := timeline.Locate(doc)
	children := layout.Tracks[0].ChildElements()
	last := children[len(children)-1]
	if last.Tag != "locked" {
		t.Errorf("Expected <locked> to stay last on the track, got <%s>", last.Tag)
	}
	if children[0].Tag != "clipitem" {
		t.Errorf("Expected clips first on the track, got <%s>", children[0].Tag)
	}
}

func TestBuild_DoesNotTouchProject(t *testing.T) {
	project := loadTestProject(t)

	if _, _, err := Build(project, cutAll(t, project)); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	original := project.Document()
	if n := len(original.FindElements("//clipitem")); n != 3 {
		t.Errorf("Expected parsed document to keep 3 clips, got %d", n)
	}
	if got := original.FindElement("//sequence/duration").Text(); got != "900" {
		t.Errorf("Expected parsed duration untouched, got %s", got)
	}
}

func TestBuild_Empty(t *testing.T) {
	project := loadTestProject(t)

	doc, summary, err := Build(project, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if summary.Duration != 0 {
		t.Errorf("Expected zero duration, got %d", summary.Duration)
	}
	if n := len(doc.FindElements("//clipitem")); n != 0 {
		t.Errorf("Expected no clips, got %d", n)
	}
}

func TestWrite_DeclarationAndRoundTrip(t *testing.T) {
	project := loadTestProject(t)
	segs := cutAll(t, project)

	doc, _, err := Build(project, segs)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "timeline_processed.xml")
	n, err := Write(doc, path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected output file, got %v", err)
	}
	if int64(len(data)) != n {
		t.Errorf("Expected %d bytes reported, file has %d", n, len(data))
	}
	if !strings.HasPrefix(string(data), `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Errorf("Expected UTF-8 declaration first, got %q", string(data[:40]))
	}
	if !strings.Contains(string(data), "<!DOCTYPE xmeml>") {
		t.Error("Expected DOCTYPE preserved")
	}

	reloaded, err := timeline.Load(path, timeline.DefaultFPS, createTestLogger())
	if err != nil {
		t.Fatalf("Expected output to load as a timeline, got %v", err)
	}
	if got := len(reloaded.Clips()); got != len(segs) {
		t.Errorf("Expected %d clips after reload, got %d", len(segs), got)
	}
	if reloaded.Sequence.Duration != 900 {
		t.Errorf("Expected reloaded duration 900, got %d", reloaded.Sequence.Duration)
	}
}

func TestWrite_ReplacesForeignDeclaration(t *testing.T) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="ISO-8859-1"`)
	doc.CreateElement("xmeml")

	setDeclaration(doc)

	pi, ok := doc.Child[0].(*etree.ProcInst)
	if !ok || pi.Inst != declaration {
		t.Errorf("Expected declaration rewritten to UTF-8, got %+v", doc.Child[0])
	}
	count := 0
	for _, tok := range doc.Child {
		if _, ok := tok.(*etree.ProcInst); ok {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Expected a single declaration, got %d", count)
	}
}

func TestWrite_Failure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	doc := etree.NewDocument()
	doc.CreateElement("xmeml")
	if _, err := Write(doc, filepath.Join(blocker, "out.xml")); err == nil {
		t.Fatal("Expected error writing below a regular file, got nil")
	}
}
