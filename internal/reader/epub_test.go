package reader

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testContainerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const testNCX = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="np1" playOrder="1">
      <navLabel><text>Chapter One</text></navLabel>
      <content src="chap1.xhtml"/>
    </navPoint>
    <navPoint id="np2" playOrder="2">
      <navLabel><text>Chapter Two</text></navLabel>
      <content src="chap2.xhtml#start"/>
    </navPoint>
  </navMap>
</ncx>`

func chapterXHTML(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<body><p>` + body + `</p></body>
</html>`
}

func contentOPF(withNCX bool) string {
	ncxItem := ""
	if withNCX {
		ncxItem = `<item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>`
	}
	return `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/" version="2.0" unique-identifier="uid">
  <metadata>
    <dc:title>Test Book</dc:title>
    <dc:language>en</dc:language>
  </metadata>
  <manifest>
    <item id="chap1" href="chap1.xhtml" media-type="application/xhtml+xml"/>
    <item id="chap2" href="chap2.xhtml" media-type="application/xhtml+xml"/>
    ` + ncxItem + `
  </manifest>
  <spine>
    <itemref idref="chap1"/>
    <itemref idref="chap2"/>
  </spine>
</package>`
}

// writeTestEPUB assembles a minimal two-chapter EPUB on disk.
func writeTestEPUB(t *testing.T, withNCX bool) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.epub")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	// mimetype must be first and uncompressed.
	mw, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		t.Fatalf("CreateHeader: %v", err)
	}
	mw.Write([]byte("application/epub+zip"))

	files := map[string]string{
		"META-INF/container.xml": testContainerXML,
		"OEBPS/content.opf":      contentOPF(withNCX),
		"OEBPS/chap1.xhtml":      chapterXHTML("It was a pleasure to burn."),
		"OEBPS/chap2.xhtml":      chapterXHTML("The hearth and the salamander."),
	}
	if withNCX {
		files["OEBPS/toc.ncx"] = testNCX
	}
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
		w.Write([]byte(content))
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}

func TestEPUBExtract(t *testing.T) {
	f := &EPUBFormat{}
	doc, err := f.Extract(writeTestEPUB(t, true))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if doc.Title != "Test Book" {
		t.Errorf("title = %q, want Test Book", doc.Title)
	}
	if len(doc.Chapters) != 2 {
		t.Fatalf("got %d chapters, want 2", len(doc.Chapters))
	}

	wantTitles := []string{"Chapter One", "Chapter Two"}
	for i, ch := range doc.Chapters {
		if ch.Title != wantTitles[i] {
			t.Errorf("chapter %d title = %q, want %q", i, ch.Title, wantTitles[i])
		}
	}
	if !strings.Contains(doc.Chapters[0].Text, "pleasure to burn") {
		t.Errorf("chapter 1 text = %q", doc.Chapters[0].Text)
	}
	if !strings.Contains(doc.Chapters[1].Text, "salamander") {
		t.Errorf("chapter 2 text = %q", doc.Chapters[1].Text)
	}
}

func TestEPUBExtractWithoutNCX(t *testing.T) {
	f := &EPUBFormat{}
	doc, err := f.Extract(writeTestEPUB(t, false))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if len(doc.Chapters) != 2 {
		t.Fatalf("got %d chapters, want 2", len(doc.Chapters))
	}
	// No TOC: chapters fall back to positional titles.
	if doc.Chapters[0].Title != "Section 1" || doc.Chapters[1].Title != "Section 2" {
		t.Errorf("chapter titles = %q, %q", doc.Chapters[0].Title, doc.Chapters[1].Title)
	}
}

func TestEPUBExtractBadFile(t *testing.T) {
	f := &EPUBFormat{}
	if _, err := f.Extract(writeFile(t, "bad.epub", "not a zip archive")); err == nil {
		t.Error("expected error for a non-zip file")
	}
}

func TestExtractTextFromHTML(t *testing.T) {
	htmlContent := `
	<html>
		<head><title>Test</title></head>
		<body>
			<h1>Chapter 1</h1>
			<p>This is the <b>first</b> paragraph.</p>
			<p>
				This is the second paragraph
				with a newline.
			</p>
			<div>Some <span>nested</span> text.</div>
		</body>
	</html>
	`

	want := []string{"Test", "Chapter", "1", "This", "is", "the", "first", "paragraph.", "This", "is", "the", "second", "paragraph", "with", "a", "newline.", "Some", "nested", "text."}

	words := strings.Fields(extractTextFromHTML(htmlContent))
	if len(words) != len(want) {
		t.Fatalf("got %d words, want %d: %v", len(words), len(want), words)
	}
	for i, w := range words {
		if w != want[i] {
			t.Errorf("word %d: got %q, want %q", i, w, want[i])
		}
	}
}
