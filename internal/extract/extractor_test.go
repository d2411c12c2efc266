package extract

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/aliment-labs/nutriqa/internal/domain"
)

type fakeStrategy struct {
	name  string
	text  string
	err   error
	calls int
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Extract(_ context.Context, _ domain.Document) (string, error) {
	f.calls++
	return f.text, f.err
}

func pdfDoc() domain.Document {
	return domain.Document{Title: "book", Source: "book.pdf", Format: domain.FormatPDF, Data: []byte("%PDF")}
}

func TestExtract_PlainTextPassesThrough(t *testing.T) {
	first := &fakeStrategy{name: "first", text: "should not run"}
	e := New(zap.NewNop(), first)

	doc := domain.Document{Title: "notes", Source: "notes.txt", Format: domain.FormatPlainText, Data: []byte("hello world")}
	text, err := e.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q", text)
	}
	if first.calls != 0 {
		t.Error("strategies must not run for plain text")
	}
}

func TestExtract_FirstStrategyWins(t *testing.T) {
	first := &fakeStrategy{name: "first", text: "layer text"}
	second := &fakeStrategy{name: "second", text: "unused"}
	e := New(zap.NewNop(), first, second)

	text, err := e.Extract(context.Background(), pdfDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "layer text" {
		t.Errorf("text = %q", text)
	}
	if second.calls != 0 {
		t.Error("second strategy should not run when the first succeeds")
	}
}

func TestExtract_FallsThroughOnErrorAndEmpty(t *testing.T) {
	first := &fakeStrategy{name: "first", err: errors.New("broken xref")}
	second := &fakeStrategy{name: "second", text: "   \n  "} // whitespace only
	third := &fakeStrategy{name: "third", text: "recovered"}
	e := New(zap.NewNop(), first, second, third)

	text, err := e.Extract(context.Background(), pdfDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "recovered" {
		t.Errorf("text = %q", text)
	}
	if first.calls != 1 || second.calls != 1 || third.calls != 1 {
		t.Errorf("calls = %d,%d,%d, want 1,1,1", first.calls, second.calls, third.calls)
	}
}

func TestExtract_ExhaustedCascadeFails(t *testing.T) {
	first := &fakeStrategy{name: "first", err: errors.New("broken xref")}
	second := &fakeStrategy{name: "second", err: errors.New("no content")}
	e := New(zap.NewNop(), first, second)

	_, err := e.Extract(context.Background(), pdfDoc())
	if !errors.Is(err, domain.ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestExtract_AllEmptyFails(t *testing.T) {
	e := New(zap.NewNop(), &fakeStrategy{name: "only", text: ""})

	_, err := e.Extract(context.Background(), pdfDoc())
	if !errors.Is(err, domain.ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	e := New(zap.NewNop(), &fakeStrategy{name: "only", text: "x"})

	doc := domain.Document{Title: "img", Source: "img.png", Format: domain.FormatUnsupported}
	_, err := e.Extract(context.Background(), doc)
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"crlf and lf", "line one\r\nline two\nline three", "line one line two line three"},
		{"bare cr", "a\rb", "a b"},
		{"runs collapse", "too   many\t\tspaces", "too many spaces"},
		{"trimmed", "  padded  ", "padded"},
		{"empty", "   \n \r\n ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.in); got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestPageNumFromFilename(t *testing.T) {
	cases := []struct {
		name string
		want int
		ok   bool
	}{
		{"Content_page_3.txt", 3, true},
		{"doc_Content_page_12.txt", 12, true},
		{"page_7.txt", 7, true},
		{"Metadata.txt", 0, false},
		{"Content_page_x.txt", 0, false},
	}
	for _, tc := range cases {
		got, ok := pageNumFromFilename(tc.name)
		if got != tc.want || ok != tc.ok {
			t.Errorf("pageNumFromFilename(%q) = %d,%v, want %d,%v", tc.name, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	in := "Vitamin D\r\nsupports  calcium\nabsorption."
	once := Normalize(in)
	if twice := Normalize(once); twice != once {
		t.Errorf("second pass changed text: %q -> %q", once, twice)
	}
}
