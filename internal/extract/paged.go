package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"github.com/aliment-labs/nutriqa/internal/domain"
)

// Paged extracts content streams page by page with pdfcpu. It recovers
// documents whose text layer is structured oddly enough that a whole-file
// read comes back garbled or empty.
type Paged struct {
	logger *zap.Logger
}

// NewPaged creates the page-by-page strategy.
func NewPaged(logger *zap.Logger) *Paged {
	return &Paged{logger: logger}
}

// Name implements Strategy.
func (s *Paged) Name() string { return "paged" }

// Extract implements Strategy. pdfcpu operates on files, so the document
// round-trips through a temp directory that is removed on return.
func (s *Paged) Extract(ctx context.Context, doc domain.Document) (string, error) {
	workDir, err := os.MkdirTemp("", "nutriqa-extract-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	pdfPath := filepath.Join(workDir, "doc.pdf")
	if err := os.WriteFile(pdfPath, doc.Data, 0o644); err != nil {
		return "", fmt.Errorf("write temp pdf: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadContextFile(pdfPath)
	if err != nil {
		return "", fmt.Errorf("read pdf context: %w", err)
	}
	pageCount := pdfCtx.PageCount

	if err := ctx.Err(); err != nil {
		return "", err
	}

	outDir := filepath.Join(workDir, "pages")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create pages dir: %w", err)
	}
	if err := api.ExtractContentFile(pdfPath, outDir, nil, conf); err != nil {
		return "", fmt.Errorf("extract content: %w", err)
	}

	pageTexts := make(map[int]string, pageCount)
	files, err := os.ReadDir(outDir)
	if err != nil {
		return "", fmt.Errorf("list pages dir: %w", err)
	}
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		pageNum, ok := pageNumFromFilename(file.Name())
		if !ok {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			return "", fmt.Errorf("read page %d: %w", pageNum, err)
		}
		// Content streams carry operator noise between text runs. Collapsing
		// on whitespace keeps the words and drops the rest.
		pageTexts[pageNum] = strings.Join(strings.Fields(string(content)), " ")
	}

	pages := make([]string, 0, pageCount)
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		if text := pageTexts[pageNum]; text != "" {
			pages = append(pages, text)
		}
	}

	s.logger.Debug("paged extraction finished",
		zap.String("source", doc.Source),
		zap.Int("pages", pageCount),
		zap.Int("pagesWithText", len(pages)))

	return strings.Join(pages, "\n"), nil
}

// pageNumFromFilename recognizes the content file names pdfcpu writes,
// with or without a document name prefix.
func pageNumFromFilename(name string) (int, bool) {
	var n int
	if i := strings.Index(name, "Content_page_"); i >= 0 {
		rest := name[i+len("Content_page_"):]
		if _, err := fmt.Sscanf(rest, "%d", &n); err == nil {
			return n, true
		}
		return 0, false
	}
	if _, err := fmt.Sscanf(name, "page_%d", &n); err == nil {
		return n, true
	}
	return 0, false
}
