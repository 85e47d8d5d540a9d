package document

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kmrl/documind/internal/core/domain"
)

type ocrFake struct {
	calls  int
	method domain.OCRMethod
	err    error
}

func (f *ocrFake) RecognizeImage(_ context.Context, _ []byte, method domain.OCRMethod) (domain.OCRResult, error) {
	f.calls++
	f.method = method
	if f.err != nil {
		return domain.OCRResult{}, f.err
	}
	return domain.OCRResult{Text: "recognized", Confidence: 0.9, Method: string(method)}, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = color.Gray{Y: 200}.Y
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func docxBytes(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("zip Create() error = %v", err)
	}
	if _, err := w.Write([]byte(body)); err != nil {
		t.Fatalf("zip Write() error = %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close() error = %v", err)
	}
	return buf.Bytes()
}

type pdfOCRFake struct {
	calls int
	pages int
}

func (f *pdfOCRFake) RecognizePDF(_ context.Context, _ []byte, pageCount int, method domain.OCRMethod) (domain.OCRResult, error) {
	f.calls++
	f.pages = pageCount
	return domain.OCRResult{Text: "scanned page", Confidence: 0.8, Method: string(method)}, nil
}

// pdfBytes builds a PDF with one page per entry; an empty entry yields a page with no text.
func pdfBytes(t *testing.T, pages ...string) []byte {
	t.Helper()
	// 1 catalog, 2 page tree, 3 font, then a page and content stream pair per page.
	objects := make([]string, 3, 3+2*len(pages))
	kids := make([]string, 0, len(pages))
	for i, text := range pages {
		pageID, contentID := 4+2*i, 5+2*i
		kids = append(kids, fmt.Sprintf("%d 0 R", pageID))
		content := ""
		if text != "" {
			content = fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		}
		objects = append(objects,
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> "+
				fmt.Sprintf("/Contents %d 0 R >>", contentID),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}
	objects[0] = "<< /Type /Catalog /Pages 2 0 R >>"
	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages))
	objects[2] = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtractImageRejectsTinyImages(t *testing.T) {
	ocr := &ocrFake{}
	e := NewExtractor(ocr, nil, Options{MinImageDimension: 50})
	_, err := e.Extract(context.Background(), domain.Upload{Filename: "a.png", Data: pngBytes(t, 40, 200)}, domain.FileKindImage, domain.OCRMethodDocument)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if ocr.calls != 0 {
		t.Fatalf("ocr must not run for rejected images")
	}
}

func TestExtractImageUndecodableIsUnprocessable(t *testing.T) {
	ocr := &ocrFake{}
	e := NewExtractor(ocr, nil, Options{MinImageDimension: 50})
	_, err := e.Extract(context.Background(), domain.Upload{Filename: "scan.png", Data: []byte("not an image")}, domain.FileKindImage, domain.OCRMethodDocument)
	if !domain.IsKind(err, domain.ErrUnprocessable) {
		t.Fatalf("expected ErrUnprocessable, got %v", err)
	}
	if ocr.calls != 0 {
		t.Fatalf("ocr must not run for undecodable images")
	}
}

func TestExtractImageRunsOCR(t *testing.T) {
	ocr := &ocrFake{}
	e := NewExtractor(ocr, nil, Options{MinImageDimension: 50})
	res, err := e.Extract(context.Background(), domain.Upload{Filename: "a.png", Data: pngBytes(t, 64, 64)}, domain.FileKindImage, domain.OCRMethodText)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Text != "recognized" || ocr.method != domain.OCRMethodText || res.PageCount != 1 {
		t.Fatalf("unexpected result %+v (method %s)", res, ocr.method)
	}
}

func TestExtractDocxParagraphs(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>HR Policy</w:t></w:r></w:p>
<w:p><w:r><w:t>Leave</w:t></w:r><w:r><w:tab/><w:t xml:space="preserve"> rules</w:t></w:r></w:p>
</w:body></w:document>`
	e := NewExtractor(nil, nil, Options{})
	res, err := e.Extract(context.Background(), domain.Upload{Filename: "p.docx", Data: docxBytes(t, body)}, domain.FileKindWord, domain.OCRMethodDocument)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Text != "HR Policy\nLeave\t rules" || res.Confidence != 1.0 || res.Method != "docx" {
		t.Fatalf("unexpected result %q %+v", res.Text, res)
	}
}

func TestExtractDocxWithoutBodyIsUnprocessable(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_ = zw.Close()
	e := NewExtractor(nil, nil, Options{})
	_, err := e.Extract(context.Background(), domain.Upload{Filename: "p.docx", Data: buf.Bytes()}, domain.FileKindWord, domain.OCRMethodDocument)
	if !domain.IsKind(err, domain.ErrUnprocessable) {
		t.Fatalf("expected ErrUnprocessable, got %v", err)
	}
}

func TestExtractSpreadsheetRows(t *testing.T) {
	f := excelize.NewFile()
	if err := f.SetCellValue("Sheet1", "A1", "Invoice"); err != nil {
		t.Fatalf("SetCellValue() error = %v", err)
	}
	if err := f.SetCellValue("Sheet1", "B1", 1200); err != nil {
		t.Fatalf("SetCellValue() error = %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() error = %v", err)
	}

	e := NewExtractor(nil, nil, Options{})
	res, err := e.Extract(context.Background(), domain.Upload{Filename: "i.xlsx", Data: buf.Bytes()}, domain.FileKindSpreadsheet, domain.OCRMethodDocument)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Text != "Sheet1\nInvoice\t1200" {
		t.Fatalf("unexpected text %q", res.Text)
	}
}

func TestExtractPDFRejectsGarbage(t *testing.T) {
	e := NewExtractor(nil, nil, Options{MaxPDFPages: 50})
	_, err := e.Extract(context.Background(), domain.Upload{Filename: "x.pdf", Data: []byte("not a pdf")}, domain.FileKindPDF, domain.OCRMethodDocument)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestExtractPDFTextLayer(t *testing.T) {
	pdfOCR := &pdfOCRFake{}
	e := NewExtractor(nil, pdfOCR, Options{MaxPDFPages: 50})
	upload := domain.Upload{Filename: "circular.pdf", Data: pdfBytes(t, "Metro safety circular", "Second page")}

	res, err := e.Extract(context.Background(), upload, domain.FileKindPDF, domain.OCRMethodDocument)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !strings.Contains(res.Text, "Metro safety circular") {
		t.Fatalf("expected text layer content, got %q", res.Text)
	}
	if res.Method != "pdf-text" || res.Confidence != 1.0 {
		t.Fatalf("unexpected method/confidence: %q %v", res.Method, res.Confidence)
	}
	if res.PageCount != 2 {
		t.Fatalf("expected 2 pages, got %d", res.PageCount)
	}
	if pdfOCR.calls != 0 {
		t.Fatalf("pdf ocr must not run when a text layer exists, calls = %d", pdfOCR.calls)
	}
}

func TestExtractPDFWithoutTextLayerFallsBackToOCR(t *testing.T) {
	pdfOCR := &pdfOCRFake{}
	e := NewExtractor(nil, pdfOCR, Options{MaxPDFPages: 50})
	upload := domain.Upload{Filename: "scan.pdf", Data: pdfBytes(t, "", "")}

	res, err := e.Extract(context.Background(), upload, domain.FileKindPDF, domain.OCRMethodText)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if pdfOCR.calls != 1 || pdfOCR.pages != 2 {
		t.Fatalf("expected one pdf ocr call over 2 pages, got calls=%d pages=%d", pdfOCR.calls, pdfOCR.pages)
	}
	if res.Text != "scanned page" || res.Method != string(domain.OCRMethodText) {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.PageCount != 2 {
		t.Fatalf("expected 2 pages, got %d", res.PageCount)
	}
}

func TestExtractPDFWithoutTextLayerOrEngineIsUnprocessable(t *testing.T) {
	e := NewExtractor(nil, nil, Options{MaxPDFPages: 50})
	_, err := e.Extract(context.Background(), domain.Upload{Filename: "scan.pdf", Data: pdfBytes(t, "")}, domain.FileKindPDF, domain.OCRMethodDocument)
	if !domain.IsKind(err, domain.ErrUnprocessable) {
		t.Fatalf("expected ErrUnprocessable, got %v", err)
	}
}

func TestExtractPDFRejectsTooManyPages(t *testing.T) {
	pdfOCR := &pdfOCRFake{}
	e := NewExtractor(nil, pdfOCR, Options{MaxPDFPages: 2})
	_, err := e.Extract(context.Background(), domain.Upload{Filename: "big.pdf", Data: pdfBytes(t, "a", "b", "c")}, domain.FileKindPDF, domain.OCRMethodDocument)
	if !domain.IsKind(err, domain.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if pdfOCR.calls != 0 {
		t.Fatalf("pdf ocr must not run past the page limit, calls = %d", pdfOCR.calls)
	}
}

func TestExtractUnknownKind(t *testing.T) {
	e := NewExtractor(nil, nil, Options{})
	_, err := e.Extract(context.Background(), domain.Upload{}, domain.FileKind("audio"), domain.OCRMethodDocument)
	if !domain.IsKind(err, domain.ErrUnsupportedMedia) {
		t.Fatalf("expected ErrUnsupportedMedia, got %v", err)
	}
}
