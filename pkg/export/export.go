package export

import "fmt"

// Document is a titled table ready for rendering.
type Document struct {
	Title    string
	Subtitle string
	Headers  []string
	Rows     [][]string
}

// Renderer turns a Document into file bytes.
type Renderer interface {
	Render(doc Document) ([]byte, error)
	ContentType() string
	Extension() string
}

// Format names a supported export format.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ForFormat returns the renderer for f.
func ForFormat(f Format) (Renderer, error) {
	switch f {
	case FormatCSV:
		return NewCSVExporter(), nil
	case FormatPDF:
		return NewPDFExporter(), nil
	}
	return nil, fmt.Errorf("unsupported export format %q", f)
}

func (d Document) validate() error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("document requires at least one header")
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Headers) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(d.Headers))
		}
	}
	return nil
}
