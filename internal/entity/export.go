package entity

// ExportFormat selects the file format for a transcript export.
type ExportFormat string

const (
	FormatMarkdown ExportFormat = "md"
	FormatPDF      ExportFormat = "pdf"
)

func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(s) {
	case FormatMarkdown, FormatPDF:
		return ExportFormat(s), nil
	default:
		return "", ErrUnsupportedFormat
	}
}
