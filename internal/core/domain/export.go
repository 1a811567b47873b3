package domain

// ExportSection is one worksheet of a batch export: all ready documents of a single type.
type ExportSection struct {
	Type    DocumentType
	Title   string
	Columns []string
	Rows    [][]string
}
