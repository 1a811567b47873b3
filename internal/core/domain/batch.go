package domain

// BatchFailure is a document whose analysis failed; it is excluded from the batch result.
type BatchFailure struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Error      string `json:"error"`
}

type BatchSummary struct {
	Total       int                  `json:"total"`
	ByType      map[DocumentType]int `json:"by_type"`
	NeedsReview int                  `json:"needs_review"`
	Pending     int                  `json:"pending"`
	Failed      int                  `json:"failed"`
	ExportReady bool                 `json:"export_ready"`
}

type BatchReport struct {
	BatchID   string         `json:"batch_id"`
	Documents []Document     `json:"documents"`
	Failures  []BatchFailure `json:"failures"`
	Summary   BatchSummary   `json:"summary"`
}

// UploadFile is one source file of a batch submission.
type UploadFile struct {
	Filename string
	MimeType string
	Data     []byte
}

// Analysis is the output of the OCR collaborator. Only Content is used by the pipeline.
type Analysis struct {
	Content   string `json:"content"`
	PageCount int    `json:"page_count"`
	ModelID   string `json:"model_id,omitempty"`
}

// BuildBatchReport splits batch documents into results and failures and summarizes them.
func BuildBatchReport(batchID string, docs []Document) BatchReport {
	report := BatchReport{
		BatchID:   batchID,
		Documents: []Document{},
		Failures:  []BatchFailure{},
		Summary: BatchSummary{
			ByType: make(map[DocumentType]int, len(DocumentTypes)),
		},
	}
	for _, t := range DocumentTypes {
		report.Summary.ByType[t] = 0
	}

	for _, doc := range docs {
		switch doc.Stage {
		case StageReady:
			report.Documents = append(report.Documents, doc)
			report.Summary.ByType[doc.Type]++
			if doc.Status != StatusValidated {
				report.Summary.NeedsReview++
			}
		case StageFailed:
			report.Failures = append(report.Failures, BatchFailure{
				DocumentID: doc.ID,
				Filename:   doc.Filename,
				Error:      doc.Error,
			})
		default:
			report.Summary.Pending++
		}
	}

	report.Summary.Total = len(report.Documents)
	report.Summary.Failed = len(report.Failures)
	report.Summary.ExportReady = report.Summary.Total > 0 &&
		report.Summary.Pending == 0 &&
		report.Summary.NeedsReview == 0
	return report
}
