package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

type stageCall struct {
	id     string
	stage  domain.ProcessingStage
	errMsg string
}

// memRepo is an in-memory DocumentRepository that records stage transitions.
type memRepo struct {
	mu            sync.Mutex
	docs          map[string]domain.Document
	stageCalls    []stageCall
	saveFieldsN   int
	createErr     error
	listErr       error
	saveErr       error
	failStatusErr error
	afterList     func()
}

func newMemRepo(docs ...domain.Document) *memRepo {
	r := &memRepo{docs: make(map[string]domain.Document)}
	for _, doc := range docs {
		r.docs[doc.ID] = cloneDoc(doc)
	}
	return r
}

func cloneDoc(doc domain.Document) domain.Document {
	out := doc
	out.Fields = make(map[string]domain.FieldEntry, len(doc.Fields))
	for k, v := range doc.Fields {
		out.Fields[k] = v
	}
	out.FieldErrors = append([]string(nil), doc.FieldErrors...)
	return out
}

func (r *memRepo) Create(_ context.Context, doc *domain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.docs[doc.ID] = cloneDoc(*doc)
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New(id))
	}
	out := cloneDoc(doc)
	return &out, nil
}

func (r *memRepo) ListByBatch(_ context.Context, batchID string) ([]domain.Document, error) {
	r.mu.Lock()
	if r.listErr != nil {
		r.mu.Unlock()
		return nil, r.listErr
	}
	var out []domain.Document
	for _, doc := range r.docs {
		if doc.BatchID == batchID {
			out = append(out, cloneDoc(doc))
		}
	}
	afterList := r.afterList
	r.mu.Unlock()

	if afterList != nil {
		afterList()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *memRepo) UpdateStage(_ context.Context, id string, stage domain.ProcessingStage, errMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stageCalls = append(r.stageCalls, stageCall{id: id, stage: stage, errMsg: errMessage})
	if stage == domain.StageFailed && r.failStatusErr != nil {
		return r.failStatusErr
	}
	doc, ok := r.docs[id]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	doc.Stage = stage
	doc.Error = errMessage
	r.docs[id] = doc
	return nil
}

func (r *memRepo) SaveAnalysis(_ context.Context, doc *domain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.docs[doc.ID] = cloneDoc(*doc)
	return nil
}

func (r *memRepo) SaveFields(_ context.Context, doc *domain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	stored, ok := r.docs[doc.ID]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	updated := cloneDoc(*doc)
	stored.Fields = updated.Fields
	stored.Status = updated.Status
	stored.FieldErrors = updated.FieldErrors
	r.docs[doc.ID] = stored
	r.saveFieldsN++
	return nil
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	saveErr error
	openErr error
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (s *memStorage) Save(_ context.Context, key string, data io.Reader) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = raw
	return nil
}

func (s *memStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

// syncQueue runs the subscribed handler inside Publish, like the inline queue.
// err fails every publish unless failOn picks a single 1-based call.
type syncQueue struct {
	mu        sync.Mutex
	published []string
	handler   func(context.Context, string) error
	err       error
	failOn    int
	calls     int
}

func (q *syncQueue) PublishDocumentIngested(ctx context.Context, documentID string) error {
	q.mu.Lock()
	q.calls++
	if q.err != nil && (q.failOn == 0 || q.failOn == q.calls) {
		q.mu.Unlock()
		return q.err
	}
	q.published = append(q.published, documentID)
	handler := q.handler
	q.mu.Unlock()
	if handler != nil {
		_ = handler(ctx, documentID)
	}
	return nil
}

func (q *syncQueue) SubscribeDocumentIngested(_ context.Context, handler func(context.Context, string) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handler = handler
	return nil
}

type analyzerFake struct {
	mu      sync.Mutex
	content string
	byName  map[string]string
	err     error
	calls   int
}

func (f *analyzerFake) Analyze(_ context.Context, filename string, _ []byte) (domain.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return domain.Analysis{}, f.err
	}
	if content, ok := f.byName[filename]; ok {
		return domain.Analysis{Content: content, PageCount: 1}, nil
	}
	return domain.Analysis{Content: f.content, PageCount: 1}, nil
}

type classifierFake struct {
	docType domain.DocumentType
}

func (f classifierFake) Classify(string) domain.DocumentType { return f.docType }

type extractorFake struct {
	fields map[string]string
}

func (f extractorFake) Extract(domain.DocumentType, string) map[string]string {
	out := make(map[string]string, len(f.fields))
	for k, v := range f.fields {
		out[k] = v
	}
	return out
}

type workbookFake struct {
	sections []domain.ExportSection
	err      error
}

func (f *workbookFake) WriteWorkbook(w io.Writer, sections []domain.ExportSection) error {
	if f.err != nil {
		return f.err
	}
	f.sections = sections
	_, err := io.WriteString(w, "xlsx")
	return err
}

func readyDoc(id, batchID string, position int, docType domain.DocumentType, fields map[string]string) domain.Document {
	doc := domain.Document{
		ID:          id,
		BatchID:     batchID,
		Position:    position,
		Filename:    id + ".pdf",
		Type:        docType,
		Fields:      make(map[string]domain.FieldEntry, len(fields)),
		Status:      domain.StatusNeedsReview,
		FieldErrors: []string{},
		Stage:       domain.StageReady,
	}
	for k, v := range fields {
		doc.Fields[k] = domain.FieldEntry{Key: k, Value: v}
	}
	return doc
}
