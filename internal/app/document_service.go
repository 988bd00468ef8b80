package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"pdfchat/internal/model"
	"pdfchat/internal/pkg/pdfextract"
	"pdfchat/internal/pkg/textsplit"
	"pdfchat/internal/vectorstore"
)

var (
	ErrNotPDF             = errors.New("only PDF files are supported")
	ErrFileTooLarge       = errors.New("file exceeds the maximum allowed size")
	ErrEmptyDocument      = errors.New("no extractable text in document")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrEmbeddingUnderflow = errors.New("embedding count does not match chunk count")
)

// embeddingBatchSize bounds the number of texts per embeddings API call.
const embeddingBatchSize = 10

// Embedder produces vectors for chunk and query texts.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// DocumentStore is the subset of the document repository used here.
type DocumentStore interface {
	Create(doc *model.Document) error
	ListByUserID(userID uint) ([]model.Document, error)
	GetByFileIDAndUserID(fileID string, userID uint) (*model.Document, error)
	DeleteByFileIDAndUserID(fileID string, userID uint) error
	DeleteByUserID(userID uint) error
}

// ChunkStore is the subset of the chunk repository used here.
type ChunkStore interface {
	CreateBatch(chunks []model.Chunk) error
	DeleteByDocumentID(documentID uint) error
	DeleteByDocumentIDs(documentIDs []uint) error
}

// DocumentService owns the ingestion pipeline: validate the upload,
// extract text, window it into chunks, embed and index the chunks, and
// persist the catalog rows.
type DocumentService struct {
	docs         DocumentStore
	chunks       ChunkStore
	embedder     Embedder
	index        vectorstore.Index
	uploadDir    string
	maxFileSize  int64
	chunkSize    int
	chunkOverlap int

	extractText func(data []byte) (string, error)
}

type IngestInput struct {
	UserID   uint
	FileName string
	Data     []byte
}

type IngestResult struct {
	FileID        string `json:"file_id"`
	FileName      string `json:"file_name"`
	NumChunks     int    `json:"num_chunks"`
	NumCharacters int    `json:"num_characters"`
}

func NewDocumentService(
	docs DocumentStore,
	chunks ChunkStore,
	embedder Embedder,
	index vectorstore.Index,
	uploadDir string,
	maxFileSize int64,
	chunkSize, chunkOverlap int,
) *DocumentService {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	return &DocumentService{
		docs:         docs,
		chunks:       chunks,
		embedder:     embedder,
		index:        index,
		uploadDir:    uploadDir,
		maxFileSize:  maxFileSize,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		extractText:  pdfextract.ExtractBytes,
	}
}

func (s *DocumentService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	if input.UserID == 0 || len(input.Data) == 0 {
		return nil, ErrInvalidInput
	}

	fileName := filepath.Base(strings.TrimSpace(input.FileName))
	if fileName == "" || fileName == "." {
		return nil, ErrInvalidInput
	}
	if !strings.EqualFold(filepath.Ext(fileName), ".pdf") {
		return nil, ErrNotPDF
	}
	if s.maxFileSize > 0 && int64(len(input.Data)) > s.maxFileSize {
		return nil, ErrFileTooLarge
	}
	if !pdfextract.Validate(input.Data) {
		return nil, ErrNotPDF
	}

	text, err := s.extractText(input.Data)
	if err != nil {
		return nil, fmt.Errorf("extract text failed: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyDocument
	}

	fileID := uuid.NewString()
	if err := s.saveFile(fileID, fileName, input.Data); err != nil {
		return nil, err
	}

	pieces := dropBlank(textsplit.Split(text, s.chunkSize, s.chunkOverlap))
	records := make([]vectorstore.ChunkRecord, len(pieces))
	for i, piece := range pieces {
		records[i] = vectorstore.ChunkRecord{
			PointID:    uuid.NewString(),
			FileID:     fileID,
			FileName:   fileName,
			ChunkIndex: i,
			UserID:     input.UserID,
			Text:       piece,
		}
	}

	vectors, err := s.embedAll(ctx, pieces)
	if err != nil {
		return nil, err
	}

	if err := s.index.Upsert(ctx, records, vectors); err != nil {
		return nil, fmt.Errorf("index chunks failed: %w", err)
	}

	doc := &model.Document{
		UserID:        input.UserID,
		FileID:        fileID,
		FileName:      fileName,
		NumChunks:     len(pieces),
		NumCharacters: len([]rune(text)),
		CreatedAt:     time.Now(),
	}
	if err := s.docs.Create(doc); err != nil {
		return nil, err
	}

	rows := make([]model.Chunk, len(pieces))
	for i, piece := range pieces {
		rows[i] = model.Chunk{
			DocumentID: doc.ID,
			ChunkIndex: i,
			Content:    piece,
			PointID:    records[i].PointID,
			CreatedAt:  time.Now(),
		}
	}
	if err := s.chunks.CreateBatch(rows); err != nil {
		return nil, err
	}

	return &IngestResult{
		FileID:        fileID,
		FileName:      fileName,
		NumChunks:     doc.NumChunks,
		NumCharacters: doc.NumCharacters,
	}, nil
}

func (s *DocumentService) List(userID uint) ([]model.Document, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.docs.ListByUserID(userID)
}

func (s *DocumentService) Delete(ctx context.Context, userID uint, fileID string) error {
	if userID == 0 || strings.TrimSpace(fileID) == "" {
		return ErrInvalidInput
	}

	doc, err := s.docs.GetByFileIDAndUserID(fileID, userID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}

	if err := s.index.DeleteByFileID(ctx, fileID); err != nil {
		return fmt.Errorf("delete indexed chunks failed: %w", err)
	}
	if err := s.chunks.DeleteByDocumentID(doc.ID); err != nil {
		return err
	}
	if err := s.docs.DeleteByFileIDAndUserID(fileID, userID); err != nil {
		return err
	}

	// The stored file is best-effort cleanup.
	_ = os.Remove(s.filePath(doc.FileID, doc.FileName))
	return nil
}

// ClearAll removes every document the user owns, including indexed
// vectors, catalog rows and stored files.
func (s *DocumentService) ClearAll(ctx context.Context, userID uint) error {
	if userID == 0 {
		return ErrInvalidInput
	}

	docs, err := s.docs.ListByUserID(userID)
	if err != nil {
		return err
	}

	ids := make([]uint, 0, len(docs))
	for _, doc := range docs {
		if err := s.index.DeleteByFileID(ctx, doc.FileID); err != nil {
			return fmt.Errorf("delete indexed chunks failed: %w", err)
		}
		_ = os.Remove(s.filePath(doc.FileID, doc.FileName))
		ids = append(ids, doc.ID)
	}

	if err := s.chunks.DeleteByDocumentIDs(ids); err != nil {
		return err
	}
	return s.docs.DeleteByUserID(userID)
}

// dropBlank removes whitespace-only windows. A blank window carries
// nothing to retrieve and the embeddings API rejects empty input.
func dropBlank(pieces []string) []string {
	kept := pieces[:0]
	for _, piece := range pieces {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		kept = append(kept, piece)
	}
	return kept
}

func (s *DocumentService) embedAll(ctx context.Context, pieces []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(pieces))
	for start := 0; start < len(pieces); start += embeddingBatchSize {
		end := start + embeddingBatchSize
		if end > len(pieces) {
			end = len(pieces)
		}
		batch, err := s.embedder.EmbedBatch(ctx, pieces[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed chunks failed: %w", err)
		}
		vectors = append(vectors, batch...)
	}
	if len(vectors) != len(pieces) {
		return nil, ErrEmbeddingUnderflow
	}
	return vectors, nil
}

func (s *DocumentService) saveFile(fileID, fileName string, data []byte) error {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return fmt.Errorf("create upload dir failed: %w", err)
	}
	if err := os.WriteFile(s.filePath(fileID, fileName), data, 0o644); err != nil {
		return fmt.Errorf("save uploaded file failed: %w", err)
	}
	return nil
}

func (s *DocumentService) filePath(fileID, fileName string) string {
	return filepath.Join(s.uploadDir, fileID+"_"+fileName)
}
