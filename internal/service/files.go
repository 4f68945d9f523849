package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/nikishkaa/docx-bot/internal/metrics"
	"github.com/nikishkaa/docx-bot/internal/model"
	"github.com/nikishkaa/docx-bot/internal/storage"
	"github.com/nikishkaa/docx-bot/internal/taxonomy"
)

var (
	// ErrNotFound aliases the store's not-found signal so callers need only this package.
	ErrNotFound      = taxonomy.ErrNotFound
	ErrAlreadyExists = errors.New("file already exists")
	ErrQueryRequired = errors.New("search query is required")
)

// FileStore is the taxonomy store as seen by the service.
type FileStore interface {
	Taxonomy() *taxonomy.Taxonomy
	Exists(name, category, subcategory string) (bool, error)
	Save(name string, data []byte, category, subcategory string) (string, error)
	Get(name, category, subcategory string) ([]byte, error)
	Locate(name, category, subcategory string) (model.StoredFile, error)
	List(category, subcategory string) ([]model.StoredFile, error)
	Search(query string) ([]model.StoredFile, error)
}

// DownloadLedger is the download counter as seen by the service.
type DownloadLedger interface {
	Record(ctx context.Context, file, user string) (int, error)
	QueryTotals(file string) model.FileStats
	QueryForUser(user string) model.UserStats
	Top(n int) []model.FileStats
}

// UploadRequest carries a file received from a user.
type UploadRequest struct {
	Name        string
	Data        []byte
	Category    string
	Subcategory string
	UserID      int64
}

// FileService defines the file use cases shared by the bot, the ops API and the CLI.
type FileService interface {
	// Categories returns the taxonomy in declared order.
	Categories() []taxonomy.Category

	// Exists reports whether an upload of name into the scope would collide.
	Exists(ctx context.Context, name, category, subcategory string) (bool, error)

	// Upload saves a new file. A name already present in the resolved scope
	// fails with ErrAlreadyExists and nothing is written.
	Upload(ctx context.Context, req UploadRequest) (model.StoredFile, error)

	// Fetch returns a file's record and content. Scoping follows taxonomy.Store.Locate.
	Fetch(ctx context.Context, name, category, subcategory string) (model.StoredFile, []byte, error)

	// RecordDownload counts a confirmed delivery and returns the file's new total.
	RecordDownload(ctx context.Context, name string, userID int64) (int, error)

	List(ctx context.Context, category, subcategory string) ([]model.StoredFile, error)
	Search(ctx context.Context, query string) ([]model.StoredFile, error)
	FileStats(ctx context.Context, name string) model.FileStats
	UserStats(ctx context.Context, userID string) model.UserStats
	TopFiles(ctx context.Context, n int) []model.FileStats
}

type fileService struct {
	store   FileStore
	ledger  DownloadLedger
	mirror  storage.Storage
	metrics *metrics.Bot
	log     *slog.Logger

	// Serializes the Exists check and Save so two uploads of one name cannot both pass.
	mu sync.Mutex
}

// NewFileService constructs a FileService. mirror and m may be nil.
func NewFileService(store FileStore, ledger DownloadLedger, mirror storage.Storage, m *metrics.Bot, log *slog.Logger) FileService {
	return &fileService{store: store, ledger: ledger, mirror: mirror, metrics: m, log: log}
}

var _ FileService = (*fileService)(nil)

func (s *fileService) Categories() []taxonomy.Category {
	return s.store.Taxonomy().Categories
}

func (s *fileService) Exists(_ context.Context, name, category, subcategory string) (bool, error) {
	return s.store.Exists(name, category, subcategory)
}

func (s *fileService) Upload(ctx context.Context, req UploadRequest) (model.StoredFile, error) {
	s.mu.Lock()
	exists, err := s.store.Exists(req.Name, req.Category, req.Subcategory)
	if err != nil {
		s.mu.Unlock()
		return model.StoredFile{}, err
	}
	if exists {
		s.mu.Unlock()
		return model.StoredFile{}, fmt.Errorf("%w: %s", ErrAlreadyExists, req.Name)
	}
	if _, err := s.store.Save(req.Name, req.Data, req.Category, req.Subcategory); err != nil {
		s.mu.Unlock()
		return model.StoredFile{}, fmt.Errorf("save file: %w", err)
	}
	s.mu.Unlock()

	rec, err := s.store.Locate(req.Name, req.Category, req.Subcategory)
	if err != nil {
		return model.StoredFile{}, fmt.Errorf("locate saved file: %w", err)
	}
	s.metrics.Upload(rec.Category)
	s.mirrorUpload(ctx, rec, req)
	return rec, nil
}

// mirrorUpload copies the file to object storage. Failures are logged only.
func (s *fileService) mirrorUpload(ctx context.Context, rec model.StoredFile, req UploadRequest) {
	if s.mirror == nil {
		return
	}
	key := storage.ObjectKey(rec.Category, rec.Subcategory, rec.Name)
	_, err := s.mirror.Put(ctx, key, bytes.NewReader(req.Data), storage.PutObjectOptions{
		Size:        int64(len(req.Data)),
		ContentType: http.DetectContentType(req.Data),
		Metadata: map[string]string{
			"uploaded-by": strconv.FormatInt(req.UserID, 10),
		},
	})
	if err != nil {
		s.log.WarnContext(ctx, "upload mirror failed", "key", key, "error", err)
	}
}

func (s *fileService) Fetch(_ context.Context, name, category, subcategory string) (model.StoredFile, []byte, error) {
	rec, err := s.store.Locate(name, category, subcategory)
	if err != nil {
		return model.StoredFile{}, nil, err
	}
	data, err := s.store.Get(rec.Name, rec.Category, rec.Subcategory)
	if err != nil {
		return model.StoredFile{}, nil, err
	}
	return rec, data, nil
}

func (s *fileService) RecordDownload(ctx context.Context, name string, userID int64) (int, error) {
	total, err := s.ledger.Record(ctx, name, strconv.FormatInt(userID, 10))
	if err != nil {
		return 0, err
	}
	s.metrics.Download()
	return total, nil
}

func (s *fileService) List(_ context.Context, category, subcategory string) ([]model.StoredFile, error) {
	return s.store.List(category, subcategory)
}

func (s *fileService) Search(_ context.Context, query string) ([]model.StoredFile, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrQueryRequired
	}
	return s.store.Search(query)
}

func (s *fileService) FileStats(_ context.Context, name string) model.FileStats {
	return s.ledger.QueryTotals(name)
}

func (s *fileService) UserStats(_ context.Context, userID string) model.UserStats {
	return s.ledger.QueryForUser(userID)
}

func (s *fileService) TopFiles(_ context.Context, n int) []model.FileStats {
	return s.ledger.Top(n)
}
