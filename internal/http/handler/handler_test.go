package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nikishkaa/docx-bot/internal/model"
	"github.com/nikishkaa/docx-bot/internal/service"
	serviceMocks "github.com/nikishkaa/docx-bot/internal/service/mocks"
	storageMocks "github.com/nikishkaa/docx-bot/internal/storage/mocks"
	"github.com/nikishkaa/docx-bot/internal/taxonomy"
)

var testCategories = []taxonomy.Category{
	{Name: "Java"},
	{Name: "DevOps", Subcategories: []string{"Docker", "Kubernetes"}},
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	root := t.TempDir()
	app := fiber.New()
	app.Get("/health", HealthCheck(root, db, nil))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "ok", body["database"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})

	t.Run("without database", func(t *testing.T) {
		app := fiber.New()
		app.Get("/health", HealthCheck(root, nil, nil))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "disabled", body["database"])
		assert.Equal(t, "disabled", body["mirror"])
	})

	t.Run("mirror reachable", func(t *testing.T) {
		mirror := new(storageMocks.MockStorage)
		mirror.On("Ready", mock.Anything).Return(nil).Once()
		app := fiber.New()
		app.Get("/health", HealthCheck(root, nil, mirror))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "ok", body["mirror"])
		mirror.AssertExpectations(t)
	})

	t.Run("mirror unreachable", func(t *testing.T) {
		mirror := new(storageMocks.MockStorage)
		mirror.On("Ready", mock.Anything).Return(errors.New("bucket docx not found")).Once()
		app := fiber.New()
		app.Get("/health", HealthCheck(root, nil, mirror))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		mirror.AssertExpectations(t)
	})

	t.Run("missing storage root", func(t *testing.T) {
		app := fiber.New()
		app.Get("/health", HealthCheck(root+"/missing", nil, nil))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListFiles(t *testing.T) {
	file := model.StoredFile{Name: "notes.txt", Category: "Java", Bytes: 12, Size: "12.00 B"}

	tests := []struct {
		name       string
		url        string
		setupMocks func(svc *serviceMocks.MockFileService)
		wantStatus int
		wantCode   string
		wantTotal  int
	}{
		{
			name: "all files",
			url:  "/files",
			setupMocks: func(svc *serviceMocks.MockFileService) {
				svc.On("List", mock.Anything, "", "").Return([]model.StoredFile{file}, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantTotal:  1,
		},
		{
			name: "category scope",
			url:  "/files?category=DevOps&subcategory=Docker",
			setupMocks: func(svc *serviceMocks.MockFileService) {
				svc.On("List", mock.Anything, "DevOps", "Docker").Return(nil, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantTotal:  0,
		},
		{
			name:       "unknown category",
			url:        "/files?category=Cooking",
			setupMocks: func(svc *serviceMocks.MockFileService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "UNKNOWN_CATEGORY",
		},
		{
			name:       "unknown subcategory",
			url:        "/files?category=Java&subcategory=Spring",
			setupMocks: func(svc *serviceMocks.MockFileService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "UNKNOWN_CATEGORY",
		},
		{
			name:       "subcategory without category",
			url:        "/files?subcategory=Docker",
			setupMocks: func(svc *serviceMocks.MockFileService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_SCOPE",
		},
		{
			name: "service error",
			url:  "/files?category=Java",
			setupMocks: func(svc *serviceMocks.MockFileService) {
				svc.On("List", mock.Anything, "Java", "").Return(nil, errors.New("disk error")).Once()
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(serviceMocks.MockFileService)
			mockSvc.On("Categories").Return(testCategories).Maybe()
			tt.setupMocks(mockSvc)

			app := fiber.New()
			app.Get("/files", ListFiles(mockSvc))

			resp, _ := app.Test(httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantCode != "" {
				var body errorPayload
				json.NewDecoder(resp.Body).Decode(&body)
				assert.Equal(t, tt.wantCode, body.Error.Code)
			} else {
				var result FileListResult
				json.NewDecoder(resp.Body).Decode(&result)
				assert.Equal(t, tt.wantTotal, result.Total)
				assert.NotNil(t, result.Items)
			}
			mockSvc.AssertExpectations(t)
		})
	}
}

func TestSearchFiles(t *testing.T) {
	mockSvc := new(serviceMocks.MockFileService)
	app := fiber.New()
	app.Get("/files/search", SearchFiles(mockSvc))

	t.Run("success", func(t *testing.T) {
		hits := []model.StoredFile{{Name: "a.zip", Category: "DevOps", Subcategory: "Docker"}}
		mockSvc.On("Search", mock.Anything, "*.zip").Return(hits, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/files/search?q=*.zip", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var result FileListResult
		json.NewDecoder(resp.Body).Decode(&result)
		require.Len(t, result.Items, 1)
		assert.Equal(t, "Docker", result.Items[0].Subcategory)
	})

	t.Run("missing query", func(t *testing.T) {
		mockSvc.On("Search", mock.Anything, "").Return(nil, service.ErrQueryRequired).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/files/search", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "QUERY_REQUIRED", body.Error.Code)
	})

	mockSvc.AssertExpectations(t)
}

func TestFileStats(t *testing.T) {
	mockSvc := new(serviceMocks.MockFileService)
	app := fiber.New()
	app.Get("/stats/files/:name", FileStats(mockSvc))

	mockSvc.On("FileStats", mock.Anything, "my notes.txt").
		Return(model.FileStats{Name: "my notes.txt", Total: 3, UniqueUsers: 2}).Once()

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/stats/files/my%20notes.txt", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var result model.FileStats
	json.NewDecoder(resp.Body).Decode(&result)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.UniqueUsers)
	mockSvc.AssertExpectations(t)
}

func TestUserStats(t *testing.T) {
	mockSvc := new(serviceMocks.MockFileService)
	app := fiber.New()
	app.Get("/stats/users/:id", UserStats(mockSvc))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("UserStats", mock.Anything, "42").Return(model.UserStats{
			UserID: "42", Total: 2, Files: 1, PerFile: map[string]int{"a.zip": 2},
		}).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/stats/users/42", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var result model.UserStats
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, 2, result.PerFile["a.zip"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/stats/users/bob", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "INVALID_ID", body.Error.Code)
	})
}

func TestTopFiles(t *testing.T) {
	mockSvc := new(serviceMocks.MockFileService)
	app := fiber.New()
	app.Get("/stats/top", TopFiles(mockSvc))

	t.Run("default limit", func(t *testing.T) {
		mockSvc.On("TopFiles", mock.Anything, 10).Return([]model.FileStats{{Name: "a.zip", Total: 3}}).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/stats/top", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var result []model.FileStats
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Len(t, result, 1)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/stats/top?limit=abc", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "INVALID_LIMIT", body.Error.Code)
	})
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "routing_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	mockSvc := new(serviceMocks.MockFileService)
	RegisterRoutes(app, Deps{StorageRoot: t.TempDir(), Files: mockSvc, Gatherer: reg})

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		// Health endpoint only allows GET
		req := httptest.NewRequest(http.MethodPost, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "METHOD_NOT_ALLOWED", res.Error.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.True(t, strings.Contains(string(body), "routing_test_total 1"))
	})

	t.Run("health", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
