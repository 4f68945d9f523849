package handler

import (
	"database/sql"
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nikishkaa/docx-bot/docs"
	"github.com/nikishkaa/docx-bot/internal/database"
	"github.com/nikishkaa/docx-bot/internal/model"
	"github.com/nikishkaa/docx-bot/internal/service"
	"github.com/nikishkaa/docx-bot/internal/storage"
)

// FileListResult is the body of the file listing endpoints.
type FileListResult struct {
	Items []model.StoredFile `json:"items"`
	Total int                `json:"total"`
}

// Deps are the collaborators the ops API reads from.
type Deps struct {
	// StorageRoot is checked by /health.
	StorageRoot string
	// DB is pinged by /health when the postgres ledger is in use. May be nil.
	DB *sql.DB
	// Mirror is checked by /health when the upload mirror is enabled. May be nil.
	Mirror storage.Storage
	Files  service.FileService
	// Gatherer backs /metrics. Defaults to the global registry.
	Gatherer prometheus.Gatherer
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	app.Get("/health", HealthCheck(d.StorageRoot, d.DB, d.Mirror))
	app.Get("/healthz", LivenessProbe())

	app.Get("/files", ListFiles(d.Files))
	app.Get("/files/search", SearchFiles(d.Files))
	app.Get("/stats/top", TopFiles(d.Files))
	app.Get("/stats/files/:name", FileStats(d.Files))
	app.Get("/stats/users/:id", UserStats(d.Files))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	app.Get("/swagger/*", Swagger())
}

// HealthCheck godoc
// @Summary Readiness check
// @Description Checks the storage root and, when configured, the database and the upload mirror.
// @Tags ops
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} errorPayload
// @Router /health [get]
func HealthCheck(root string, db *sql.DB, mirror storage.Storage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if root != "" {
			fi, err := os.Stat(root)
			if err != nil || !fi.IsDir() {
				return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "storage unavailable")
			}
		}
		dbStatus := "disabled"
		if db != nil {
			if err := database.Ping(c.UserContext(), db); err != nil {
				return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
			}
			dbStatus = "ok"
		}
		mirrorStatus := "disabled"
		if mirror != nil {
			if err := mirror.Ready(c.UserContext()); err != nil {
				return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
			}
			mirrorStatus = "ok"
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy", "database": dbStatus, "mirror": mirrorStatus})
	}
}

// LivenessProbe godoc
// @Summary Liveness probe
// @Tags ops
// @Success 200
// @Router /healthz [get]
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// ListFiles godoc
// @Summary List stored files
// @Description Without a category every category and subcategory is listed.
// @Tags files
// @Produce json
// @Param category query string false "Category"
// @Param subcategory query string false "Subcategory of category"
// @Success 200 {object} FileListResult
// @Failure 400 {object} errorPayload
// @Router /files [get]
func ListFiles(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		category := c.Query("category")
		subcategory := c.Query("subcategory")
		if category == "" && subcategory != "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_SCOPE", "subcategory requires a category")
		}
		if category != "" && !knownScope(svc, category, subcategory) {
			return writeError(c, fiber.StatusBadRequest, "UNKNOWN_CATEGORY", "unknown category or subcategory")
		}

		files, err := svc.List(c.UserContext(), category, subcategory)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(newFileList(files))
	}
}

func knownScope(svc service.FileService, category, subcategory string) bool {
	for _, cat := range svc.Categories() {
		if cat.Name != category {
			continue
		}
		if subcategory == "" {
			return true
		}
		for _, s := range cat.Subcategories {
			if s == subcategory {
				return true
			}
		}
		return false
	}
	return false
}

// SearchFiles godoc
// @Summary Search files by name
// @Description Case-insensitive substring match; glob patterns (*, ?, [..], {..}) are honoured.
// @Tags files
// @Produce json
// @Param q query string true "Query"
// @Success 200 {object} FileListResult
// @Failure 400 {object} errorPayload
// @Router /files/search [get]
func SearchFiles(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		files, err := svc.Search(c.UserContext(), c.Query("q"))
		if errors.Is(err, service.ErrQueryRequired) {
			return writeError(c, fiber.StatusBadRequest, "QUERY_REQUIRED", "query parameter q is required")
		}
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(newFileList(files))
	}
}

func newFileList(files []model.StoredFile) FileListResult {
	if files == nil {
		files = []model.StoredFile{}
	}
	return FileListResult{Items: files, Total: len(files)}
}

// FileStats godoc
// @Summary Download totals of a file
// @Tags stats
// @Produce json
// @Param name path string true "File name"
// @Success 200 {object} model.FileStats
// @Failure 400 {object} errorPayload
// @Router /stats/files/{name} [get]
func FileStats(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, err := url.PathUnescape(c.Params("name"))
		if err != nil || strings.TrimSpace(name) == "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_NAME", "invalid file name")
		}
		return c.JSON(svc.FileStats(c.UserContext(), name))
	}
}

// UserStats godoc
// @Summary Per-file downloads of a user
// @Tags stats
// @Produce json
// @Param id path int true "Telegram user id"
// @Success 200 {object} model.UserStats
// @Failure 400 {object} errorPayload
// @Router /stats/users/{id} [get]
func UserStats(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid user id")
		}
		return c.JSON(svc.UserStats(c.UserContext(), id))
	}
}

// TopFiles godoc
// @Summary Most downloaded files
// @Tags stats
// @Produce json
// @Param limit query int false "Maximum entries" default(10)
// @Success 200 {array} model.FileStats
// @Failure 400 {object} errorPayload
// @Router /stats/top [get]
func TopFiles(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil || limit < 1 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		top := svc.TopFiles(c.UserContext(), limit)
		if top == nil {
			top = []model.FileStats{}
		}
		return c.JSON(top)
	}
}

// Swagger serves the UI with host and scheme taken from the request.
func Swagger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	}
}
