package httpserver

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appartwork "github.com/inkwell-studio/artwork-pipeline/internal/application/artwork"
	domain "github.com/inkwell-studio/artwork-pipeline/internal/domain/artwork"
	"github.com/inkwell-studio/artwork-pipeline/internal/domain/vision"
	"github.com/inkwell-studio/artwork-pipeline/internal/middleware"
)

type Router struct {
	uploads		   *appartwork.UploadService
	analyses	   *appartwork.AnalysisService
	catalog		   *appartwork.CatalogService
	search		   *appartwork.SearchService
	reconciler	   *appartwork.Reconciler
	tasks		   *appartwork.Registry
	maxUploadBytes int64
}

type Deps struct {
	Uploads		   *appartwork.UploadService
	Analyses	   *appartwork.AnalysisService
	Catalog		   *appartwork.CatalogService
	Search		   *appartwork.SearchService
	Reconciler	   *appartwork.Reconciler
	Tasks		   *appartwork.Registry
	MaxUploadBytes int64
	Health		   map[string]middleware.HealthChecker
	AdminKey	   string
}

func NewRouter(d Deps) http.Handler {
	r := &Router{
		uploads:		d.Uploads,
		analyses:		d.Analyses,
		catalog:		d.Catalog,
		search:			d.Search,
		reconciler:		d.Reconciler,
		tasks:			d.Tasks,
		maxUploadBytes: d.MaxUploadBytes,
	}
	if r.maxUploadBytes <= 0 {
		r.maxUploadBytes = 64 << 20
	}

	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:			300,
	}))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)

	mux.Get("/health", middleware.HealthHandler(d.Health))
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	// halaman customer: gating pakai access key per batch, bukan admin key
	mux.Get("/public/batches/{id}", r.wrap(r.handleCustomerBatch))

	mux.Route("/v1", func(rt chi.Router) {
		rt.Use(middleware.AdminAuth(d.AdminKey))
		rt.Use(middleware.RateLimitMiddleware(30, 10))

		rt.Post("/batches", r.wrap(r.handleCreateBatch))
		rt.Get("/batches", r.wrap(r.handleListBatches))
		rt.Get("/batches/{id}", r.wrap(r.handleGetBatch))
		rt.Get("/batches/{id}/items", r.wrap(r.handleListItems))
		rt.Post("/batches/{id}/items", r.wrap(r.handleUpload))
		rt.Post("/batches/{id}/analyze", r.wrap(r.handleAnalyzeBatch))

		rt.Post("/items/{id}/analyze", r.wrap(r.handleAnalyzeItem))
		rt.Patch("/items/{id}", r.wrap(r.handleUpdateItem))
		rt.Put("/items/{id}/analysis", r.wrap(r.handleEditAnalysis))
		rt.Delete("/items/{id}", r.wrap(r.handleDeleteItem))

		rt.Get("/search", r.wrap(r.handleSearch))
		rt.Get("/tasks/{id}", r.wrap(r.handleTaskStatus))
		rt.Post("/reconcile", r.wrap(r.handleReconcile))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			if errors.Is(err, vision.ErrQuotaExceeded) {
				http.Error(w, "vision quota exceeded", http.StatusTooManyRequests)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

// POST /v1/batches
func (r *Router) handleCreateBatch(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Label		  string `json:"label"`
		CustomerName  string `json:"customer_name"`
		CustomerEmail string `json:"customer_email"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return err
	}
	b, err := r.catalog.CreateBatch(req.Context(),
		middleware.SanitizeString(body.Label),
		middleware.SanitizeString(body.CustomerName),
		middleware.SanitizeString(body.CustomerEmail),
	)
	if err != nil {
		return err
	}
	w.WriteHeader(http.StatusCreated)
	return writeJSON(w, b)
}

// GET /v1/batches — reconciler numpang jalan di ListBatches
func (r *Router) handleListBatches(w http.ResponseWriter, req *http.Request) error {
	batches, err := r.catalog.ListBatches(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, batches)
}

// GET /v1/batches/{id}
func (r *Router) handleGetBatch(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateBatchID(id); err != nil {
		return badRequest(w, err)
	}
	b, err := r.catalog.GetBatch(req.Context(), domain.BatchID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, b)
}

// GET /v1/batches/{id}/items
func (r *Router) handleListItems(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateBatchID(id); err != nil {
		return badRequest(w, err)
	}
	items, err := r.catalog.ListItems(req.Context(), domain.BatchID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, items)
}

// POST /v1/batches/{id}/items
// Multipart "files" field, boleh banyak. ?analyze=1 langsung lanjut fan-out
// analysis untuk subset image setelah upload kelar.
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateBatchID(id); err != nil {
		return badRequest(w, err)
	}

	if err := req.ParseMultipartForm(r.maxUploadBytes); err != nil {
		return badRequest(w, fmt.Errorf("parse multipart form: %w", err))
	}
	headers := req.MultipartForm.File["files"]
	if len(headers) == 0 {
		return badRequest(w, fmt.Errorf("no files in request"))
	}

	// baca ke memory sekarang: temp file multipart dibersihkan begitu
	// handler balik, padahal uploadnya jalan di background
	files := make([]appartwork.UploadFile, 0, len(headers))
	for _, fh := range headers {
		if err := middleware.ValidateFileName(fh.Filename); err != nil {
			return badRequest(w, err)
		}
		f, err := fh.Open()
		if err != nil {
			return fmt.Errorf("open upload %q: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("read upload %q: %w", fh.Filename, err)
		}
		files = append(files, appartwork.UploadFile{
			Name:		 fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:		 int64(len(data)),
			Content:	 bytes.NewReader(data),
		})
	}

	task, report, err := r.uploads.Start(req.Context(), domain.BatchID(id), files)
	if err != nil {
		return err
	}

	autoAnalyze := req.URL.Query().Get("analyze") == "1"
	go func() {
		_ = task.Wait(context.Background())
		for i := 0; i < report.Total; i++ {
			middleware.IncrementUploads()
		}
		for i := 0; i < report.Total-report.Uploaded; i++ {
			middleware.IncrementUploadsFailed()
		}
		if autoAnalyze && len(report.Images) > 0 {
			at := r.analyses.Start(context.Background(), report.Images)
			_ = at.Wait(context.Background())
		}
	}()

	w.WriteHeader(http.StatusAccepted)
	return writeJSON(w, map[string]any{
		"task_id": task.ID,
		"total":   report.Total,
	})
}

// GET /public/batches/{id}?key= — customer lihat batch miliknya sendiri
func (r *Router) handleCustomerBatch(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateBatchID(id); err != nil {
		return badRequest(w, err)
	}
	b, err := r.catalog.GetBatch(req.Context(), domain.BatchID(id))
	if err != nil {
		return err
	}
	if !middleware.CheckBatchAccessKey(req.URL.Query().Get("key"), b.AccessKey) {
		http.Error(w, "invalid access key", http.StatusForbidden)
		return nil
	}
	items, err := r.catalog.ListItems(req.Context(), b.ID)
	if err != nil {
		return err
	}
	b.AccessKey = "" // jangan bocorin balik
	return writeJSON(w, map[string]any{
		"batch": b,
		"items": items,
	})
}

// POST /v1/batches/{id}/analyze — "analyze all" untuk item yang belum punya hasil
func (r *Router) handleAnalyzeBatch(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateBatchID(id); err != nil {
		return badRequest(w, err)
	}
	items, err := r.catalog.ListItems(req.Context(), domain.BatchID(id))
	if err != nil {
		return err
	}

	pending := make([]*domain.Item, 0, len(items))
	for _, it := range items {
		if it.IsImage() && !it.Analyzed() {
			pending = append(pending, it)
		}
	}

	task := r.analyses.Start(req.Context(), pending)
	go func() {
		_ = task.Wait(context.Background())
		snap := task.Snapshot()
		for i := 0; i < snap.Total; i++ {
			middleware.IncrementAnalyses()
		}
	}()

	w.WriteHeader(http.StatusAccepted)
	return writeJSON(w, map[string]any{
		"task_id": task.ID,
		"total":   task.Snapshot().Total,
	})
}

// POST /v1/items/{id}/analyze — retry manual satu item, sinkron
func (r *Router) handleAnalyzeItem(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateItemID(id); err != nil {
		return badRequest(w, err)
	}
	it, err := r.catalog.GetItem(req.Context(), domain.ItemID(id))
	if err != nil {
		return err
	}
	if !it.IsImage() {
		return badRequest(w, fmt.Errorf("item %s is not an image", id))
	}

	middleware.IncrementAnalyses()
	res, err := r.analyses.AnalyzeItem(req.Context(), it)
	if err != nil {
		middleware.IncrementAnalysesFailed()
		return err
	}
	if res == nil {
		middleware.IncrementAnalysesFailed()
		return writeJSON(w, map[string]any{"analyzed": false})
	}
	return writeJSON(w, res)
}

// PATCH /v1/items/{id} — moderasi status + komentar
func (r *Router) handleUpdateItem(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateItemID(id); err != nil {
		return badRequest(w, err)
	}
	var body struct {
		Status	string `json:"status"`
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return err
	}
	if err := middleware.ValidateItemStatus(body.Status); err != nil {
		return badRequest(w, err)
	}
	if err := r.catalog.UpdateItemStatus(req.Context(), domain.ItemID(id),
		domain.ItemStatus(body.Status), middleware.SanitizeString(body.Comment)); err != nil {
		return err
	}
	return writeJSON(w, map[string]any{"updated": true})
}

// PUT /v1/items/{id}/analysis — manual edit, overwrite utuh
func (r *Router) handleEditAnalysis(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateItemID(id); err != nil {
		return badRequest(w, err)
	}
	var res domain.AnalysisResult
	if err := json.NewDecoder(req.Body).Decode(&res); err != nil {
		return err
	}
	if err := r.catalog.EditAnalysis(req.Context(), domain.ItemID(id), &res); err != nil {
		return err
	}
	return writeJSON(w, res)
}

// DELETE /v1/items/{id}
func (r *Router) handleDeleteItem(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateItemID(id); err != nil {
		return badRequest(w, err)
	}
	if err := r.catalog.DeleteItem(req.Context(), domain.ItemID(id)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// GET /v1/search?q=
func (r *Router) handleSearch(w http.ResponseWriter, req *http.Request) error {
	term, err := middleware.ValidateSearchTerm(req.URL.Query().Get("q"))
	if err != nil {
		return badRequest(w, err)
	}
	batches, err := r.search.Query(req.Context(), term)
	if err != nil {
		return err
	}
	return writeJSON(w, batches)
}

// GET /v1/tasks/{id} — poll progress task upload/analysis
func (r *Router) handleTaskStatus(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	task, ok := r.tasks.Get(id)
	if !ok {
		http.Error(w, "task not found", http.StatusNotFound)
		return nil
	}
	snap := task.Snapshot()
	out := map[string]any{
		"id":		task.ID,
		"stage":	snap.Stage,
		"done":		snap.Done,
		"total":	snap.Total,
		"finished": task.Finished(),
	}
	if err := task.Err(); err != nil {
		out["error"] = err.Error()
	}
	return writeJSON(w, out)
}

// POST /v1/reconcile — trigger manual untuk ops
func (r *Router) handleReconcile(w http.ResponseWriter, req *http.Request) error {
	corrected, err := r.reconciler.Reconcile(req.Context())
	if err != nil {
		return err
	}
	middleware.RecordReconcile(corrected)
	return writeJSON(w, map[string]any{"corrected": corrected})
}

func badRequest(w http.ResponseWriter, err error) error {
	http.Error(w, err.Error(), http.StatusBadRequest)
	return nil
}
