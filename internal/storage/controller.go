package storage

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sorso/internal/shared/utils/response"
	"sorso/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Controller struct {
	store     *Store
	signedTTL time.Duration
	validator *validator.Validate
	log       *logger.Logger
}

func NewController(store *Store, signedTTL time.Duration, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.Discard()
	}
	if signedTTL <= 0 {
		signedTTL = time.Hour
	}
	return &Controller{store: store, signedTTL: signedTTL, validator: validator.New(), log: log.WithComponent("storage")}
}

// ServePublic handles GET /storage/public/:bucket/*path
func (ctrl *Controller) ServePublic(c *gin.Context) {
	bucket := c.Param("bucket")
	if !ctrl.store.IsPublic(bucket) {
		response.RespondError(c, http.StatusForbidden, ErrBucketNotPublic.Error(), response.CodeForbidden, nil)
		return
	}
	ctrl.serve(c, bucket, c.Param("path"))
}

// ServeSigned handles GET /storage/signed/:bucket/*path?token=
func (ctrl *Controller) ServeSigned(c *gin.Context) {
	bucket := c.Param("bucket")
	p := c.Param("path")
	if err := ctrl.store.VerifySignature(bucket, p, c.Query("token")); err != nil {
		response.RespondError(c, http.StatusForbidden, ErrInvalidSignature.Error(), response.CodeForbidden, nil)
		return
	}
	ctrl.serve(c, bucket, p)
}

func (ctrl *Controller) serve(c *gin.Context, bucket, p string) {
	f, info, err := ctrl.store.Open(bucket, p)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	defer f.Close()

	c.Header("Cache-Control", "public, max-age=3600")
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}

// List handles GET /staff/storage/:bucket?prefix=&limit=&offset=&sort_by=&order=&recursive=
func (ctrl *Controller) List(c *gin.Context) {
	bucket := c.Param("bucket")
	prefix := c.Query("prefix")

	if c.Query("recursive") == "true" {
		files, err := ctrl.store.ListAllFilesRecursive(bucket, prefix)
		if err != nil {
			respondStoreError(c, err)
			return
		}
		response.RespondOK(c, http.StatusOK, "Files retrieved successfully", files)
		return
	}

	opts := ListOptions{
		Limit:  queryInt(c, "limit", DefaultListLimit),
		Offset: queryInt(c, "offset", 0),
		SortBy: SortColumn(c.DefaultQuery("sort_by", string(SortByName))),
		Desc:   strings.EqualFold(c.Query("order"), "desc"),
	}
	if opts.SortBy != SortByName && opts.SortBy != SortByUpdatedAt {
		response.RespondError(c, http.StatusBadRequest, "sort_by must be name or updated_at", response.CodeValidation, nil)
		return
	}

	objects, err := ctrl.store.List(bucket, prefix, opts)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	response.RespondOK(c, http.StatusOK, "Objects retrieved successfully", objects)
}

// Upload handles POST /staff/storage/:bucket (multipart: file, path, upsert)
func (ctrl *Controller) Upload(c *gin.Context) {
	bucket := c.Param("bucket")

	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "No file provided", response.CodeInvalidRequest, err.Error())
		return
	}
	p := c.PostForm("path")
	if p == "" {
		p = fh.Filename
	}
	upsert := c.DefaultPostForm("upsert", "true") == "true"

	src, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "Error reading file", response.CodeInvalidRequest, err.Error())
		return
	}
	defer src.Close()

	stored, err := ctrl.store.Upload(bucket, p, src, UploadOptions{
		ContentType: fh.Header.Get("Content-Type"),
		Upsert:      upsert,
	})
	if err != nil {
		respondStoreError(c, err)
		return
	}

	ctrl.log.InfoWithContext(c.Request.Context(), "object uploaded", map[string]interface{}{
		"bucket": bucket,
		"path":   stored,
		"size":   fh.Size,
	})

	resp := UploadResponse{Path: stored}
	if ctrl.store.IsPublic(bucket) {
		resp.PublicURL = ctrl.store.PublicURL(bucket, stored)
	}
	response.RespondOK(c, http.StatusCreated, "Object uploaded", resp)
}

// Remove handles DELETE /staff/storage/:bucket
func (ctrl *Controller) Remove(c *gin.Context) {
	var req RemoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "Invalid request body", response.CodeInvalidRequest, err.Error())
		return
	}
	if err := ctrl.validator.Struct(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "Validation failed", response.CodeValidation, err.Error())
		return
	}

	n, err := ctrl.store.Remove(c.Param("bucket"), req.Paths)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	response.RespondOK(c, http.StatusOK, "Objects removed", gin.H{"removed": n})
}

// Sign handles POST /staff/storage/:bucket/sign
func (ctrl *Controller) Sign(c *gin.Context) {
	var req SignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "Invalid request body", response.CodeInvalidRequest, err.Error())
		return
	}
	if err := ctrl.validator.Struct(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "Validation failed", response.CodeValidation, err.Error())
		return
	}

	ttl := ctrl.signedTTL
	if req.ExpiresIn > 0 {
		ttl = time.Duration(req.ExpiresIn) * time.Second
	}
	signed, expiresAt, err := ctrl.store.CreateSignedURL(c.Param("bucket"), req.Path, ttl)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	response.RespondOK(c, http.StatusOK, "Signed URL created", SignResponse{SignedURL: signed, ExpiresAt: expiresAt})
}

func respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidPath), errors.Is(err, ErrInvalidBucket):
		response.RespondError(c, http.StatusBadRequest, err.Error(), response.CodeValidation, nil)
	case errors.Is(err, ErrObjectNotFound):
		response.RespondError(c, http.StatusNotFound, err.Error(), response.CodeNotFound, nil)
	case errors.Is(err, ErrObjectExists):
		response.RespondError(c, http.StatusConflict, err.Error(), response.CodeConflict, nil)
	case errors.Is(err, ErrTooLarge):
		response.RespondError(c, http.StatusRequestEntityTooLarge, err.Error(), response.CodeValidation, nil)
	default:
		response.RespondError(c, http.StatusInternalServerError, "Storage operation failed", response.CodeInternal, nil)
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil && v >= 0 {
		return v
	}
	return fallback
}
