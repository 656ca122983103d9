// Package transport provides methods for processing requests from endpoints
package transport

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/UnendingLoop/ListingImages/internal/model"
	"github.com/wb-go/wbf/ginext"
)

type ListingHandler struct {
	service ListingService
}

type ListingService interface {
	CompressImages(ctx context.Context, files []model.SourceImage, override *model.CompressionOverride) (*model.CompressionReport, error)
	UploadImages(ctx context.Context, files []model.SourceImage) (*model.UploadResult, error)
	UploadConfig() model.UploadConfig
	Create(ctx context.Context, data *model.ListingCreateData) (*model.ListingResult, error)
	Update(ctx context.Context, id string, data *model.ListingUpdateData) (*model.ListingResult, error)
	Get(ctx context.Context, id string) (*model.Listing, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Listing, error)
	Delete(ctx context.Context, id string) error // удаляет запись, картинки чистит воркер
}

func NewListingHandler(svc ListingService) *ListingHandler {
	return &ListingHandler{
		service: svc,
	}
}

func (h ListingHandler) SimplePinger(ctx *ginext.Context) {
	ctx.JSON(200, map[string]string{"message": "pong"})
}

func (h ListingHandler) UploadConfig(ctx *ginext.Context) {
	ctx.JSON(200, h.service.UploadConfig())
}

// CompressImages - только сжатие, без загрузки: отдает статистику по размерам
func (h ListingHandler) CompressImages(ctx *ginext.Context) {
	files, err := readImages(ctx)
	if err != nil {
		ctx.JSON(400, map[string]string{"error": err.Error()})
		return
	}

	override, err := parseOverride(ctx)
	if err != nil {
		ctx.JSON(400, map[string]string{"error": err.Error()})
		return
	}

	res, err := h.service.CompressImages(ctx.Request.Context(), files, override)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h ListingHandler) UploadImages(ctx *ginext.Context) {
	files, err := readImages(ctx)
	if err != nil {
		ctx.JSON(400, map[string]string{"error": err.Error()})
		return
	}

	res, err := h.service.UploadImages(ctx.Request.Context(), files)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(201, res)
}

func (h ListingHandler) Create(ctx *ginext.Context) {
	var data model.ListingCreateData

	if err := json.Unmarshal([]byte(ctx.PostForm("listing")), &data.Listing); err != nil {
		ctx.JSON(400, map[string]string{"error": "failed to parse listing data"})
		return
	}

	// пустой список файлов отбракует сервис
	files, err := readImages(ctx)
	if err != nil && !errors.Is(err, errNoFiles) {
		ctx.JSON(400, map[string]string{"error": err.Error()})
		return
	}
	data.Images = files

	res, err := h.service.Create(ctx.Request.Context(), &data)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(201, res)
}

func (h ListingHandler) Update(ctx *ginext.Context) {
	id := ctx.Param("id")
	var data model.ListingUpdateData

	if err := json.Unmarshal([]byte(ctx.PostForm("listing")), &data.Listing); err != nil {
		ctx.JSON(400, map[string]string{"error": "failed to parse listing data"})
		return
	}
	data.CurrentImages = formValues(ctx, "current_images")

	// новые файлы в редактировании необязательны
	files, err := readImages(ctx)
	if err != nil && !errors.Is(err, errNoFiles) {
		ctx.JSON(400, map[string]string{"error": err.Error()})
		return
	}
	data.Images = files

	res, err := h.service.Update(ctx.Request.Context(), id, &data)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h ListingHandler) GetList(ctx *ginext.Context) {
	var req model.ListRequest

	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(400, map[string]string{"error": "failed to parse query-params"})
		return
	}

	res, err := h.service.GetList(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h ListingHandler) Get(ctx *ginext.Context) {
	id := ctx.Param("id")

	res, err := h.service.Get(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h ListingHandler) Delete(ctx *ginext.Context) {
	id := ctx.Param("id")
	if err := h.service.Delete(ctx.Request.Context(), id); err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.Status(204)
}
