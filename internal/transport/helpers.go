package transport

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"

	"github.com/UnendingLoop/ListingImages/internal/model"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"
)

var errNoFiles = errors.New("at least one file in 'images' is required")

// imageFields - поддерживаем и images, и images[] (так шлет браузерный FormData)
var imageFields = []string{"images", "images[]"}

func errorCodeDefiner(err error) int {
	switch {
	case errors.Is(err, model.ErrCommon500):
		return 500
	case errors.Is(err, model.ErrListingNotFound):
		return 404
	case errors.Is(err, model.ErrUploadFailed):
		return 502
	case errors.Is(err, model.ErrIncorrectQuery),
		errors.Is(err, model.ErrIncorrectID),
		errors.Is(err, model.ErrInvalidListing),
		errors.Is(err, model.ErrNoImages),
		errors.Is(err, model.ErrTooManyImages),
		errors.Is(err, model.ErrInvalidConfig),
		errors.Is(err, model.ErrDecode):
		return 400
	default:
		return 500
	}
}

func readImages(ctx *ginext.Context) ([]model.SourceImage, error) {
	form, err := ctx.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}

	var out []model.SourceImage
	for _, field := range imageFields {
		for _, fh := range form.File[field] {
			img, err := readFile(fh)
			if err != nil {
				return nil, err
			}
			out = append(out, img)
		}
	}

	if len(out) == 0 {
		return nil, errNoFiles
	}
	return out, nil
}

func readFile(fh *multipart.FileHeader) (model.SourceImage, error) {
	f, err := fh.Open()
	if err != nil {
		return model.SourceImage{}, fmt.Errorf("failed to open %q: %w", fh.Filename, err)
	}
	defer closeFileFlow(f)

	data, err := io.ReadAll(f)
	if err != nil {
		return model.SourceImage{}, fmt.Errorf("failed to read %q: %w", fh.Filename, err)
	}

	return model.SourceImage{Name: fh.Filename, Data: data, Size: fh.Size}, nil
}

func formValues(ctx *ginext.Context, field string) []string {
	if vals := ctx.PostFormArray(field); len(vals) > 0 {
		return vals
	}
	return ctx.PostFormArray(field + "[]")
}

// parseOverride - необязательные параметры сжатия из формы; nil если ничего не задано
func parseOverride(ctx *ginext.Context) (*model.CompressionOverride, error) {
	var o model.CompressionOverride
	set := false

	for _, p := range []struct {
		field string
		apply func(string) error
	}{
		{"max_width", func(v string) error {
			n, err := strconv.Atoi(v)
			o.MaxWidth = &n
			return err
		}},
		{"max_height", func(v string) error {
			n, err := strconv.Atoi(v)
			o.MaxHeight = &n
			return err
		}},
		{"quality", func(v string) error {
			q, err := strconv.ParseFloat(v, 64)
			o.Quality = &q
			return err
		}},
		{"max_file_size", func(v string) error {
			n, err := strconv.ParseInt(v, 10, 64)
			o.MaxFileSize = &n
			return err
		}},
	} {
		v := ctx.PostForm(p.field)
		if v == "" {
			continue
		}
		if err := p.apply(v); err != nil {
			return nil, fmt.Errorf("incorrect value %q for %s", v, p.field)
		}
		set = true
	}

	if !set {
		return nil, nil
	}
	return &o, nil
}

func closeFileFlow(res io.ReadCloser) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Handler failed to close fileflow")
	}
}
