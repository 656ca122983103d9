package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/UnendingLoop/ListingImages/internal/model"
)

const minListingYear = 1900

func validateQueryParams(req *model.ListRequest) error {
	// Обрабатываем пустые значения, присваиваем дефолты если надо
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 30
	}

	// Валидируем тип сортировки, неизвестный - сортировка "новое-выше"
	req.Sort = strings.ToLower(strings.TrimSpace(req.Sort))
	if _, ok := model.SortColumns[req.Sort]; !ok {
		req.Sort = model.SortNewest
	}

	req.Search = strings.TrimSpace(req.Search)

	if req.MinPrice != nil && req.MaxPrice != nil && *req.MinPrice > *req.MaxPrice {
		return fmt.Errorf("%w: min_price is greater than max_price", model.ErrIncorrectQuery)
	}
	if req.MinYear != nil && req.MaxYear != nil && *req.MinYear > *req.MaxYear {
		return fmt.Errorf("%w: min_year is greater than max_year", model.ErrIncorrectQuery)
	}
	return nil
}

func validateNormalizeListing(l *model.Listing, now time.Time) error {
	l.Title = strings.TrimSpace(l.Title)
	l.Description = strings.TrimSpace(l.Description)
	l.Location = strings.TrimSpace(l.Location)

	switch {
	case l.Title == "":
		return fmt.Errorf("%w: title is required", model.ErrInvalidListing)
	case l.Price < 0:
		return fmt.Errorf("%w: price must not be negative", model.ErrInvalidListing)
	case l.Year < minListingYear || l.Year > now.Year()+1:
		return fmt.Errorf("%w: year must be between %d and %d", model.ErrInvalidListing, minListingYear, now.Year()+1)
	case l.KmDriven < 0 || l.OwnerCount < 0 || l.SeatingCapacity < 0:
		return fmt.Errorf("%w: counters must not be negative", model.ErrInvalidListing)
	}

	// пустые фичи храним как [], а не null
	features := make(model.StringSlice, 0, len(l.Features))
	for _, f := range l.Features {
		if f = strings.TrimSpace(f); f != "" {
			features = append(features, f)
		}
	}
	l.Features = features

	return nil
}
