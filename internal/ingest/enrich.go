package ingest

import (
	"context"
	"strconv"
	"strings"

	"redwatch/internal/blob"
	"redwatch/internal/notice/models"
	"redwatch/internal/notice/store"
	"redwatch/internal/source"
)

// storeThumbnail downloads a new record's thumbnail and records its blob key.
// Failures are logged and swallowed: a record without a thumbnail is valid.
func (c *Consumer) storeThumbnail(ctx context.Context, notice source.Notice) {
	href := notice.Links.Thumbnail.Href
	if !strings.HasPrefix(href, "http") {
		return
	}

	data, err := c.source.FetchImage(ctx, href)
	if err != nil {
		c.metrics.EnrichFailures.Inc()
		c.logger.Warn("thumbnail fetch failed", "entity_id", notice.EntityID, "error", err)
		return
	}

	key := blob.ThumbnailKey(notice.EntityID)
	if err := c.blobs.PutJPEG(ctx, key, data); err != nil {
		c.metrics.EnrichFailures.Inc()
		c.logger.Warn("thumbnail upload failed", "entity_id", notice.EntityID, "error", err)
		return
	}
	err = store.WithSavepoint(ctx, func(ctx context.Context) error {
		return c.store.SetThumbnail(ctx, notice.EntityID, key)
	})
	if err != nil {
		c.logger.Warn("thumbnail path save failed", "entity_id", notice.EntityID, "error", err)
	}
}

// enrich fetches the detail document and photo gallery for a new or changed
// record. Every failure is per-record: logged, counted, never propagated, so
// a dead detail endpoint cannot take down the page batch. A record may end up
// with no detail at all, which is a valid state.
func (c *Consumer) enrich(ctx context.Context, entityID, detailHref string) {
	if detailHref == "" {
		return
	}

	detail, raw, err := c.source.Detail(ctx, detailHref)
	if err != nil {
		c.metrics.EnrichFailures.Inc()
		c.logger.Warn("detail fetch failed", "entity_id", entityID, "error", err)
		return
	}

	warrants := make([]models.Warrant, 0, len(detail.Warrants))
	for _, w := range detail.Warrants {
		warrants = append(warrants, models.Warrant{
			IssuingCountry: w.IssuingCountry,
			Charge:         w.Charge,
		})
	}
	err = store.WithSavepoint(ctx, func(ctx context.Context) error {
		return c.store.SaveDetail(ctx, &models.Detail{
			EntityID:     entityID,
			Sex:          models.ParseSex(detail.SexID),
			Height:       detail.Height,
			Weight:       detail.Weight,
			EyeColors:    detail.EyeColorIDs,
			HairColors:   detail.HairIDs,
			PlaceOfBirth: detail.PlaceOfBirth,
			BirthCountry: detail.BirthCountryID,
			Languages:    detail.LanguageIDs,
			Marks:        detail.Marks,
			Warrants:     warrants,
			RawPayload:   raw,
			FetchedAt:    c.now(),
		})
	})
	if err != nil {
		c.metrics.EnrichFailures.Inc()
		c.logger.Warn("detail save failed", "entity_id", entityID, "error", err)
		return
	}
	c.metrics.DetailsFetched.Inc()

	if detail.Links.Images.Href != "" {
		c.storePhotos(ctx, entityID, detail.Links.Images.Href)
	}
}

// storePhotos walks the gallery and uploads every image this record does not
// reference yet. The picture_id check runs before the download, so a repeat
// enrichment with an unchanged gallery moves zero bytes.
func (c *Consumer) storePhotos(ctx context.Context, entityID, imagesHref string) {
	list, err := c.source.ImageList(ctx, imagesHref)
	if err != nil {
		c.metrics.EnrichFailures.Inc()
		c.logger.Warn("image list fetch failed", "entity_id", entityID, "error", err)
		return
	}

	var existing []models.Photo
	err = store.WithSavepoint(ctx, func(ctx context.Context) error {
		var err error
		existing, err = c.store.ListPhotos(ctx, entityID)
		return err
	})
	if err != nil {
		c.logger.Warn("photo listing failed", "entity_id", entityID, "error", err)
		return
	}
	have := make(map[string]bool, len(existing))
	for _, p := range existing {
		have[p.PictureID] = true
	}

	for _, img := range list.Embedded.Images {
		pictureID := strconv.FormatInt(img.PictureID, 10)
		if have[pictureID] || img.Links.Self.Href == "" {
			continue
		}

		data, err := c.source.FetchImage(ctx, img.Links.Self.Href)
		if err != nil {
			c.metrics.EnrichFailures.Inc()
			c.logger.Warn("image fetch failed", "entity_id", entityID, "picture_id", pictureID, "error", err)
			continue
		}

		key := blob.PhotoKey(entityID, pictureID)
		if err := c.blobs.PutJPEG(ctx, key, data); err != nil {
			c.metrics.EnrichFailures.Inc()
			c.logger.Warn("image upload failed", "entity_id", entityID, "picture_id", pictureID, "error", err)
			continue
		}

		var added bool
		err = store.WithSavepoint(ctx, func(ctx context.Context) error {
			var err error
			added, err = c.store.AddPhoto(ctx, models.Photo{
				EntityID:  entityID,
				PictureID: pictureID,
				BlobPath:  key,
			})
			return err
		})
		if err != nil {
			c.logger.Warn("photo reference save failed", "entity_id", entityID, "picture_id", pictureID, "error", err)
			continue
		}
		if added {
			c.metrics.PhotosUploaded.Inc()
		}
	}
}
