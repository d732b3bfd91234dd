package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Veein-web/AI-Background-Remover/internal/flash"
	"github.com/Veein-web/AI-Background-Remover/internal/media/codec"
	"github.com/Veein-web/AI-Background-Remover/internal/models"
	"github.com/Veein-web/AI-Background-Remover/internal/service"
	"github.com/Veein-web/AI-Background-Remover/internal/staging"
)

const (
	uploadField = "file"
	recentLimit = 10
)

func (h HandlerSet) RemovePage(c *gin.Context) {
	h.render(c, "remove_bg.html", gin.H{
		"Title":  "Remove background",
		"Recent": h.recent(c),
	})
}

func (h HandlerSet) Upload(c *gin.Context) {
	p := principal(c)

	form, err := c.MultipartForm()
	if err != nil {
		flash.Add(c, flash.Danger, "No file part")
		redirect(c, "/remove")
		return
	}

	files := form.File[uploadField]
	if len(files) == 0 {
		// Browsers send an empty-named part when nothing was chosen.
		if _, ok := form.Value[uploadField]; ok {
			flash.Add(c, flash.Danger, "No selected file")
		} else {
			flash.Add(c, flash.Danger, "No file part")
		}
		redirect(c, "/remove")
		return
	}
	header := files[0]
	if header.Filename == "" {
		flash.Add(c, flash.Danger, "No selected file")
		redirect(c, "/remove")
		return
	}

	file, err := header.Open()
	if err != nil {
		h.log.Error().Err(err).Msg("open upload failed")
		flash.Add(c, flash.Danger, "Could not read the upload.")
		redirect(c, "/remove")
		return
	}
	data, err := io.ReadAll(file)
	_ = file.Close()
	if err != nil {
		h.log.Error().Err(err).Msg("read upload failed")
		flash.Add(c, flash.Danger, "Could not read the upload.")
		redirect(c, "/remove")
		return
	}

	result, err := h.images.Process(c.Request.Context(), p.User, header.Filename, data)
	if err != nil {
		var transformErr *service.TransformError
		switch {
		case errors.Is(err, service.ErrInvalidFilename):
			flash.Add(c, flash.Danger, "No selected file")
		case errors.As(err, &transformErr):
			flash.Add(c, flash.Danger, fmt.Sprintf("An error occurred during processing: %v", transformErr.Cause))
		default:
			h.log.Error().Err(err).Str("user_id", p.User.ID).Msg("process upload failed")
			flash.Add(c, flash.Danger, "An error occurred during processing.")
		}
		redirect(c, "/remove")
		return
	}

	h.render(c, "remove_bg.html", gin.H{
		"Title":  "Remove background",
		"Result": &result,
		"Recent": h.recent(c),
	})
}

// Media serves the caller's own staged files for the result previews.
func (h HandlerSet) Media(c *gin.Context) {
	p := principal(c)
	ns := staging.Namespace(c.Param("namespace"))

	rc, err := h.area.Open(c.Request.Context(), ns, p.User.ID, c.Param("filename"))
	if err != nil {
		if errors.Is(err, staging.ErrNotFound) || errors.Is(err, staging.ErrInvalidNamespace) {
			c.Status(http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Msg("open staged file failed")
		c.Status(http.StatusInternalServerError)
		return
	}
	defer func() {
		_ = rc.Close()
	}()

	data, err := io.ReadAll(rc)
	if err != nil {
		h.log.Error().Err(err).Msg("read staged file failed")
		c.Status(http.StatusInternalServerError)
		return
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		c.Status(http.StatusNotFound)
		return
	}

	c.Header("Cache-Control", "private, max-age=300")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, contentType, data)
}

func (h HandlerSet) Download(c *gin.Context) {
	p := principal(c)

	d, err := h.delivery.Download(c.Request.Context(), p.User, c.Param("filename"), c.Param("quality"))
	if err != nil {
		var insufficient *service.InsufficientCreditsError
		switch {
		case errors.Is(err, service.ErrInvalidTier):
			flash.Add(c, flash.Danger, "Invalid quality selected.")
			redirect(c, "/remove")
		case errors.As(err, &insufficient):
			flash.Add(c, flash.Danger, fmt.Sprintf("You need %d credits for this download, but you only have %d.",
				insufficient.Required, insufficient.Available))
			redirect(c, "/pricing")
		case errors.Is(err, service.ErrImageNotFound):
			flash.Add(c, flash.Danger, "The requested image could not be found.")
			redirect(c, "/remove")
		case errors.Is(err, service.ErrOutputTooLarge):
			flash.Add(c, flash.Danger, "This image is too large to deliver at the selected quality.")
			redirect(c, "/remove")
		default:
			h.log.Error().Err(err).Str("user_id", p.User.ID).Msg("download failed")
			flash.Add(c, flash.Danger, "An error occurred during download.")
			redirect(c, "/remove")
		}
		return
	}

	flash.Add(c, flash.Success, fmt.Sprintf("Successfully downloaded in %s. %d credits deducted. Remaining credits: %d",
		d.Tier.Name, d.Charged, d.Balance))

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.Filename}))
	c.Header("X-Credits-Charged", strconv.Itoa(d.Charged))
	c.Header("X-Credits-Remaining", strconv.Itoa(d.Balance))
	c.Data(http.StatusOK, codec.PNGContentType, d.Data)
}

func (h HandlerSet) recent(c *gin.Context) []models.Image {
	images, err := h.images.Recent(c.Request.Context(), principal(c).User, recentLimit)
	if err != nil {
		h.log.Warn().Err(err).Msg("list recent uploads failed")
		return nil
	}
	return images
}
