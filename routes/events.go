package routes

import (
	"errors"
	"log"
	"math"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"eventapi/middlewares"
	"eventapi/models"
	"eventapi/utils"
)

type createEventRequest struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Date          string   `json:"date"`
	Location      string   `json:"location"`
	OrganizerID   string   `json:"organizer_id"`
	Price         *float64 `json:"price"`
	ImageURL      string   `json:"image_url"`
	BannerImage   string   `json:"banner_image"`
	GalleryImages []string `json:"gallery_images"`
}

// respondRepoError maps repository sentinels on an event lookup.
func respondRepoError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidID):
		badRequest(c, "Invalid event ID")
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not reach the event store. Try again later."})
	}
}

// present rewrites stored media references into absolute URLs.
func (d *deps) present(e models.Event) models.Event {
	e.Normalize()
	if d.Media == nil {
		return e
	}
	e.ImageURL = d.Media.AbsoluteURL(e.ImageURL)
	e.BannerImage = d.Media.AbsoluteURL(e.BannerImage)
	gallery := make([]string, len(e.GalleryImages))
	for i, g := range e.GalleryImages {
		gallery[i] = d.Media.AbsoluteURL(g)
	}
	e.GalleryImages = gallery
	return e
}

func (d *deps) presentAll(list []models.Event) []models.Event {
	out := make([]models.Event, len(list))
	for i, e := range list {
		out[i] = d.present(e)
	}
	return out
}

// POST /api/events/create
func (d *deps) createEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Could not parse request data.")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Date = strings.TrimSpace(req.Date)
	if req.Title == "" || req.Date == "" {
		badRequest(c, "Event title and date are required")
		return
	}
	var price float64
	if req.Price != nil {
		price = *req.Price
		if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
			badRequest(c, "price must be a non-negative number")
			return
		}
	}
	organizer := req.OrganizerID
	if organizer == "" {
		organizer = c.GetString(middlewares.UserIDKey)
	}

	event := models.Event{
		Title:         req.Title,
		Description:   req.Description,
		Date:          req.Date,
		Location:      req.Location,
		OrganizerID:   organizer,
		Price:         price,
		ImageURL:      req.ImageURL,
		BannerImage:   req.BannerImage,
		GalleryImages: req.GalleryImages,
	}
	if err := d.Events.Create(c.Request.Context(), &event); err != nil {
		log.Printf("create event: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create event. Try again later."})
		return
	}
	d.purgeEvent(c.Request.Context(), "")

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Event created successfully!",
		"event_id": event.ID.Hex(),
		"event":    d.present(event),
	})
}

// GET /api/events/all
func (d *deps) getEvents(c *gin.Context) {
	events, err := d.Events.GetAll(c.Request.Context())
	if err != nil {
		respondRepoError(c, err)
		return
	}
	c.JSON(http.StatusOK, d.presentAll(events))
}

// GET /api/events/my-events/:organizer_id
func (d *deps) getOrganizerEvents(c *gin.Context) {
	events, err := d.Events.GetByOrganizer(c.Request.Context(), c.Param("organizer_id"))
	if err != nil {
		respondRepoError(c, err)
		return
	}
	c.JSON(http.StatusOK, d.presentAll(events))
}

// GET /api/events/:event_id
func (d *deps) getEvent(c *gin.Context) {
	event, err := d.Events.GetByID(c.Request.Context(), c.Param("event_id"))
	if err != nil {
		respondRepoError(c, err)
		return
	}
	c.JSON(http.StatusOK, d.present(event))
}

// POST /api/events/upload-image
func (d *deps) uploadImage(c *gin.Context) {
	if d.Media == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Uploads are not configured"})
		return
	}
	// room for the multipart envelope around one file
	limit := d.MaxUploadBytes + 64<<10
	if c.Request.ContentLength > limit {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
			return
		}
		badRequest(c, "No file part")
		return
	}
	if fh.Filename == "" {
		badRequest(c, "No selected file")
		return
	}
	if fh.Size > d.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		badRequest(c, "Could not read file")
		return
	}
	defer f.Close()

	ref, err := d.Media.Save(fh.Filename, f)
	if err != nil {
		if errors.Is(err, utils.ErrUnsupportedType) {
			badRequest(c, "File type not allowed")
			return
		}
		log.Printf("upload image: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not store file"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "Image uploaded successfully",
		"image_url": ref,
		"url":       d.Media.AbsoluteURL(ref),
	})
}

// GET /api/events/images/:ref
func (d *deps) serveImage(c *gin.Context) {
	if d.Media == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}
	path, err := d.Media.Path(c.Param("ref"))
	if err != nil {
		badRequest(c, "Invalid image reference")
		return
	}
	if st, err := os.Stat(path); err != nil || st.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}
	c.File(path)
}

// PUT /api/events/update-images/:event_id
func (d *deps) updateImages(c *gin.Context) {
	var patch models.ImagePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "Could not parse request data.")
		return
	}
	if patch.Empty() {
		badRequest(c, "No image fields provided")
		return
	}

	id := c.Param("event_id")
	if err := d.Events.UpdateImages(c.Request.Context(), id, patch); err != nil {
		respondRepoError(c, err)
		return
	}
	d.purgeEvent(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{"message": "Event images updated successfully"})
}
