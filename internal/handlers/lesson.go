package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/lessonhub/platform/internal/access"
	"github.com/lessonhub/platform/internal/logging"
	mwauth "github.com/lessonhub/platform/internal/middleware/auth"
	"github.com/lessonhub/platform/internal/models"
	"github.com/lessonhub/platform/internal/mykafka"
	"github.com/lessonhub/platform/internal/transport"
	"github.com/lessonhub/platform/internal/util"
)

type LessonHandler struct {
	DB       *gorm.DB
	Producer EventPublisher
	Indexer  LessonIndexer
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *LessonHandler) index(c echo.Context, lesson models.Lesson) {
	if h.Indexer == nil {
		return
	}
	if err := h.Indexer.IndexLesson(c.Request().Context(), lesson); err != nil {
		logging.FromContext(c.Request().Context()).Error("lesson index failed", "lesson_id", lesson.ID, "error", err)
	}
}

func (h *LessonHandler) GetLesson(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid lesson id")
	}

	var lesson models.Lesson
	if err := h.DB.First(&lesson, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "lesson not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, lesson)
}

func (h *LessonHandler) GetLessons(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	q := h.DB.Model(&models.Lesson{})
	if category := c.QueryParam("category"); category != "" {
		q = q.Where("category = ?", category)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	var items []models.Lesson
	if err := q.Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

// Stream gates the actual playback URL behind the centralized access
// predicate; lesson metadata endpoints never include it.
func (h *LessonHandler) Stream(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid lesson id")
	}

	var lesson models.Lesson
	if err := h.DB.First(&lesson, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "lesson not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	user := mwauth.CurrentUser(c)
	if !access.CanWatch(user, &lesson) {
		return echo.NewHTTPError(http.StatusForbidden, transport.ReasonForbidden)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":         lesson.ID,
		"title":      lesson.Title,
		"stream_url": lesson.StreamURL,
	})
}

func (h *LessonHandler) CreateLesson(c echo.Context) error {
	var req transport.LessonRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	lesson := models.Lesson{
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		StreamURL:       req.StreamURL,
		ThumbnailURL:    req.ThumbnailURL,
		DurationMinutes: req.DurationMinutes,
		Free:            req.Free,
	}
	if err := h.DB.Create(&lesson).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	h.index(c, lesson)
	publish(c, h.Producer, mykafka.TopicLessonEvents, fmt.Sprint(lesson.ID), map[string]any{
		"type":      "lesson_created",
		"lesson_id": lesson.ID,
		"title":     lesson.Title,
	})

	return c.JSON(http.StatusCreated, lesson)
}

func (h *LessonHandler) PatchLesson(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid lesson id")
	}

	var req transport.LessonRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var lesson models.Lesson
	if err := h.DB.First(&lesson, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "lesson not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	lesson.Title = req.Title
	lesson.Description = req.Description
	lesson.Category = req.Category
	lesson.StreamURL = req.StreamURL
	lesson.ThumbnailURL = req.ThumbnailURL
	lesson.DurationMinutes = req.DurationMinutes
	lesson.Free = req.Free

	if err := h.DB.Save(&lesson).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	h.index(c, lesson)
	publish(c, h.Producer, mykafka.TopicLessonEvents, fmt.Sprint(lesson.ID), map[string]any{
		"type":      "lesson_updated",
		"lesson_id": lesson.ID,
	})

	return c.JSON(http.StatusOK, lesson)
}

func (h *LessonHandler) DeleteLesson(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid lesson id")
	}

	if err := h.DB.Delete(&models.Lesson{}, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	if h.Indexer != nil {
		if err := h.Indexer.DeleteLesson(c.Request().Context(), uint(id)); err != nil {
			logging.FromContext(c.Request().Context()).Error("lesson index delete failed", "lesson_id", id, "error", err)
		}
	}
	publish(c, h.Producer, mykafka.TopicLessonEvents, fmt.Sprint(id), map[string]any{
		"type":      "lesson_deleted",
		"lesson_id": id,
	})

	return c.NoContent(http.StatusNoContent)
}

// ImportCSV bulk-creates lessons from a multipart "file" field with the
// header: title,description,category,stream_url,thumbnail_url,duration_minutes,free
func (h *LessonHandler) ImportCSV(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing csv file")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot open csv file")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 7

	if _, err := r.Read(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "empty csv file")
	}

	imported := 0
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("csv line %d: %v", line, err))
		}

		duration, _ := strconv.Atoi(record[5])
		free, _ := strconv.ParseBool(record[6])

		req := transport.LessonRequest{
			Title:           record[0],
			Description:     record[1],
			Category:        record[2],
			StreamURL:       record[3],
			ThumbnailURL:    record[4],
			DurationMinutes: uint(duration),
			Free:            free,
		}
		if err := req.Validate(); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("csv line %d: %v", line, err))
		}

		lesson := models.Lesson{
			Title:           req.Title,
			Description:     req.Description,
			Category:        req.Category,
			StreamURL:       req.StreamURL,
			ThumbnailURL:    req.ThumbnailURL,
			DurationMinutes: req.DurationMinutes,
			Free:            req.Free,
		}
		if err := h.DB.Create(&lesson).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
		h.index(c, lesson)
		imported++
	}

	return c.JSON(http.StatusOK, echo.Map{"imported": imported})
}
