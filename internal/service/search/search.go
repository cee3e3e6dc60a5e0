package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/lessonhub/platform/internal/models"
)

// Service keeps the lesson index in sync and answers catalog queries.
type Service struct {
	ES    *elasticsearch.Client
	Index string
}

func NewService(es *elasticsearch.Client, index string) *Service {
	return &Service{ES: es, Index: index}
}

func (s *Service) Search(ctx context.Context, query string, from, size int) (int64, []models.Lesson, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"title^2", "description", "category"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("search: encode query: %w", err)
	}

	res, err := s.ES.Search(
		s.ES.Search.WithContext(ctx),
		s.ES.Search.WithIndex(s.Index),
		s.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, nil, fmt.Errorf("search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Lesson `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	lessons := make([]models.Lesson, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		lessons[i] = hit.Source
	}
	return r.Hits.Total.Value, lessons, nil
}

// IndexLesson is called best-effort after admin mutations; callers log and
// swallow the error so the catalog write never fails on index lag.
func (s *Service) IndexLesson(ctx context.Context, lesson models.Lesson) error {
	doc := map[string]any{
		"id":          lesson.ID,
		"title":       lesson.Title,
		"description": lesson.Description,
		"category":    lesson.Category,
		"free":        lesson.Free,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("search: encode doc: %w", err)
	}

	res, err := s.ES.Index(
		s.Index,
		strings.NewReader(string(data)),
		s.ES.Index.WithContext(ctx),
		s.ES.Index.WithDocumentID(strconv.FormatUint(uint64(lesson.ID), 10)),
	)
	if err != nil {
		return fmt.Errorf("search: index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("search: index: %s", res.Status())
	}
	return nil
}

func (s *Service) DeleteLesson(ctx context.Context, id uint) error {
	res, err := s.ES.Delete(
		s.Index,
		strconv.FormatUint(uint64(id), 10),
		s.ES.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("search: delete: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("search: delete: %s", res.Status())
	}
	return nil
}
