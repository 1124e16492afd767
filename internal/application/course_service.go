package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/course-enrollment/internal/domain/entity"
	"github.com/oksasatya/course-enrollment/internal/domain/policy"
	repo "github.com/oksasatya/course-enrollment/internal/domain/repository"
	"github.com/oksasatya/course-enrollment/pkg/helpers"
	"github.com/oksasatya/course-enrollment/pkg/validation"
)

var ErrCoverStorageDisabled = errors.New("cover storage not configured")

// CourseMapping is the Elasticsearch index mapping for course documents.
const CourseMapping = `{
  "mappings": {
    "properties": {
      "id":          {"type": "keyword"},
      "title":       {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "description": {"type": "text"},
      "cover_url":   {"type": "keyword", "index": false},
      "teacher_id":  {"type": "keyword"},
      "created_at":  {"type": "date"},
      "updated_at":  {"type": "date"}
    }
  }
}`

var coverExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// CourseInput is the editable part of a course. Title is trimmed before validation.
type CourseInput struct {
	Title       string `json:"title" validate:"coursetitle"`
	Description string `json:"description" validate:"coursedesc"`
}

type CourseService struct {
	Repo    repo.CourseRepository
	Logger  *logrus.Logger
	ES      *elasticsearch.Client
	ESIndex string
	GCS     *storage.Client
	Bucket  string
}

func NewCourseService(r repo.CourseRepository, logger *logrus.Logger, es *elasticsearch.Client, esIndex string, gcs *storage.Client, bucket string) *CourseService {
	return &CourseService{
		Repo:    r,
		Logger:  resolveLogger(logger),
		ES:      es,
		ESIndex: esIndex,
		GCS:     gcs,
		Bucket:  bucket,
	}
}

// List returns all courses, newest first. Anyone may list.
func (s *CourseService) List(ctx context.Context, p policy.Principal) ([]entity.Course, error) {
	if !policy.CanListCourses(p).Allowed() {
		return nil, ErrAccessDenied
	}
	items, err := s.Repo.List(ctx)
	if err != nil {
		return nil, s.storageFailure("list courses", err, nil)
	}
	return items, nil
}

// Get returns the course and whether p may manage it.
func (s *CourseService) Get(ctx context.Context, p policy.Principal, id string) (*entity.Course, bool, error) {
	c, err := s.find(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return c, policy.CanManageCourse(p, c).Allowed(), nil
}

func (s *CourseService) Create(ctx context.Context, p policy.Principal, in CourseInput) (*entity.Course, error) {
	if !policy.CanCreateCourse(p).Allowed() {
		return nil, ErrAccessDenied
	}
	in, err := normalize(in)
	if err != nil {
		return nil, err
	}
	c := &entity.Course{Title: in.Title, Description: in.Description, TeacherID: p.UserID}
	if err := s.Repo.Create(ctx, c); err != nil {
		return nil, s.storageFailure("create course", err, logrus.Fields{"teacher_id": p.UserID})
	}
	s.Logger.WithFields(logrus.Fields{"course_id": c.ID, "teacher_id": c.TeacherID}).Info("course created")
	s.indexCourse(ctx, c)
	return c, nil
}

// Update changes title and description. The owning teacher never changes.
func (s *CourseService) Update(ctx context.Context, p policy.Principal, id string, in CourseInput) (*entity.Course, error) {
	c, err := s.manageable(ctx, p, id)
	if err != nil {
		return nil, err
	}
	in, err = normalize(in)
	if err != nil {
		return nil, err
	}
	c.Title = in.Title
	c.Description = in.Description
	if err := s.Repo.Update(ctx, c); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, s.storageFailure("update course", err, logrus.Fields{"course_id": id})
	}
	s.indexCourse(ctx, c)
	return c, nil
}

// Delete removes the course. Its enrollments go with it.
func (s *CourseService) Delete(ctx context.Context, p policy.Principal, id string) error {
	if _, err := s.manageable(ctx, p, id); err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrCourseNotFound
		}
		return s.storageFailure("delete course", err, logrus.Fields{"course_id": id})
	}
	s.Logger.WithFields(logrus.Fields{"course_id": id, "user_id": p.UserID}).Info("course deleted")
	s.unindexCourse(ctx, id)
	return nil
}

// UploadCover stores the image in GCS and points the course at it.
func (s *CourseService) UploadCover(ctx context.Context, p policy.Principal, id string, r io.Reader, contentType string) (*entity.Course, error) {
	c, err := s.manageable(ctx, p, id)
	if err != nil {
		return nil, err
	}
	ext, ok := coverExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported cover type %q", ErrInvalidInput, contentType)
	}
	if s.GCS == nil || s.Bucket == "" {
		return nil, ErrCoverStorageDisabled
	}

	objectPath := path.Join("courses", c.ID, uuid.NewString()+ext)
	url, err := helpers.UploadObject(ctx, s.GCS, s.Bucket, objectPath, contentType, r)
	if err != nil {
		return nil, s.storageFailure("upload cover", err, logrus.Fields{"course_id": id})
	}
	c.CoverURL = url
	if err := s.Repo.Update(ctx, c); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, s.storageFailure("update course cover", err, logrus.Fields{"course_id": id})
	}
	s.indexCourse(ctx, c)
	return c, nil
}

// Search matches title and description through Elasticsearch, falling back to a
// title substring match in the repository when search is unavailable.
func (s *CourseService) Search(ctx context.Context, q string, size int) ([]entity.Course, error) {
	if size <= 0 || size > 50 {
		size = 10
	}
	q = strings.TrimSpace(q)
	if s.ES != nil && s.ESIndex != "" {
		items, err := s.searchIndex(ctx, q, size)
		if err == nil {
			return items, nil
		}
		s.Logger.WithError(err).WithField("q", q).Warn("es search failed, falling back to repository")
	}
	items, err := s.Repo.SearchByTitle(ctx, q, size)
	if err != nil {
		return nil, s.storageFailure("search courses", err, logrus.Fields{"q": q})
	}
	return items, nil
}

func (s *CourseService) find(ctx context.Context, id string) (*entity.Course, error) {
	c, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, s.storageFailure("get course", err, logrus.Fields{"course_id": id})
	}
	return c, nil
}

// manageable fetches first so a missing course is reported before a denial.
func (s *CourseService) manageable(ctx context.Context, p policy.Principal, id string) (*entity.Course, error) {
	c, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageCourse(p, c).Allowed() {
		return nil, ErrAccessDenied
	}
	return c, nil
}

func normalize(in CourseInput) (CourseInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := validation.Struct(in); err != nil {
		return in, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return in, nil
}

type courseDoc struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CoverURL    string    `json:"cover_url"`
	TeacherID   string    `json:"teacher_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (s *CourseService) indexCourse(ctx context.Context, c *entity.Course) {
	if s.ES == nil || s.ESIndex == "" {
		return
	}
	b, _ := json.Marshal(courseDoc{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		CoverURL:    c.CoverURL,
		TeacherID:   c.TeacherID,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	})
	req := esapi.IndexRequest{Index: s.ESIndex, DocumentID: c.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(cctx, s.ES)
	if err != nil {
		s.Logger.WithError(err).WithField("course_id", c.ID).Warn("es index failed")
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		s.Logger.WithField("status", res.Status()).WithField("course_id", c.ID).Warn("es index response error")
	}
}

func (s *CourseService) unindexCourse(ctx context.Context, id string) {
	if s.ES == nil || s.ESIndex == "" {
		return
	}
	req := esapi.DeleteRequest{Index: s.ESIndex, DocumentID: id}
	cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(cctx, s.ES)
	if err != nil {
		s.Logger.WithError(err).WithField("course_id", id).Warn("es delete failed")
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != 404 {
		s.Logger.WithField("status", res.Status()).WithField("course_id", id).Warn("es delete response error")
	}
}

func (s *CourseService) searchIndex(ctx context.Context, q string, size int) ([]entity.Course, error) {
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"title^2", "description"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(
		s.ES.Search.WithContext(cctx),
		s.ES.Search.WithIndex(s.ESIndex),
		s.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source courseDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]entity.Course, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		d := h.Source
		out = append(out, entity.Course{
			ID:          d.ID,
			Title:       d.Title,
			Description: d.Description,
			CoverURL:    d.CoverURL,
			TeacherID:   d.TeacherID,
			CreatedAt:   d.CreatedAt,
			UpdatedAt:   d.UpdatedAt,
		})
	}
	return out, nil
}

func (s *CourseService) storageFailure(op string, err error, fields logrus.Fields) error {
	s.Logger.WithError(err).WithFields(fields).WithField("op", op).Error("course storage failure")
	return &StorageError{Op: op, Err: err}
}
