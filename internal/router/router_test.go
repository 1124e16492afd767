package router

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/course-enrollment/internal/application"
	"github.com/oksasatya/course-enrollment/internal/domain/entity"
	"github.com/oksasatya/course-enrollment/internal/infrastructure/memory"
	"github.com/oksasatya/course-enrollment/internal/interface/middleware"
	"github.com/oksasatya/course-enrollment/pkg/helpers"
)

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
	Error   json.RawMessage `json:"error"`
}

type testServer struct {
	engine *gin.Engine
	store  *memory.Store
	jwt    *helpers.JWTManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	jwt := helpers.NewJWTManager("test-secret", "test-idp", time.Hour)

	engine := gin.New()
	engine.Use(middleware.RequestIDMiddleware())
	reg := NewRegistry(engine)
	Mount(reg, Deps{
		Identity:     application.NewIdentityService(jwt, store.Users(), nil, time.Minute, nil),
		Courses:      application.NewCourseService(store.Courses(), nil, nil, "", nil, ""),
		Enrollments:  application.NewEnrollmentService(store.Courses(), store.Enrollments(), nil, nil),
		DebugMetrics: true,
	})
	reg.RegisterAll()
	return &testServer{engine: engine, store: store, jwt: jwt}
}

func (s *testServer) user(t *testing.T, email string, role entity.Role) (entity.User, string) {
	t.Helper()
	u := s.store.PutUser(entity.User{Email: email, Name: email, Role: role})
	tok, _, err := s.jwt.GenerateAccessToken(u.ID)
	require.NoError(t, err)
	return u, tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func (s *testServer) createCourse(t *testing.T, token, title string) string {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/courses", token, map[string]string{"title": title})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var c struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &c))
	return c.ID
}

func TestCourses_PublicListAndDetails(t *testing.T) {
	s := newTestServer(t)
	_, teacher := s.user(t, "t@example.com", entity.RoleTeacher)
	id := s.createCourse(t, teacher, "Public Course")

	w, env := s.do(t, http.MethodGet, "/api/courses", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), env.Meta["count"])
	var list []struct {
		TeacherName  string `json:"teacher_name"`
		TeacherEmail string `json:"teacher_email"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "t@example.com", list[0].TeacherName)
	assert.Equal(t, "t@example.com", list[0].TeacherEmail)

	w, env = s.do(t, http.MethodGet, "/api/courses/"+id, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Title     string `json:"title"`
		CanManage bool   `json:"can_manage"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "Public Course", got.Title)
	assert.False(t, got.CanManage)

	_, env = s.do(t, http.MethodGet, "/api/courses/"+id, teacher, nil)
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.True(t, got.CanManage)

	w, _ = s.do(t, http.MethodGet, "/api/courses/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCourses_CreateStatusMapping(t *testing.T) {
	s := newTestServer(t)
	_, student := s.user(t, "s@example.com", entity.RoleStudent)
	_, teacher := s.user(t, "t@example.com", entity.RoleTeacher)

	w, _ := s.do(t, http.MethodPost, "/api/courses", "", map[string]string{"title": "Anon"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := s.do(t, http.MethodPost, "/api/courses", student, map[string]string{"title": "Student"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "access denied", env.Message)

	w, env = s.do(t, http.MethodPost, "/api/courses", teacher, map[string]string{"title": " x "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, string(env.Error), "title")

	w, _ = s.do(t, http.MethodPost, "/api/courses", "not-a-token", map[string]string{"title": "Bad token"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCourses_EditAndDeleteByOwnerOnly(t *testing.T) {
	s := newTestServer(t)
	_, t1 := s.user(t, "t1@example.com", entity.RoleTeacher)
	_, t2 := s.user(t, "t2@example.com", entity.RoleTeacher)
	_, admin := s.user(t, "a@example.com", entity.RoleAdmin)
	id := s.createCourse(t, t1, "Owned")

	w, _ := s.do(t, http.MethodPut, "/api/courses/"+id, t2, map[string]string{"title": "Stolen"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodPut, "/api/courses/missing", t2, map[string]string{"title": "Nothing"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodPut, "/api/courses/"+id, admin, map[string]string{"title": "Renamed"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/courses/"+id, t2, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/courses/"+id, t1, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/courses/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEnrollment_Flow(t *testing.T) {
	s := newTestServer(t)
	_, t1 := s.user(t, "t1@example.com", entity.RoleTeacher)
	_, t2 := s.user(t, "t2@example.com", entity.RoleTeacher)
	student, st := s.user(t, "s@example.com", entity.RoleStudent)
	id := s.createCourse(t, t1, "Enrollable")
	path := "/api/courses/" + id + "/enrollment"

	w, env := s.do(t, http.MethodPost, path, st, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "enrolled", env.Message)

	w, env = s.do(t, http.MethodPost, path, st, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "already_enrolled", env.Message)

	w, _ = s.do(t, http.MethodPost, path, t1, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/courses/missing/enrollment", st, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/courses/"+id+"/students", t1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var roster []struct {
		StudentID string `json:"student_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &roster))
	require.Len(t, roster, 1)
	assert.Equal(t, student.ID, roster[0].StudentID)

	w, _ = s.do(t, http.MethodGet, "/api/courses/"+id+"/students", t2, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/me/courses", st, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), env.Meta["count"])
	var mine []struct {
		CourseTitle  string `json:"course_title"`
		TeacherEmail string `json:"teacher_email"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "Enrollable", mine[0].CourseTitle)
	assert.Equal(t, "t1@example.com", mine[0].TeacherEmail)

	w, _ = s.do(t, http.MethodGet, "/api/me/courses", t1, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(t, http.MethodDelete, path, st, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "unenrolled", env.Message)

	w, env = s.do(t, http.MethodDelete, path, st, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "not_enrolled", env.Message)

	w, _ = s.do(t, http.MethodGet, "/api/me/courses", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEnrollment_ConcurrentRequests(t *testing.T) {
	s := newTestServer(t)
	_, t1 := s.user(t, "t1@example.com", entity.RoleTeacher)
	student, st := s.user(t, "s@example.com", entity.RoleStudent)
	id := s.createCourse(t, t1, "Popular")

	const n = 16
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/courses/"+id+"/enrollment", nil)
			req.Header.Set("Authorization", "Bearer "+st)
			w := httptest.NewRecorder()
			s.engine.ServeHTTP(w, req)
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	created := 0
	for _, c := range codes {
		if c == http.StatusCreated {
			created++
		} else {
			assert.Equal(t, http.StatusOK, c)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, s.store.EnrollmentCount(id, student.ID))
}

func TestCourses_SearchAndCover(t *testing.T) {
	s := newTestServer(t)
	_, t1 := s.user(t, "t1@example.com", entity.RoleTeacher)
	id := s.createCourse(t, t1, "Searchable Systems")
	s.createCourse(t, t1, "Other")

	w, env := s.do(t, http.MethodGet, "/api/courses/search?q=search", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), env.Meta["count"])

	w, _ = s.do(t, http.MethodGet, "/api/courses/search", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="cover"; filename="c.png"`)
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, _ = part.Write([]byte("\x89PNG"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/api/courses/"+id+"/cover", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+t1)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDebugVars(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/debug/vars", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "enrollment_outcomes")
}
