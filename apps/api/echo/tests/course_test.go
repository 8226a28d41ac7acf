package tests

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
	testutil "github.com/trezcool/elimu/tests"
)

type courseFixture struct {
	admin      user.User
	lector     user.User
	seminarist user.User
	outsider   user.User
	student    user.User
	student2   user.User
	crs        course.Course
}

func setupCourses(t *testing.T) courseFixture {
	t.Helper()
	resetDB(t)

	f := courseFixture{
		admin:      testutil.CreateUser(t, usrRepo, "Root", "Admin", "admin@uni.edu", "", user.RoleAdmin, ""),
		lector:     testutil.CreateUser(t, usrRepo, "Grace", "Hopper", "grace@uni.edu", "", user.RoleTeacher, ""),
		seminarist: testutil.CreateUser(t, usrRepo, "Alan", "Turing", "alan@uni.edu", "", user.RoleTeacher, ""),
		outsider:   testutil.CreateUser(t, usrRepo, "John", "Backus", "john@uni.edu", "", user.RoleTeacher, ""),
		student:    testutil.CreateUser(t, usrRepo, "Ada", "Lovelace", "ada@uni.edu", "", user.RoleStudent, "G1"),
		student2:   testutil.CreateUser(t, usrRepo, "Edsger", "Dijkstra", "edsger@uni.edu", "", user.RoleStudent, "G2"),
	}
	f.crs = testutil.CreateCourse(t, crsRepo, "Compilers", f.lector.ID,
		course.Group{GroupID: "G1", SeminaristID: f.seminarist.ID})
	return f
}

type pagedResponse struct {
	Count   int `json:"count"`
	Results []struct {
		ID   string `json:"course_id"`
		Name string `json:"name"`
	} `json:"results"`
}

func Test_courseApi_create(t *testing.T) {
	f := setupCourses(t)

	body := []byte(fmt.Sprintf(`{
		"name": "Operating Systems",
		"description": "Scheduling and memory",
		"lector_id": %q,
		"groups": [{"group_id": "G2", "seminarist_id": %q}]
	}`, f.lector.ID, f.seminarist.ID))

	tests := []httpTest{
		{
			name: "auth required", method: http.MethodPost, path: "/v1/courses", body: body,
			wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken),
		},
		{
			name: "teachers may not create courses", method: http.MethodPost, path: "/v1/courses", body: body,
			token: getToken(t, f.lector), wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			name: "admin creates", method: http.MethodPost, path: "/v1/courses", body: body,
			token: getToken(t, f.admin), wantCode: http.StatusCreated,
		},
		{
			name: "unknown lector is rejected", method: http.MethodPost, path: "/v1/courses",
			body:  []byte(`{"name": "Ghost Course", "lector_id": "nope", "groups": [{"group_id": "G1", "seminarist_id": "nope"}]}`),
			token: getToken(t, f.admin), wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_query_per_role(t *testing.T) {
	f := setupCourses(t)
	other := testutil.CreateCourse(t, crsRepo, "Databases", f.outsider.ID,
		course.Group{GroupID: "G2", SeminaristID: f.outsider.ID})

	query := func(t *testing.T, token, path string) pagedResponse {
		t.Helper()
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("query failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var page pagedResponse
		decodeBody(t, rec, &page)
		return page
	}

	t.Run("admin sees everything", func(t *testing.T) {
		page := query(t, getToken(t, f.admin), "/v1/courses")
		if page.Count != 2 {
			t.Errorf("count = %v; want 2", page.Count)
		}
	})

	t.Run("admin queries a student's courses", func(t *testing.T) {
		page := query(t, getToken(t, f.admin), "/v1/courses?student_id="+f.student.ID)
		if page.Count != 1 || page.Results[0].ID != f.crs.ID {
			t.Errorf("unexpected page: %+v", page)
		}
	})

	t.Run("teacher denied on generic listing", func(t *testing.T) {
		tt := httpTest{
			method: http.MethodGet, path: "/v1/courses", token: getToken(t, f.seminarist),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		}
		req, rec := newAuthRequest(tt.method, tt.path, tt.token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("teacher lists taught courses", func(t *testing.T) {
		page := query(t, getToken(t, f.seminarist), "/v1/courses/taught")
		if page.Count != 1 || page.Results[0].ID != f.crs.ID {
			t.Errorf("unexpected page: %+v", page)
		}
	})

	t.Run("student_id is admin-only", func(t *testing.T) {
		tt := httpTest{
			method: http.MethodGet, path: "/v1/courses?student_id=" + f.student.ID, token: getToken(t, f.student2),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		}
		req, rec := newAuthRequest(tt.method, tt.path, tt.token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("student sees group courses only", func(t *testing.T) {
		page := query(t, getToken(t, f.student2), "/v1/courses")
		if page.Count != 1 || page.Results[0].ID != other.ID {
			t.Errorf("unexpected page: %+v", page)
		}
	})

	t.Run("search filters by name", func(t *testing.T) {
		page := query(t, getToken(t, f.admin), "/v1/courses?search=data")
		if page.Count != 1 || page.Results[0].Name != "Databases" {
			t.Errorf("unexpected page: %+v", page)
		}
	})
}

func Test_courseApi_retrieve(t *testing.T) {
	f := setupCourses(t)

	tests := []httpTest{
		{
			name: "student in group reads", method: http.MethodGet, path: "/v1/courses/" + f.crs.ID,
			token: getToken(t, f.student), wantCode: http.StatusOK,
		},
		{
			name: "outside student denied", method: http.MethodGet, path: "/v1/courses/" + f.crs.ID,
			token: getToken(t, f.student2), wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			name: "unrelated teacher denied", method: http.MethodGet, path: "/v1/courses/" + f.crs.ID,
			token: getToken(t, f.outsider), wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			name: "unknown course", method: http.MethodGet, path: "/v1/courses/ghost",
			token: getToken(t, f.admin), wantCode: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_update(t *testing.T) {
	f := setupCourses(t)

	rename := []byte(`{"name": "Compilers II"}`)
	reassign := []byte(fmt.Sprintf(`{"lector_id": %q}`, f.outsider.ID))

	tests := []httpTest{
		{
			name: "lector renames", method: http.MethodPut, path: "/v1/courses/" + f.crs.ID, body: rename,
			token: getToken(t, f.lector), wantCode: http.StatusOK,
		},
		{
			name: "seminarist renames", method: http.MethodPut, path: "/v1/courses/" + f.crs.ID, body: rename,
			token: getToken(t, f.seminarist), wantCode: http.StatusOK,
		},
		{
			name: "student denied", method: http.MethodPut, path: "/v1/courses/" + f.crs.ID, body: rename,
			token: getToken(t, f.student), wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			name: "seminarist may not reassign the lector", method: http.MethodPut, path: "/v1/courses/" + f.crs.ID,
			body: reassign, token: getToken(t, f.seminarist),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			name: "lector reassigns", method: http.MethodPut, path: "/v1/courses/" + f.crs.ID, body: reassign,
			token: getToken(t, f.lector), wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_content(t *testing.T) {
	f := setupCourses(t)

	blockBody := []byte(`{"name": "Parsing"}`)

	t.Run("admins may not author content", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)}
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+f.crs.ID+"/blocks", getToken(t, f.admin), blockBody)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	var blk course.Block
	t.Run("lector creates a block", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+f.crs.ID+"/blocks", getToken(t, f.lector), blockBody)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		decodeBody(t, rec, &blk)
	})

	var unit course.Unit
	t.Run("seminarist adds a lecture unit", func(t *testing.T) {
		body := []byte(`{"name": "Top-down parsing", "type": "lecture", "text": "LL(1) grammars"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/blocks/"+blk.ID+"/units", getToken(t, f.seminarist), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		decodeBody(t, rec, &unit)
	})

	t.Run("duplicate unit name in a block conflicts", func(t *testing.T) {
		body := []byte(`{"name": "Top-down parsing", "type": "seminar", "text": "exercises"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/blocks/"+blk.ID+"/units", getToken(t, f.seminarist), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusConflict {
			t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("student reads the unit", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/units/%d", unit.ID), getToken(t, f.student))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("non-numeric unit id is a 404", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/units/abc", getToken(t, f.student))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})
}

func Test_courseApi_students(t *testing.T) {
	f := setupCourses(t)

	t.Run("lector lists enrolled students", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+f.crs.ID+"/students", getToken(t, f.lector))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var page struct {
			Count   int `json:"count"`
			Results []struct {
				Email string `json:"email"`
			} `json:"results"`
		}
		decodeBody(t, rec, &page)
		if page.Count != 1 || page.Results[0].Email != "ada@uni.edu" {
			t.Errorf("unexpected page: %+v", page)
		}
	})

	t.Run("students may not list", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)}
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+f.crs.ID+"/students", getToken(t, f.student))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}
