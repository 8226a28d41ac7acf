package tests

import (
	"fmt"
	"net/http"
	"testing"
)

func sopSubmission(courseID, lectorID, seminaristID string, rating int, comment string) []byte {
	return []byte(fmt.Sprintf(`{
		"courses": [{
			"course_id": %q,
			"blocks": [
				{
					"block_type": "course",
					"questions_answers": [
						{"question": "How useful was the course?", "type": "rating", "answer": %d},
						{"question": "Any comments?", "type": "text", "answer": %q}
					]
				},
				{
					"block_type": "lecturer",
					"teacher_id": %q,
					"questions_answers": [{"question": "Rate the lecturer", "type": "rating", "answer": %d}]
				},
				{
					"block_type": "seminarist",
					"teacher_id": %q,
					"questions_answers": [{"question": "Rate the seminarist", "type": "rating", "answer": %d}]
				}
			]
		}]
	}`, courseID, rating, comment, lectorID, rating, seminaristID, rating))
}

func Test_sopApi_submit(t *testing.T) {
	f := setupCourses(t)
	body := sopSubmission(f.crs.ID, f.lector.ID, f.seminarist.ID, 5, "great")

	t.Run("teachers may not submit", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)}
		req, rec := newAuthRequest(http.MethodPost, "/v1/sop", getToken(t, f.lector), body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("student submits", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusCreated,
			wantData: marshalObj(t, map[string]string{"success": "Survey submitted."}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/v1/sop", getToken(t, f.student), body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("resubmission within the window conflicts", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/sop", getToken(t, f.student), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusConflict {
			t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("teacher blocks require a teacher id", func(t *testing.T) {
		body := []byte(fmt.Sprintf(`{
			"courses": [{
				"course_id": %q,
				"blocks": [{
					"block_type": "lecturer",
					"questions_answers": [{"question": "Rate the lecturer", "type": "rating", "answer": 5}]
				}]
			}]
		}`, f.crs.ID))
		req, rec := newAuthRequest(http.MethodPost, "/v1/sop", getToken(t, f.student), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})
}

func Test_sopApi_teacherResults(t *testing.T) {
	f := setupCourses(t)

	req, rec := newAuthRequest(http.MethodPost, "/v1/sop", getToken(t, f.student),
		sopSubmission(f.crs.ID, f.lector.ID, f.seminarist.ID, 5, "great"))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit failed! code = %v; body %s", rec.Code, rec.Body.String())
	}

	t.Run("teacher reads their own results", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/sop/teacher_results", getToken(t, f.lector))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var results struct {
			Questions []struct {
				Question string `json:"question"`
				Answers  []struct {
					Answer int `json:"answer"`
					Count  int `json:"count"`
				} `json:"answers"`
			} `json:"questions"`
		}
		decodeBody(t, rec, &results)
		if len(results.Questions) != 1 || results.Questions[0].Question != "Rate the lecturer" {
			t.Errorf("unexpected results: %s", rec.Body.String())
		}
		if len(results.Questions[0].Answers) != 1 || results.Questions[0].Answers[0].Answer != 5 {
			t.Errorf("unexpected distribution: %s", rec.Body.String())
		}
	})

	t.Run("admin must name a teacher", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/sop/teacher_results", getToken(t, f.admin))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("admin reads a named teacher", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/sop/teacher_results?teacher_id="+f.seminarist.ID, getToken(t, f.admin))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("no results is a 404", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/sop/teacher_results", getToken(t, f.outsider))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("students may not read", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)}
		req, rec := newAuthRequest(http.MethodGet, "/v1/sop/teacher_results", getToken(t, f.student))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_sopApi_courseResults(t *testing.T) {
	f := setupCourses(t)

	req, rec := newAuthRequest(http.MethodPost, "/v1/sop", getToken(t, f.student),
		sopSubmission(f.crs.ID, f.lector.ID, f.seminarist.ID, 4, "solid"))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit failed! code = %v; body %s", rec.Code, rec.Body.String())
	}

	path := "/v1/sop/course_results/" + f.crs.ID

	t.Run("lector reads the course aggregate", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, getToken(t, f.lector))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var results struct {
			CourseResults struct {
				Comments []struct {
					Answer string `json:"answer"`
				} `json:"text_comments"`
			} `json:"course_results"`
			Lector struct {
				TeacherID string `json:"teacher_id"`
				FirstName string `json:"first_name"`
			} `json:"lector"`
			Seminarists []struct {
				TeacherID string `json:"teacher_id"`
			} `json:"seminarists"`
		}
		decodeBody(t, rec, &results)
		if len(results.CourseResults.Comments) != 1 || results.CourseResults.Comments[0].Answer != "solid" {
			t.Errorf("unexpected comments: %s", rec.Body.String())
		}
		if results.Lector.TeacherID != f.lector.ID || results.Lector.FirstName != "Grace" {
			t.Errorf("unexpected lector: %s", rec.Body.String())
		}
		if len(results.Seminarists) != 1 || results.Seminarists[0].TeacherID != f.seminarist.ID {
			t.Errorf("unexpected seminarists: %s", rec.Body.String())
		}
	})

	t.Run("seminarist may not read the course aggregate", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)}
		req, rec := newAuthRequest(http.MethodGet, path, getToken(t, f.seminarist))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("admin reads any course", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, getToken(t, f.admin))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("unknown course is a 404", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/sop/course_results/ghost", getToken(t, f.admin))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})
}
