package tests

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/trezcool/elimu/core/course"
	testutil "github.com/trezcool/elimu/tests"
)

func Test_quizApi_flow(t *testing.T) {
	f := setupCourses(t)

	// author the test
	body := []byte(`{
		"questions": [
			{"id": 1, "text": "Which parser is predictive?", "type": "one_of", "answers": ["LL(1)", "LR(1)", "CYK"]},
			{"id": 2, "text": "Pick the regular languages", "type": "many", "answers": ["a*", "a^n b^n", "(ab)*"]},
			{"id": 3, "text": "Explain left recursion elimination", "type": "custom"}
		],
		"answers": [
			{"id": 1, "answer": ["LL(1)"]},
			{"id": 2, "answer": ["a*", "(ab)*"]},
			{"id": 3, "answer": [""]}
		]
	}`)

	t.Run("students may not author tests", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)}
		req, rec := newAuthRequest(http.MethodPost, "/v1/tests", getToken(t, f.student), body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	var test struct {
		ID string `json:"test_id"`
	}
	t.Run("teacher authors a test", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/tests", getToken(t, f.lector), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		decodeBody(t, rec, &test)
	})

	// link it to the course so access rules can resolve it
	blk := testutil.CreateBlock(t, crsRepo, f.crs.ID, "Parsing")
	testutil.CreateUnit(t, crsRepo, blk, "Midterm", course.UnitTest, testutil.TestUnitContent(test.ID))

	t.Run("student fetches the questions without the key", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/tests/"+test.ID, getToken(t, f.student))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var view struct {
			Questions []struct {
				ID int `json:"id"`
			} `json:"questions"`
		}
		decodeBody(t, rec, &view)
		if len(view.Questions) != 3 {
			t.Errorf("unexpected questions: %s", rec.Body.String())
		}
	})

	t.Run("outside student may not fetch", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)}
		req, rec := newAuthRequest(http.MethodGet, "/v1/tests/"+test.ID, getToken(t, f.student2))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	submission := []byte(`{
		"answers": [
			{"id": 1, "answer": ["LL(1)"]},
			{"id": 2, "answer": ["(ab)*", "a*"]},
			{"id": 3, "answer": ["rewrite A -> Aa | b as A -> bA'"]}
		]
	}`)

	t.Run("student submits and is graded", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/test_results/"+test.ID, getToken(t, f.student), submission)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var result struct {
			Results []struct {
				ID      int      `json:"id"`
				IsRight *bool    `json:"is_right"`
				Answer  []string `json:"answer"`
			} `json:"results"`
		}
		decodeBody(t, rec, &result)
		if len(result.Results) != 3 {
			t.Fatalf("unexpected results: %s", rec.Body.String())
		}
		// choice answers compare as sets; the custom answer is stored verbatim
		if result.Results[0].IsRight == nil || !*result.Results[0].IsRight {
			t.Errorf("question 1 should be right: %s", rec.Body.String())
		}
		if result.Results[1].IsRight == nil || !*result.Results[1].IsRight {
			t.Errorf("question 2 should be right regardless of order: %s", rec.Body.String())
		}
		if result.Results[2].IsRight != nil || len(result.Results[2].Answer) == 0 {
			t.Errorf("question 3 should be kept verbatim, ungraded: %s", rec.Body.String())
		}
	})

	t.Run("resubmission is rejected", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "test already completed"}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/v1/test_results/"+test.ID, getToken(t, f.student), submission)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("fetching again returns the stored results", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/tests/"+test.ID, getToken(t, f.student))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var result struct {
			UserID string `json:"user_id"`
			TestID string `json:"test_id"`
		}
		decodeBody(t, rec, &result)
		if result.UserID != f.student.ID || result.TestID != test.ID {
			t.Errorf("unexpected result: %s", rec.Body.String())
		}
	})

	resultsPath := fmt.Sprintf("/v1/test_results/%s/user/%s", test.ID, f.student.ID)

	t.Run("teacher reviews a student's results", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, resultsPath, getToken(t, f.seminarist))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("students may not review others", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)}
		req, rec := newAuthRequest(http.MethodGet, resultsPath, getToken(t, f.student))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("teacher overrides the grading", func(t *testing.T) {
		override := []byte(`{"results": [{"id": 3, "is_right": true}]}`)
		req, rec := newAuthRequest(http.MethodPost, resultsPath, getToken(t, f.lector), override)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var result struct {
			Results []struct {
				ID      int   `json:"id"`
				IsRight *bool `json:"is_right"`
			} `json:"results"`
		}
		decodeBody(t, rec, &result)
		if len(result.Results) != 1 || result.Results[0].ID != 3 {
			t.Errorf("override should replace the result list: %s", rec.Body.String())
		}
	})

	t.Run("unknown test is hidden", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)}
		req, rec := newAuthRequest(http.MethodGet, "/v1/tests/ghost", getToken(t, f.student))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}
