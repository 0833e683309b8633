package classroom

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/campus-gradebook-api/pkg/errors"
)

func newFakeClassroom(t *testing.T, routes map[string]interface{}) (*Client, *[]string) {
	t.Helper()
	var auth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = append(auth, r.Header.Get("Authorization"))
		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found."}}`))
			return
		}
		if status, isStatus := body.(int); isStatus {
			w.WriteHeader(status)
			_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"denied"}}`, status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}))
	t.Cleanup(srv.Close)
	return NewClient(Config{Endpoint: srv.URL + "/", Timeout: 5 * time.Second}), &auth
}

func TestListStudentsMapsProfiles(t *testing.T) {
	client, auth := newFakeClassroom(t, map[string]interface{}{
		"/v1/courses/c1/students": map[string]interface{}{
			"students": []map[string]interface{}{
				{"userId": "g1", "profile": map[string]interface{}{
					"emailAddress": "ana@school.edu",
					"name":         map[string]string{"fullName": "Ana Cruz", "givenName": "Ana", "familyName": "Cruz"},
				}},
				{"userId": "g2"},
			},
		},
	})

	students, err := client.ListStudents(context.Background(), "tok", "c1")
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "ana@school.edu", students[0].Email)
	assert.Equal(t, "Cruz", students[0].FamilyName)
	assert.Equal(t, "g2", students[1].UserID)
	assert.Equal(t, "Bearer tok", (*auth)[0])
}

func TestGetCourseworkParsesCreationTime(t *testing.T) {
	client, _ := newFakeClassroom(t, map[string]interface{}{
		"/v1/courses/c1/courseWork/w1": map[string]interface{}{
			"id": "w1", "courseId": "c1", "title": "Quiz 3", "maxPoints": 20,
			"workType": "ASSIGNMENT", "creationTime": "2024-09-02T23:15:00.123Z",
		},
	})

	cw, err := client.GetCoursework(context.Background(), "tok", "c1", "w1")
	require.NoError(t, err)
	assert.Equal(t, "Quiz 3", cw.Title)
	assert.Equal(t, 20.0, cw.MaxPoints)
	assert.Equal(t, time.Date(2024, 9, 2, 23, 15, 0, 123000000, time.UTC), cw.CreatedAt)
}

func TestListSubmissionsPrefersAssignedGrade(t *testing.T) {
	client, _ := newFakeClassroom(t, map[string]interface{}{
		"/v1/courses/c1/courseWork/w1/studentSubmissions": map[string]interface{}{
			"studentSubmissions": []map[string]interface{}{
				{"userId": "g1", "state": "RETURNED", "assignedGrade": 18, "draftGrade": 15},
				{"userId": "g2", "state": "TURNED_IN", "draftGrade": 12},
				{"userId": "g3", "state": "CREATED"},
				{"userId": "g4", "state": "RETURNED"},
			},
		},
	})

	subs, err := client.ListSubmissions(context.Background(), "tok", "c1", "w1")
	require.NoError(t, err)
	require.Len(t, subs, 4)
	assert.Equal(t, 18.0, *subs[0].Grade)
	assert.Equal(t, 12.0, *subs[1].Grade)
	assert.Nil(t, subs[2].Grade)
	assert.Equal(t, 0.0, *subs[3].Grade)
}

func TestErrorsAreClassified(t *testing.T) {
	cases := []struct {
		status int
		want   *appErrors.Error
	}{
		{http.StatusUnauthorized, appErrors.ErrReauthRequired},
		{http.StatusForbidden, appErrors.ErrClassroomForbidden},
		{http.StatusBadRequest, appErrors.ErrExternal},
	}
	for _, tc := range cases {
		client, _ := newFakeClassroom(t, map[string]interface{}{"/v1/courses": tc.status})
		_, err := client.ListCourses(context.Background(), "tok")
		require.Error(t, err)
		assert.ErrorIsf(t, err, tc.want, "status %d", tc.status)
	}

	client, _ := newFakeClassroom(t, map[string]interface{}{})
	_, err := client.ListCoursework(context.Background(), "tok", "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestMissingTokenNeedsReauth(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.ListCourses(context.Background(), "")
	assert.ErrorIs(t, err, appErrors.ErrReauthRequired)
}
