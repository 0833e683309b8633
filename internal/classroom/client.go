// Package classroom is a read-only Google Classroom client scoped to the calls
// the gradebook needs: courses, coursework, rosters and submissions. Every call
// runs with the caller's OAuth access token.
package classroom

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	classroomv1 "google.golang.org/api/classroom/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/noah-isme/campus-gradebook-api/internal/roster"
	appErrors "github.com/noah-isme/campus-gradebook-api/pkg/errors"
)

// Config configures the client.
type Config struct {
	// Endpoint overrides the API base URL; empty uses Google's default.
	Endpoint string
	Timeout  time.Duration
	// Transport is the base round tripper; nil uses http.DefaultTransport.
	Transport http.RoundTripper
	Logger    *zap.Logger
}

// Course is an external classroom course.
type Course struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Section      string `json:"section,omitempty"`
	State        string `json:"state"`
	AlternateURL string `json:"alternate_link,omitempty"`
}

// Coursework is a gradable assignment in a course.
type Coursework struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	Title     string    `json:"title"`
	MaxPoints float64   `json:"max_points"`
	WorkType  string    `json:"work_type"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// Submission is one student's grade on a coursework. Grade is nil when the
// submission carries neither an assigned nor a draft grade.
type Submission struct {
	UserID string   `json:"user_id"`
	State  string   `json:"state"`
	Grade  *float64 `json:"grade"`
}

// Client talks to Google Classroom.
type Client struct {
	cfg    Config
	logger *zap.Logger
}

// NewClient constructs a client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, logger: logger}
}

func (c *Client) service(ctx context.Context, accessToken string) (*classroomv1.Service, error) {
	if accessToken == "" {
		return nil, appErrors.ErrReauthRequired
	}
	httpClient := &http.Client{
		Timeout: c.cfg.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
			Base:   c.cfg.Transport,
		},
	}
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.cfg.Endpoint))
	}
	svc, err := classroomv1.NewService(ctx, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrExternal.Code, appErrors.ErrExternal.Status, "failed to initialise Google Classroom client")
	}
	return svc, nil
}

// ListCourses returns the active courses visible to the token owner.
func (c *Client) ListCourses(ctx context.Context, accessToken string) ([]Course, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	courses := make([]Course, 0)
	err = svc.Courses.List().CourseStates("ACTIVE").PageSize(100).Pages(ctx, func(resp *classroomv1.ListCoursesResponse) error {
		for _, course := range resp.Courses {
			courses = append(courses, Course{
				ID:           course.Id,
				Name:         course.Name,
				Section:      course.Section,
				State:        course.CourseState,
				AlternateURL: course.AlternateLink,
			})
		}
		return nil
	})
	if err != nil {
		return nil, c.classify(err, "list courses")
	}
	return courses, nil
}

// ListCoursework returns the published coursework of a course.
func (c *Client) ListCoursework(ctx context.Context, accessToken, courseID string) ([]Coursework, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	items := make([]Coursework, 0)
	err = svc.Courses.CourseWork.List(courseID).CourseWorkStates("PUBLISHED").PageSize(100).Pages(ctx, func(resp *classroomv1.ListCourseWorkResponse) error {
		for _, cw := range resp.CourseWork {
			items = append(items, toCoursework(cw))
		}
		return nil
	})
	if err != nil {
		return nil, c.classify(err, "list coursework")
	}
	return items, nil
}

// GetCoursework loads one coursework item.
func (c *Client) GetCoursework(ctx context.Context, accessToken, courseID, courseworkID string) (*Coursework, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	cw, err := svc.Courses.CourseWork.Get(courseID, courseworkID).Context(ctx).Do()
	if err != nil {
		return nil, c.classify(err, "get coursework")
	}
	item := toCoursework(cw)
	return &item, nil
}

// ListStudents returns the course roster.
func (c *Client) ListStudents(ctx context.Context, accessToken, courseID string) ([]roster.ExternalStudent, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	students := make([]roster.ExternalStudent, 0)
	err = svc.Courses.Students.List(courseID).PageSize(100).Pages(ctx, func(resp *classroomv1.ListStudentsResponse) error {
		for _, s := range resp.Students {
			student := roster.ExternalStudent{UserID: s.UserId}
			if s.Profile != nil {
				student.Email = s.Profile.EmailAddress
				if s.Profile.Name != nil {
					student.FullName = s.Profile.Name.FullName
					student.GivenName = s.Profile.Name.GivenName
					student.FamilyName = s.Profile.Name.FamilyName
				}
			}
			students = append(students, student)
		}
		return nil
	})
	if err != nil {
		return nil, c.classify(err, "list students")
	}
	return students, nil
}

// ListSubmissions returns every student's submission for a coursework.
func (c *Client) ListSubmissions(ctx context.Context, accessToken, courseID, courseworkID string) ([]Submission, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	out := make([]Submission, 0)
	err = svc.Courses.CourseWork.StudentSubmissions.List(courseID, courseworkID).PageSize(100).Pages(ctx, func(resp *classroomv1.ListStudentSubmissionsResponse) error {
		for _, sub := range resp.StudentSubmissions {
			out = append(out, Submission{UserID: sub.UserId, State: sub.State, Grade: submissionGrade(sub)})
		}
		return nil
	})
	if err != nil {
		return nil, c.classify(err, "list submissions")
	}
	return out, nil
}

// submissionGrade prefers the assigned grade over the draft grade. The API
// omits zero grades, so a returned submission with no assigned grade counts
// as zero.
func submissionGrade(sub *classroomv1.StudentSubmission) *float64 {
	switch {
	case sub.AssignedGrade != 0 || sub.State == "RETURNED":
		grade := sub.AssignedGrade
		return &grade
	case sub.DraftGrade != 0:
		grade := sub.DraftGrade
		return &grade
	default:
		return nil
	}
}

func toCoursework(cw *classroomv1.CourseWork) Coursework {
	item := Coursework{
		ID:        cw.Id,
		CourseID:  cw.CourseId,
		Title:     cw.Title,
		MaxPoints: cw.MaxPoints,
		WorkType:  cw.WorkType,
		State:     cw.State,
	}
	if created, err := time.Parse(time.RFC3339Nano, cw.CreationTime); err == nil {
		item.CreatedAt = created.UTC()
	}
	return item
}

// classify maps transport errors onto the API's error codes.
func (c *Client) classify(err error, op string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized:
			return appErrors.Wrap(err, appErrors.ErrReauthRequired.Code, appErrors.ErrReauthRequired.Status, appErrors.ErrReauthRequired.Message)
		case http.StatusForbidden:
			return appErrors.Wrap(err, appErrors.ErrClassroomForbidden.Code, appErrors.ErrClassroomForbidden.Status, appErrors.ErrClassroomForbidden.Message)
		case http.StatusNotFound:
			return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "Google Classroom course or coursework not found")
		}
	}
	var tokenErr *oauth2.RetrieveError
	if errors.As(err, &tokenErr) {
		return appErrors.Wrap(err, appErrors.ErrReauthRequired.Code, appErrors.ErrReauthRequired.Status, appErrors.ErrReauthRequired.Message)
	}
	c.logger.Warn("google classroom request failed", zap.String("op", op), zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrExternal.Code, appErrors.ErrExternal.Status, fmt.Sprintf("Google Classroom %s failed: %v", op, err))
}
