// Package gatewaysvc implements grade.Gateway over the grade REST API.
package gatewaysvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
)

const (
	DefaultTimeout = 10 * time.Second

	HeaderRequestID = "X-Request-ID"
)

// Error is returned for every non 2xx response.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Fields     map[string]string // set on validation errors
}

func (e *Error) Error() string {
	return e.Message
}

// IsNotFound reports whether err is a 404 Error.
func IsNotFound(err error) bool {
	gwErr, ok := errors.Cause(err).(*Error)
	return ok && gwErr.StatusCode == http.StatusNotFound
}

type Options struct {
	BaseURL    string // e.g. http://localhost:8000/v1
	Token      string // bearer token
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     core.Logger
}

type Client struct {
	baseURL string
	token   string
	rc      *rest.Client
	logger  core.Logger
}

var _ grade.Gateway = (*Client)(nil)

func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = core.NopLogger()
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		rc:      &rest.Client{HTTPClient: httpClient},
		logger:  logger,
	}
}

func NewFromConfig(conf *core.Config, logger core.Logger) *Client {
	return New(Options{
		BaseURL: conf.Gateway.BaseURL,
		Token:   conf.Gateway.Token,
		Timeout: conf.Gateway.Timeout,
		Logger:  logger,
	})
}

func (c *Client) FetchGrades(ctx context.Context, filter grade.QueryFilter) ([]grade.Grade, error) {
	filter.Clean()
	params := make(map[string]string)
	if filter.Subject != "" {
		params["subject"] = filter.Subject
	}
	if filter.StudentID != 0 {
		params["student_id"] = strconv.Itoa(filter.StudentID)
	}
	if filter.AssignmentType != "" {
		params["assignment_type"] = filter.AssignmentType
	}
	if filter.ExamType != "" {
		params["exam_type"] = filter.ExamType
	}

	var grades []grade.Grade
	if err := c.do(ctx, "fetch grades", rest.Get, "/grades", params, nil, &grades); err != nil {
		return nil, err
	}
	if grades == nil {
		c.logger.Warn("gateway: fetch grades: null body")
		grades = make([]grade.Grade, 0)
	}
	return grades, nil
}

func (c *Client) CreateGrade(ctx context.Context, ng grade.NewGrade) (grade.Grade, error) {
	var grd grade.Grade
	err := c.do(ctx, "create grade", rest.Post, "/grades", nil, ng, &grd)
	return grd, err
}

func (c *Client) UpdateGrade(ctx context.Context, id int, ug grade.UpdateGrade) (grade.Grade, error) {
	var grd grade.Grade
	err := c.do(ctx, "update grade", rest.Patch, "/grades/"+strconv.Itoa(id), nil, ug, &grd)
	return grd, err
}

func (c *Client) DeleteGrade(ctx context.Context, id int) error {
	return c.do(ctx, "delete grade", rest.Delete, "/grades/"+strconv.Itoa(id), nil, nil, nil)
}

func (c *Client) FetchStudents(ctx context.Context) ([]grade.EnrolledStudent, error) {
	var payload []studentPayload
	if err := c.do(ctx, "fetch students", rest.Get, "/students", nil, nil, &payload); err != nil {
		return nil, err
	}
	students := make([]grade.EnrolledStudent, 0, len(payload))
	for _, sp := range payload {
		students = append(students, sp.normalize())
	}
	return students, nil
}

func (c *Client) do(ctx context.Context, op string, method rest.Method, path string, params map[string]string, body, out interface{}) error {
	req := rest.Request{
		Method:      method,
		BaseURL:     c.baseURL + path,
		Headers:     map[string]string{"Accept": "application/json"},
		QueryParams: params,
	}
	if c.token != "" {
		req.Headers["Authorization"] = "Bearer " + c.token
	}
	if method != rest.Get {
		req.Headers[HeaderRequestID] = uuid.New().String()
	}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "%s: encoding body", op)
		}
		req.Body = data
	}

	resp, err := c.rc.SendWithContext(ctx, req)
	if err != nil {
		return errors.Wrap(err, op)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.newError(op, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err = json.Unmarshal([]byte(resp.Body), out); err != nil {
		return errors.Wrapf(err, "%s: decoding response", op)
	}
	return nil
}

// newError reads either {"error": "msg"} or a {"field": "msg"} map of validation errors.
func (c *Client) newError(op string, resp *rest.Response) *Error {
	gwErr := &Error{Op: op, StatusCode: resp.StatusCode}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(resp.Body), &payload); err != nil || len(payload) == 0 {
		gwErr.Message = strings.TrimSpace(resp.Body)
		if gwErr.Message == "" {
			gwErr.Message = http.StatusText(resp.StatusCode)
		}
		return gwErr
	}
	if msg, ok := payload["error"]; ok && len(payload) == 1 {
		gwErr.Message = fmt.Sprint(msg)
		return gwErr
	}

	gwErr.Fields = make(map[string]string, len(payload))
	msgs := make([]string, 0, len(payload))
	for field, msg := range payload {
		gwErr.Fields[field] = fmt.Sprint(msg)
		msgs = append(msgs, field+": "+fmt.Sprint(msg))
	}
	sort.Strings(msgs)
	gwErr.Message = strings.Join(msgs, "; ")
	return gwErr
}
