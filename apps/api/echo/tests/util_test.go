package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/darasa-lms/darasa/apps/api/echo"
	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/user"
	"github.com/darasa-lms/darasa/services/tokenstore"
	"github.com/darasa-lms/darasa/services/upload"
	"github.com/darasa-lms/darasa/tests"
)

var errMissingToken = "missing or malformed jwt"

func setup(t *testing.T) (*echoapi.Server, *testutil.Env) {
	t.Helper()
	env := testutil.NewEnv(t)
	env.Conf.Upload.Dir = t.TempDir()

	_, translator := testutil.Validator()

	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       env.Conf,
		Logger:     env.Logger,
		Validate:   env.Validate,
		Translator: translator,
		Tokens:     tokenstore.NewMemoryStore(),

		UserSvc:       env.UserSvc,
		CourseSvc:     env.CourseSvc,
		EnrollmentSvc: env.EnrollmentSvc,
		ProgressSvc:   env.ProgressSvc,
		GradingSvc:    env.GradingSvc,
		ReviewSvc:     env.ReviewSvc,
		BlogSvc:       env.BlogSvc,
		EventSvc:      env.EventSvc,
		DashboardSvc:  env.DashboardSvc,
		UploadSvc:     upload.NewService(env.Conf.Upload, env.Logger),
	})
	return app, env
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantMsg  string
}

// apiResponse mirrors echoapi.Response with the data left undecoded.
type apiResponse struct {
	Success          bool                `json:"success"`
	Message          string              `json:"message"`
	Data             json.RawMessage     `json:"data"`
	ValidationErrors map[string][]string `json:"validationErrors"`
}

type page struct {
	Items json.RawMessage `json:"items"`
	Total int64           `json:"total"`
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	token, err := echoapi.GenerateToken(conf, echoapi.NewClaims(conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

// call serves one request and decodes the response envelope.
func call(t *testing.T, app http.Handler, method, path, token string, body interface{}) (int, apiResponse) {
	t.Helper()
	var data []byte
	if body != nil {
		data = marchallObj(t, body)
	}
	req, rec := newAuthRequest(method, path, token, data)
	app.ServeHTTP(rec, req)
	return rec.Code, decodeResponse(t, rec)
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	if rec.Body.Len() == 0 {
		return resp
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
	return resp
}

// decodeData unmarshals the data of resp into dst.
func decodeData(t *testing.T, resp apiResponse, dst interface{}) {
	t.Helper()
	require.NotEmpty(t, resp.Data, "no data in response: %+v", resp)
	require.NoError(t, json.Unmarshal(resp.Data, dst))
}

func decodePage(t *testing.T, resp apiResponse, items interface{}) int64 {
	t.Helper()
	var p page
	decodeData(t, resp, &p)
	require.NoError(t, json.Unmarshal(p.Items, items))
	return p.Total
}

func runHTTPTests(t *testing.T, app http.Handler, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndMessage(t, tt, rec)
		})
	}
}

func checkCodeAndMessage(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, "body %s", rec.Body.String())
	if tt.wantMsg != "" {
		resp := decodeResponse(t, rec)
		assert.Equal(t, tt.wantMsg, resp.Message)
		assert.False(t, resp.Success)
	}
}
