package emailsvc

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"testing"

	"github.com/sendgrid/rest"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/darasa-lms/darasa/core"
	logsvc "github.com/darasa-lms/darasa/services/logger"
)

type sgPayload struct {
	From struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"from"`
	Personalizations []struct {
		Subject string `json:"subject"`
		To      []struct {
			Email string `json:"email"`
		} `json:"to"`
	} `json:"personalizations"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
	Attachments []struct {
		Filename string `json:"filename"`
	} `json:"attachments"`
	Categories   []string `json:"categories"`
	MailSettings *struct {
		SandboxMode *struct {
			Enable bool `json:"enable"`
		} `json:"sandbox_mode"`
	} `json:"mail_settings"`
}

func newTestSendgrid(t *testing.T, testMode bool) (*sendgridService, *observer.ObservedLogs) {
	t.Helper()
	obs, logs := observer.New(zapcore.DebugLevel)
	conf := &core.Config{
		AppName:          "Darasa",
		SendgridApiKey:   "SG.key",
		TestMode:         testMode,
		DefaultFromEmail: mail.Address{Address: "no-reply@darasa.test"},
	}
	svc := NewSendgridService(conf, logsvc.NewZapLogger(zap.New(obs))).(*sendgridService)
	svc.backoff = 0
	return svc, logs
}

func decodePayload(t *testing.T, svc *sendgridService, msg core.EmailMessage) sgPayload {
	t.Helper()
	var p sgPayload
	require.NoError(t, json.Unmarshal(sgmail.GetRequestBody(svc.prepare(msg)), &p))
	return p
}

func Test_sendgridService_prepare(t *testing.T) {
	to := []mail.Address{{Name: "Stu", Address: "stu@test.cd"}}

	t.Run("templated", func(t *testing.T) {
		svc, _ := newTestSendgrid(t, false)
		p := decodePayload(t, svc, core.EmailMessage{
			To:           to,
			Subject:      "Welcome",
			TemplateName: "enrollment_confirmation",
			TextContent:  "hello",
			HTMLContent:  "<p>hello</p>",
			Attachments: []core.Attachment{
				{Content: bytes.NewBufferString("aGVsbG8="), ContentType: "text/plain", Filename: "hello.txt"},
			},
		})

		assert.Equal(t, "Darasa", p.From.Name)
		assert.Equal(t, "no-reply@darasa.test", p.From.Email)
		require.Len(t, p.Personalizations, 1)
		assert.Equal(t, "[Darasa] Welcome", p.Personalizations[0].Subject)
		assert.Equal(t, "stu@test.cd", p.Personalizations[0].To[0].Email)
		if assert.Len(t, p.Content, 2) {
			assert.Equal(t, "text/plain", p.Content[0].Type)
			assert.Equal(t, "text/html", p.Content[1].Type)
		}
		assert.Len(t, p.Attachments, 1)
		assert.Equal(t, []string{"Darasa", "enrollment_confirmation"}, p.Categories)
		assert.Nil(t, p.MailSettings)
	})

	tests := []struct {
		name        string
		testMode    bool
		msg         core.EmailMessage
		wantTypes   []string
		wantSandbox bool
	}{
		{name: "text only", msg: core.EmailMessage{To: to, TextContent: "plain"}, wantTypes: []string{"text/plain"}},
		{name: "html only", msg: core.EmailMessage{To: to, HTMLContent: "<b>x</b>"}, wantTypes: []string{"text/html"}},
		{name: "sandbox in test mode", testMode: true, msg: core.EmailMessage{To: to, TextContent: "plain"}, wantTypes: []string{"text/plain"}, wantSandbox: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestSendgrid(t, tt.testMode)
			p := decodePayload(t, svc, tt.msg)

			types := make([]string, 0, len(p.Content))
			for _, c := range p.Content {
				types = append(types, c.Type)
			}
			assert.Equal(t, tt.wantTypes, types)
			if tt.wantSandbox {
				require.NotNil(t, p.MailSettings)
				require.NotNil(t, p.MailSettings.SandboxMode)
				assert.True(t, p.MailSettings.SandboxMode.Enable)
			} else {
				assert.Nil(t, p.MailSettings)
			}
		})
	}
}

func Test_sendgridService_send(t *testing.T) {
	msg := core.EmailMessage{To: []mail.Address{{Address: "stu@test.cd"}}, TextContent: "hi"}

	tests := []struct {
		name         string
		responses    []int
		apiErr       error
		wantErr      bool
		wantAttempts int
	}{
		{name: "accepted", responses: []int{http.StatusAccepted}, wantAttempts: 1},
		{name: "retries server errors", responses: []int{http.StatusServiceUnavailable, http.StatusTooManyRequests, http.StatusAccepted}, wantAttempts: 3},
		{name: "gives up", responses: []int{http.StatusBadGateway, http.StatusBadGateway, http.StatusBadGateway}, wantErr: true, wantAttempts: 3},
		{name: "client error is final", responses: []int{http.StatusBadRequest}, wantErr: true, wantAttempts: 1},
		{name: "transport error", apiErr: errors.New("connection refused"), wantErr: true, wantAttempts: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestSendgrid(t, false)
			attempts := 0
			svc.api = func(req rest.Request) (*rest.Response, error) {
				attempts++
				assert.Equal(t, rest.Method(http.MethodPost), req.Method)
				assert.Equal(t, "Bearer SG.key", req.Headers["Authorization"])
				if tt.apiErr != nil {
					return nil, tt.apiErr
				}
				return &rest.Response{StatusCode: tt.responses[attempts-1], Body: "{}"}, nil
			}

			err := svc.send(msg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantAttempts, attempts)
		})
	}
}

func Test_sendgridService_SendMessages_noKey(t *testing.T) {
	svc, logs := newTestSendgrid(t, false)
	svc.key = ""
	svc.api = func(rest.Request) (*rest.Response, error) {
		t.Fatal("api must not be called without a key")
		return nil, nil
	}

	svc.SendMessages(&core.EmailMessage{To: []mail.Address{{Address: "stu@test.cd"}}, TextContent: "hi"})

	entries := logs.FilterLevelExact(zapcore.WarnLevel).All()
	if assert.Len(t, entries, 1) {
		assert.Contains(t, entries[0].Message, "sendgrid api key is not set")
	}
}
