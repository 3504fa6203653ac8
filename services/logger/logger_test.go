package logsvc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/darasa-lms/darasa/core/user"
)

func TestZapLogger_fields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := NewZapLogger(zap.New(core))

	err := errors.New("boom")
	usr := user.User{ID: "u1", Username: "jdoe"}
	logger.Error("saving course", err, map[string]interface{}{"course_id": "c1"}, usr)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		ctx := entries[0].ContextMap()
		assert.Equal(t, "saving course", entries[0].Message)
		assert.Equal(t, "boom", ctx["error"])
		assert.Equal(t, "c1", ctx["course_id"])
		assert.Equal(t, "u1", ctx["user_id"])
		assert.Equal(t, "jdoe", ctx["username"])
	}
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger := RollbarLogger{zl: zap.NewNop()}
	usr := user.User{ID: "u1", Username: "jdoe"}
	err := errors.New("boom")

	args := logger.prepare("msg", []interface{}{err, usr, user.User{ID: "u2"}})
	assert.Equal(t, []interface{}{"msg", err}, args)
}
