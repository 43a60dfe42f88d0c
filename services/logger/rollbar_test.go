package logsvc

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/campusboard/core"
	"github.com/trezcool/campusboard/core/auth"
	"github.com/trezcool/campusboard/core/user"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), core.NewTestConfig())
	logger.Enable(false)

	boom := errors.New("boom")
	extras := map[string]interface{}{"notice_id": "n1"}

	t.Run("people are not forwarded as args", func(t *testing.T) {
		var claims *auth.Claims
		args := logger.prepare("msg", []interface{}{boom, user.User{ID: "u1"}, claims, extras})
		assert.Equal(t, []interface{}{"msg", boom, extras}, args)
	})

	t.Run("prints to the std logger", func(t *testing.T) {
		logger.Error("deleting notice", boom)
		assert.Equal(t, "deleting notice\nboom\n", buf.String())
	})
}
