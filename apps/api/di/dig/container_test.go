package dig_container

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/campusboard/apps/api/echo"
	"github.com/trezcool/campusboard/core"
	"github.com/trezcool/campusboard/storage/database"
)

func TestNew(t *testing.T) {
	c := New(core.NewTestConfig)

	err := c.Invoke(func(repos *database.Repositories, server echoapi.Server, mailSvc core.EmailService) {
		defer repos.Close()
		assert.Nil(t, repos.SQL, "the test config runs on the in-memory engine")
		assert.NotNil(t, mailSvc)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "API is running", rec.Body.String())
	})
	require.NoError(t, err)
}
