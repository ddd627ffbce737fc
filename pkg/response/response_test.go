package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Success(c, gin.H{"id": 1})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "success", resp.Message)
}

func TestError(t *testing.T) {
	t.Run("业务错误原样返回", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		Error(c, apperrors.New(apperrors.ErrCodeUnavailable, "This book is currently not available."))

		resp := decode(t, w)
		assert.Equal(t, apperrors.ErrCodeUnavailable, resp.Code)
		assert.Equal(t, "This book is currently not available.", resp.Message)
		assert.Nil(t, resp.Data)
	})

	t.Run("内部原因不返回给客户端", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		Error(c, apperrors.WithCode(apperrors.ErrCodeStorage, errors.New("dial tcp 10.0.0.3:3306"), "Database error occurred."))

		resp := decode(t, w)
		assert.Equal(t, apperrors.ErrCodeStorage, resp.Code)
		assert.NotContains(t, w.Body.String(), "10.0.0.3")
	})
}

func TestNewPageData(t *testing.T) {
	page := NewPageData([]int{1, 2}, 21, 1, 10)
	assert.Equal(t, 3, page.TotalPages)

	empty := NewPageData(nil, 0, 1, 0)
	assert.Equal(t, 0, empty.TotalPages)
}
