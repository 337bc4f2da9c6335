package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/finsights-backend/internal/domain/documents"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{types.Duplicatef("create", "pdf_url_sha256 abc already tracked by t1"), http.StatusConflict},
		{types.Errorf(types.CodeConstraintViolation, "create", "duplicate company_name"), http.StatusUnprocessableEntity},
		{types.Errorf(types.CodeConstraintViolation, "create", "company_name is required"), http.StatusUnprocessableEntity},
		{types.Errorf(types.CodeNotFound, "get", "missing"), http.StatusNotFound},
		{types.Errorf(types.CodeInvalidStatus, "transition", "bad"), http.StatusBadRequest},
		{types.Errorf(types.CodeIllegalTransition, "transition", "bad"), http.StatusConflict},
		{types.Errorf(types.CodeConflict, "transition", "stale"), http.StatusConflict},
		{types.Errorf(types.CodeBusy, "transition", "locked"), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := StatusFor(tc.err); got != tc.want {
			t.Fatalf("%v: want=%d got=%d", tc.err, tc.want, got)
		}
	}
}

func TestRespondAPIErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	RespondAPIError(c, types.Errorf(types.CodeBusy, "transition", "locked"))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: want=503 got=%d", rec.Code)
	}
	var env ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "busy" || env.Error.Message == "" {
		t.Fatalf("envelope: %+v", env)
	}
	if code, _ := c.Get("error_code"); code != "busy" {
		t.Fatalf("error_code on context: %v", code)
	}
}
