package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/upi-transfer-backend/internal/platform/apierr"
)

type bindTarget struct {
	PayerVPA string `json:"payer_vpa" binding:"required"`
	Remarks  string `json:"remarks" binding:"max=3"`
}

func bindBody(t *testing.T, body string) error {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	var dst bindTarget
	return bindJSON(c, &dst)
}

func TestBindJSONErrors(t *testing.T) {
	cases := []struct {
		body  string
		code  string
		msg   string
		field string
		fmsg  string
	}{
		{"", apierr.CodeInvalidBody, "Request body is required", "", ""},
		{"{", apierr.CodeInvalidBody, "Invalid JSON format", "", ""},
		{`{"payer_vpa":true}`, apierr.CodeInvalidBody, "Invalid JSON format", "", ""},
		{`{}`, apierr.CodeValidation, "Invalid request parameters", "payer_vpa", "payer_vpa is required"},
		{`{"payer_vpa":"a@sbi","remarks":"long"}`, apierr.CodeValidation, "Invalid request parameters", "remarks", "remarks must be at most 3 characters"},
	}
	for _, tc := range cases {
		err := bindBody(t, tc.body)
		if err == nil {
			t.Fatalf("body %q: expected error", tc.body)
		}
		ae, ok := err.(*apierr.Error)
		if !ok {
			t.Fatalf("body %q: want *apierr.Error got %T", tc.body, err)
		}
		if ae.Code != tc.code || ae.Error() != tc.msg {
			t.Fatalf("body %q: got code=%s msg=%q", tc.body, ae.Code, ae.Error())
		}
		if tc.field != "" {
			if len(ae.Fields) != 1 || ae.Fields[0].Field != tc.field || ae.Fields[0].Message != tc.fmsg {
				t.Fatalf("body %q: fields=%+v", tc.body, ae.Fields)
			}
		}
	}
}

func TestBindJSONOK(t *testing.T) {
	if err := bindBody(t, `{"payer_vpa":"a@sbi"}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
