package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSON(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         any
		expectedBody string
	}{
		{
			name:         "error body",
			status:       http.StatusMethodNotAllowed,
			body:         Error("Method Not Allowed"),
			expectedBody: `{"error":"Method Not Allowed"}`,
		},
		{
			name:         "payment url body",
			status:       http.StatusOK,
			body:         PaymentURL("https://pay.example/abc"),
			expectedBody: `{"paymentUrl":"https://pay.example/abc"}`,
		},
		{
			name:         "status body",
			status:       http.StatusOK,
			body:         StatusResponse{Status: "ok"},
			expectedBody: `{"status":"ok"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			w := httptest.NewRecorder()

			JSON(w, req, tt.status, tt.body)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}
