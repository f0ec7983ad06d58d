package middleware

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type redeemRequest struct {
	Amount json.Number `json:"amount"`
}

// redeemEcho отвечает суммой из тела запроса, как обработчик погашения.
func redeemEcho(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]json.Number{"original_amount": req.Amount})
}

func gzipBytes(t *testing.T, s string) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return &buf
}

func gunzip(t *testing.T, r io.Reader) []byte {
	t.Helper()

	gr, err := gzip.NewReader(r)
	require.NoError(t, err)
	defer gr.Close()

	data, err := io.ReadAll(gr)
	require.NoError(t, err)
	return data
}

func TestGzipMiddleware_Redeem(t *testing.T) {
	tests := []struct {
		name           string
		compressBody   bool
		acceptGzip     bool
		wantEncoding   string
		wantStatusCode int
	}{
		{name: "plain request, plain response", wantStatusCode: http.StatusOK},
		{name: "plain request, gzip response", acceptGzip: true, wantEncoding: "gzip", wantStatusCode: http.StatusOK},
		{name: "gzip request, plain response", compressBody: true, wantStatusCode: http.StatusOK},
		{name: "gzip request, gzip response", compressBody: true, acceptGzip: true, wantEncoding: "gzip", wantStatusCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const payload = `{"amount": 99.99}`

			var body io.Reader = strings.NewReader(payload)
			if tt.compressBody {
				body = gzipBytes(t, payload)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/codes/QR-0123456789ABCDEF/redeem", body)
			req.Header.Set("Content-Type", "application/json")
			if tt.compressBody {
				req.Header.Set("Content-Encoding", "gzip")
			}
			if tt.acceptGzip {
				req.Header.Set("Accept-Encoding", "gzip")
			}

			w := httptest.NewRecorder()
			GzipMiddleware(http.HandlerFunc(redeemEcho)).ServeHTTP(w, req)

			res := w.Result()
			defer res.Body.Close()

			require.Equal(t, tt.wantStatusCode, res.StatusCode)
			assert.Equal(t, tt.wantEncoding, res.Header.Get("Content-Encoding"))
			assert.Equal(t, "application/json", res.Header.Get("Content-Type"))

			var data []byte
			if tt.wantEncoding == "gzip" {
				data = gunzip(t, res.Body)
			} else {
				var err error
				data, err = io.ReadAll(res.Body)
				require.NoError(t, err)
			}
			assert.JSONEq(t, `{"original_amount": 99.99}`, string(data))
		})
	}
}

func TestGzipMiddleware_NoBodyStatuses(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
	}{
		{
			name:    "no content",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) },
			status:  http.StatusNoContent,
		},
		{
			name:    "not modified",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotModified) },
			status:  http.StatusNotModified,
		},
		{
			name:    "nothing written",
			handler: func(w http.ResponseWriter, r *http.Request) {},
			status:  http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/user/codes", nil)
			req.Header.Set("Accept-Encoding", "gzip")

			w := httptest.NewRecorder()
			GzipMiddleware(tt.handler).ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Empty(t, w.Header().Get("Content-Encoding"))
			assert.Zero(t, w.Body.Len())
		})
	}
}

func TestGzipMiddleware_KeepsExistingEncoding(t *testing.T) {
	payload := gzipBytes(t, "go_goroutines 7\n").Bytes()

	h := GzipMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(payload)
	}))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	assert.Equal(t, "go_goroutines 7\n", string(gunzip(t, w.Body)))
}

func TestGzipMiddleware_MalformedRequestBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/codes/QR-0123456789ABCDEF/redeem", strings.NewReader(`{"amount": 1}`))
	req.Header.Set("Content-Encoding", "gzip")
	w := httptest.NewRecorder()

	GzipMiddleware(http.HandlerFunc(redeemEcho)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
