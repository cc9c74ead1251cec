package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nvr-ai/go-alpr/boxes"
	"github.com/nvr-ai/go-alpr/plate"
)

type fakeReader struct {
	plate *plate.Plate
	err   error
	seen  image.Point
}

func (f *fakeReader) Read(_ context.Context, img image.Image) (*plate.Plate, error) {
	f.seen = img.Bounds().Size()
	return f.plate, f.err
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, imaging.New(w, h, color.White)))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "car.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/plates", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func samplePlate() *plate.Plate {
	return &plate.Plate{
		Rect: boxes.FromCoordinates(boxes.LTRBAbs, [4]float64{10, 20, 110, 60}),
		Symbols: []plate.Symbol{
			{ID: 10, Rect: boxes.FromCoordinates(boxes.LTRBAbs, [4]float64{1, 2, 11, 32}), Score: 0.75},
			{ID: 3, Rect: boxes.FromCoordinates(boxes.LTRBAbs, [4]float64{12, 2, 22, 32}), Score: 0.5},
		},
	}
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestPing(t *testing.T) {
	rec := serve(New(&fakeReader{}, nil), httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"pong"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestReadPlateMultipart(t *testing.T) {
	reader := &fakeReader{plate: samplePlate()}
	rec := serve(New(reader, nil), multipartRequest(t, "image", pngBytes(t, 40, 30)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, image.Pt(40, 30), reader.seen)

	var got struct {
		Plate *PlateResponse `json:"plate"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.NotNil(t, got.Plate)
	assert.Equal(t, "A3", got.Plate.Text)
	assert.Equal(t, [4]float64{10, 20, 110, 60}, got.Plate.Rect)
	require.Len(t, got.Plate.Symbols, 2)
	assert.Equal(t, SymbolResponse{ID: 10, Char: "A", Rect: [4]float64{1, 2, 11, 32}, Score: 0.75}, got.Plate.Symbols[0])
}

func TestReadPlateBase64(t *testing.T) {
	reader := &fakeReader{}
	s := New(reader, nil)

	for _, prefix := range []string{"", "data:image/png;base64,"} {
		body, err := json.Marshal(map[string]string{"image": prefix + base64.StdEncoding.EncodeToString(pngBytes(t, 8, 6))})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/plates", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		rec := serve(s, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"plate":null}`, rec.Body.String())
		assert.Equal(t, image.Pt(8, 6), reader.seen)
	}
}

func TestReadPlateBadRequests(t *testing.T) {
	s := New(&fakeReader{}, nil)

	rec := serve(s, multipartRequest(t, "photo", pngBytes(t, 4, 4)))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "Missing image field")

	rec = serve(s, multipartRequest(t, "image", []byte("garbage")))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "Undecodable image")

	req := httptest.NewRequest(http.MethodPost, "/api/plates", bytes.NewReader([]byte(`{"image":"%%%"}`)))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, serve(s, req).Code, "Invalid base64")

	req = httptest.NewRequest(http.MethodPost, "/api/plates", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, serve(s, req).Code, "Missing image")
}

func TestReadPlateBodyLimit(t *testing.T) {
	reader := &fakeReader{}
	s := New(reader, nil, WithMaxBodyBytes(64))

	body, err := json.Marshal(map[string]string{"image": base64.StdEncoding.EncodeToString(pngBytes(t, 32, 32))})
	require.NoError(t, err)
	require.Greater(t, len(body), 64)

	req := httptest.NewRequest(http.MethodPost, "/api/plates", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(s, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())

	rec = serve(s, multipartRequest(t, "image", pngBytes(t, 32, 32)))
	assert.GreaterOrEqual(t, rec.Code, http.StatusBadRequest, "Oversized uploads are rejected")
	assert.Equal(t, image.Point{}, reader.seen, "The reader never sees an oversized image")

	small := New(&fakeReader{}, nil, WithMaxBodyBytes(0))
	assert.Equal(t, DefaultMaxBodyBytes, small.maxBody)
}

func TestReadPlateReaderError(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := New(&fakeReader{err: errors.New("model unavailable")}, zap.New(core))

	req := multipartRequest(t, "image", pngBytes(t, 4, 4))
	req.Header.Set(RequestIDHeader, "req-1")
	rec := serve(s, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "model unavailable")
	assert.Equal(t, "req-1", rec.Header().Get(RequestIDHeader))

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "req-1", ctx["request_id"])
	assert.Equal(t, int64(http.StatusInternalServerError), ctx["status"])
	assert.Contains(t, ctx["error"], "model unavailable")
}

func TestRunShutsDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(&fakeReader{}, nil).Run(ctx, "127.0.0.1:0") }()

	cancel()
	assert.NoError(t, <-done)
}

func TestStats(t *testing.T) {
	s := New(&fakeReader{plate: samplePlate()}, nil)
	require.Equal(t, http.StatusOK, serve(s, multipartRequest(t, "image", pngBytes(t, 4, 4))).Code)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats struct {
		Operations map[string]struct {
			Count int64 `json:"count"`
		} `json:"operations"`
		Metrics map[string]struct {
			Mean float64 `json:"mean"`
		} `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.Operations["read"].Count)
	assert.Equal(t, 1.0, stats.Metrics["plates"].Mean)
}

func TestNewPlateResponseNil(t *testing.T) {
	assert.Nil(t, NewPlateResponse(nil))

	empty := NewPlateResponse(&plate.Plate{Rect: boxes.FromCoordinates(boxes.LTRBAbs, [4]float64{1, 2, 3, 4})})
	require.NotNil(t, empty)
	assert.Equal(t, "", empty.Text)
	assert.Empty(t, empty.Symbols)
}
