// Package server - HTTP surface for reading plates.
package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-alpr/images"
	"github.com/nvr-ai/go-alpr/logger"
	"github.com/nvr-ai/go-alpr/plate"
	"github.com/nvr-ai/go-alpr/profiler"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// DefaultMaxBodyBytes caps a read request when no limit is configured.
const DefaultMaxBodyBytes int64 = 10 << 20

// Option tunes a Server.
type Option func(*Server)

// WithMaxBodyBytes caps the size of a read request body. Non-positive keeps the default.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// Reader reads the plate in one image.
type Reader interface {
	Read(ctx context.Context, img image.Image) (*plate.Plate, error)
}

// Server serves the plate API.
type Server struct {
	reader Reader
	log    *zap.Logger
	prof    *profiler.Profiler
	engine  *gin.Engine
	maxBody int64
}

// New builds the routes around reader.
func New(reader Reader, log *zap.Logger, opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{reader: reader, log: logger.Or(log).Named("server"), engine: gin.New(), maxBody: DefaultMaxBodyBytes}
	for _, opt := range opts {
		opt(s)
	}
	s.engine.MaxMultipartMemory = s.maxBody
	s.prof = profiler.New(profiler.Options{Logger: s.log})
	s.engine.Use(gin.Recovery(), s.requestLog())

	api := s.engine.Group("/api")
	api.GET("/ping", s.ping)
	api.GET("/stats", s.stats)
	api.POST("/plates", s.readPlate)
	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	s.prof.Start(ctx)
	defer s.prof.Stop()

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Header(RequestIDHeader, id)
		c.Set(RequestIDHeader, id)

		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("request_id", id),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.String()))
		}
		s.log.Info("request", fields...)
	}
}

func (s *Server) ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, s.prof.Snapshot())
}

// imageRequest is the JSON form of a read request.
type imageRequest struct {
	// Image is base64, optionally as a data URL.
	Image string `json:"image" binding:"required"`
}

func (s *Server) readPlate(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBody)

	data, err := requestImage(c)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.Error(err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	img, err := images.Decode(bytes.NewReader(data))
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	done := s.prof.StartOperation("read")
	p, err := s.reader.Read(c.Request.Context(), img)
	done()
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	found := 0.0
	if p != nil {
		found = 1
	}
	s.prof.RecordMetric("plates", found)
	c.JSON(http.StatusOK, gin.H{"plate": NewPlateResponse(p)})
}

// requestImage accepts a multipart "image" file or a JSON body.
func requestImage(c *gin.Context) ([]byte, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("image")
		if err != nil {
			return nil, errors.Wrap(err, "image form file")
		}
		f, err := fh.Open()
		if err != nil {
			return nil, errors.Wrap(err, "open upload")
		}
		defer f.Close()
		return io.ReadAll(f)
	}

	var req imageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, errors.Wrap(err, "bind request")
	}
	return decodeBase64(req.Image)
}

func decodeBase64(s string) ([]byte, error) {
	if i := strings.Index(s, ","); i != -1 && strings.HasPrefix(s, "data:") {
		s = s[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "decode base64 image")
	}
	return data, nil
}
