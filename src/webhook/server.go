/*
Copyright (c) YugabyteDB, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/yugabyte/yb-tokenizer/src/errs"
	"github.com/yugabyte/yb-tokenizer/src/pipeline"
	"github.com/yugabyte/yb-tokenizer/src/trigger"
)

const (
	MAX_EVENT_SIZE  = 1024 * 1024
	shutdownTimeout = 30 * time.Second
)

type Runner interface {
	RunEach(ctx context.Context, events []trigger.Event, parallelism int) []pipeline.Outcome
}

// Server accepts trigger documents over HTTP and runs one invocation per
// announced event before responding.
type Server struct {
	runner      Runner
	parallelism int
	router      *gin.Engine
}

func NewServer(runner Runner, parallelism int) *Server {
	s := &Server{runner: runner, parallelism: parallelism}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.GET("/healthz", s.Health)
	router.POST("/events", s.HandleEvents)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router = router
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then drains in-flight
// invocations.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening for events on %s", addr)
		errCh <- server.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
	}
	log.Infof("shutting down event server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown event server: %w", err)
	}
	return nil
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

type invocationResponse struct {
	Container    string `json:"container"`
	Key          string `json:"key"`
	InvocationID string `json:"invocation_id,omitempty"`
	OutputKey    string `json:"output_key,omitempty"`
	RowsWritten  int64  `json:"rows_written"`
	RowsSkipped  int64  `json:"rows_skipped"`
	Values       int64  `json:"values"`
	FailedStep   string `json:"failed_step,omitempty"`
	Error        string `json:"error,omitempty"`
}

// HandleEvents runs the invocations announced by the request body. The
// response status is 200 when every invocation succeeded, otherwise the
// status of the most severe failure.
func (s *Server) HandleEvents(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, MAX_EVENT_SIZE+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("read body: %v", err)})
		return
	}
	if len(body) > MAX_EVENT_SIZE {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("event document is larger than %d bytes", MAX_EVENT_SIZE)})
		return
	}
	events, err := trigger.Parse(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusOK
	responses := make([]invocationResponse, 0, len(events))
	for _, o := range s.runner.RunEach(c.Request.Context(), events, s.parallelism) {
		resp := invocationResponse{Container: o.Event.Container, Key: o.Event.Key}
		if o.Err != nil {
			resp.Error = o.Err.Error()
			var pErr *errs.PipelineError
			if errors.As(o.Err, &pErr) {
				resp.InvocationID = pErr.InvocationID()
				resp.FailedStep = pErr.FailedStep()
			}
			status = max(status, StatusFor(o.Err))
		} else {
			resp.InvocationID = o.Result.InvocationID
			resp.OutputKey = o.Result.OutputKey
			resp.RowsWritten = o.Result.Stats.RowsWritten
			resp.RowsSkipped = o.Result.Stats.RowsSkipped
			resp.Values = o.Result.Stats.ValuesTransformed
		}
		responses = append(responses, resp)
	}
	c.JSON(status, gin.H{"invocations": responses})
}

// StatusFor maps a failed invocation to an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errs.IsUserError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrObjectNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Infof("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
