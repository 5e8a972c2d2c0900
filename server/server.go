// Package server 通过 HTTP 暴露状态记录与手动触发入口。
package server

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/mengeric/scrape-trigger-go/logging"
	"github.com/mengeric/scrape-trigger-go/metrics"
	"github.com/mengeric/scrape-trigger-go/status"
)

// Runner 由 trigger.Orchestrator 实现。
type Runner interface {
	Run(ctx context.Context) error
	Status(ctx context.Context) (status.JobStatus, error)
	JobName() string
}

// Options 服务参数。
type Options struct {
	// Token 非空时 POST /run 需要 Authorization: Bearer <Token>。
	Token string
}

// Server 基于 fiber 的 HTTP 服务。
type Server struct {
	app    *fiber.App
	runner Runner
	opt    Options
}

// New 创建服务并挂载路由：GET /status、POST /run、GET /healthz。
func New(r Runner, opt Options) *Server {
	s := &Server{app: fiber.New(fiber.Config{DisableStartupMessage: true}), runner: r, opt: opt}
	s.app.Use(requestLogger)
	s.app.Get("/status", s.handleStatus)
	s.app.Post("/run", s.requireToken, s.handleRun)
	s.app.Get("/healthz", s.handleHealth)
	return s
}

// App 暴露底层 fiber.App，便于测试。
func (s *Server) App() *fiber.App { return s.app }

// Listen 阻塞监听 addr。
func (s *Server) Listen(addr string) error { return s.app.Listen(addr) }

// Shutdown 优雅关闭。
func (s *Server) Shutdown(ctx context.Context) error { return s.app.ShutdownWithContext(ctx) }

// requestLogger 为每个请求补齐 X-Request-Id 并记录访问日志。
func requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	reqID := c.Get("X-Request-Id")
	if reqID == "" {
		reqID = uuid.NewString()
	}
	c.Set("X-Request-Id", reqID)

	err := c.Next()

	logging.L().Info(c.UserContext(), "request",
		"request_id", reqID,
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return err
}

func (s *Server) requireToken(c *fiber.Ctx) error {
	if s.opt.Token == "" {
		return c.Next()
	}
	got, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(s.opt.Token)) != 1 {
		return writeErr(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return c.Next()
}

// handleStatus 返回状态记录快照。
func (s *Server) handleStatus(c *fiber.Ctx) error {
	st, err := s.runner.Status(c.UserContext())
	if err != nil {
		return writeErr(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(st)
}

// handleRun 同步执行一次运行并返回结束后的记录。
// 远端失败同样返回 200，结果体现在 state/resultMessage 中。
func (s *Server) handleRun(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if err := s.runner.Run(ctx); err != nil {
		return writeErr(c, fiber.StatusInternalServerError, err.Error())
	}
	st, err := s.runner.Status(ctx)
	if err != nil {
		return writeErr(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(st)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"job":    s.runner.JobName(),
		"host":   metrics.CollectHostMetric(c.UserContext()),
	})
}

// writeErr 公共错误返回。
func writeErr(c *fiber.Ctx, code int, msg string) error {
	return c.Status(code).JSON(fiber.Map{"success": false, "message": msg})
}
