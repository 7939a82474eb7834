// Package devserver serves the CRM REST contract from memory, for local development and tests.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"leadboard/internal/model"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

// Deduper records processed idempotency keys.
type Deduper interface {
	// Add returns true when key was newly recorded.
	Add(ctx context.Context, key string) (bool, error)
	Remove(ctx context.Context, key string) error
}

type Options struct {
	Logger  *logrus.Logger
	Deduper Deduper
	// Latency delays every request; useful to watch pending boards in the TUI.
	Latency time.Duration
}

type Server struct {
	state   *State
	echo    *echo.Echo
	dedup   Deduper
	log     *logrus.Logger
	latency time.Duration

	mu          sync.Mutex
	moveFailure string
}

func New(state *State, opts Options) *Server {
	if state == nil {
		state = NewState()
	}
	log := opts.Logger
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	dedup := opts.Deduper
	if dedup == nil {
		dedup = NewMemoryDeduper()
	}
	s := &Server{state: state, dedup: dedup, log: log, latency: opts.Latency}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(s.requestLog)
	s.register(e)
	s.echo = e
	return s
}

func (s *Server) State() *State                      { return s.state }
func (s *Server) Handler() http.Handler              { return s.echo }
func (s *Server) Shutdown(ctx context.Context) error { return s.echo.Shutdown(ctx) }

// Serve accepts connections on ln until Shutdown. It returns http.ErrServerClosed after a clean shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.echo.Listener = ln
	return s.echo.Start("")
}

// FailMoves makes every move request fail with 409 and message. An empty message restores normal behavior.
func (s *Server) FailMoves(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moveFailure = strings.TrimSpace(message)
}

func (s *Server) register(e *echo.Echo) {
	e.GET("/workspace", s.listWorkspaces)
	e.GET("/workspace/:id", s.getWorkspace)
	e.POST("/workspace", s.createWorkspace)

	e.POST("/board", s.createBoard)
	e.PUT("/board/:id", s.updateBoard)
	e.DELETE("/board/:id", s.deleteBoard)

	e.PUT("/lead/move", s.moveLead)
	e.GET("/lead/:boardId", s.leadsPage)
	e.POST("/lead", s.createLead)
	e.PUT("/lead/:id", s.updateLead)
	e.DELETE("/lead/:id", s.deleteLead)

	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
}

func (s *Server) listWorkspaces(c echo.Context) error {
	page, size, err := pageParams(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.state.ListWorkspaces(page, size))
}

func (s *Server) getWorkspace(c echo.Context) error {
	ws, err := s.state.GetWorkspace(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ws)
}

func (s *Server) createWorkspace(c echo.Context) error {
	var req model.CreateWorkspaceRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	ws, err := s.state.CreateWorkspace(req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ws)
}

func (s *Server) createBoard(c echo.Context) error {
	var req model.CreateBoardRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	b, err := s.state.CreateBoard(req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, b)
}

func (s *Server) updateBoard(c echo.Context) error {
	var req model.UpdateBoardRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	b, err := s.state.UpdateBoard(c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (s *Server) deleteBoard(c echo.Context) error {
	if err := s.state.DeleteBoard(c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) leadsPage(c echo.Context) error {
	page, size, err := pageParams(c)
	if err != nil {
		return err
	}
	boardID := c.Param("boardId")
	if q := strings.TrimSpace(c.QueryParam("boardId")); q != "" && q != boardID {
		return echo.NewHTTPError(http.StatusBadRequest, "boardId query does not match path")
	}
	out, err := s.state.LeadsPage(boardID, page, size)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) createLead(c echo.Context) error {
	var req model.CreateLeadRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	l, err := s.state.CreateLead(req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, l)
}

func (s *Server) updateLead(c echo.Context) error {
	var req model.UpdateLeadRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	l, err := s.state.UpdateLead(c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, l)
}

func (s *Server) deleteLead(c echo.Context) error {
	if err := s.state.DeleteLead(c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// moveLead applies a move once per Idempotency-Key. A replayed key is acknowledged without
// reapplying.
func (s *Server) moveLead(c echo.Context) error {
	var req model.MoveLeadRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	s.mu.Lock()
	failure := s.moveFailure
	s.mu.Unlock()
	if failure != "" {
		return echo.NewHTTPError(http.StatusConflict, failure)
	}

	ctx := c.Request().Context()
	key := strings.TrimSpace(c.Request().Header.Get("Idempotency-Key"))
	if key != "" {
		added, err := s.dedup.Add(ctx, key)
		if err != nil {
			return fmt.Errorf("record idempotency key: %w", err)
		}
		if !added {
			s.log.WithFields(logrus.Fields{"lead": req.LeadID, "key": key}).Info("duplicate move ignored")
			return c.NoContent(http.StatusOK)
		}
	}
	if err := s.state.MoveLead(req); err != nil {
		if key != "" {
			if rerr := s.dedup.Remove(ctx, key); rerr != nil {
				s.log.WithError(rerr).Warn("release idempotency key")
			}
		}
		return err
	}
	s.log.WithFields(logrus.Fields{"lead": req.LeadID, "board": req.BoardID, "sortOrder": req.SortOrder}).Info("lead moved")
	return c.NoContent(http.StatusOK)
}

func pageParams(c echo.Context) (int, int, error) {
	page, size := 1, 10
	if v := strings.TrimSpace(c.QueryParam("page")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid page")
		}
		page = n
	}
	if v := strings.TrimSpace(c.QueryParam("size")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid page size")
		}
		size = n
	}
	return page, size, nil
}

func (s *Server) requestLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.latency > 0 {
			select {
			case <-time.After(s.latency):
			case <-c.Request().Context().Done():
				return c.Request().Context().Err()
			}
		}
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		s.log.WithFields(logrus.Fields{
			"method":  c.Request().Method,
			"path":    c.Request().URL.Path,
			"status":  c.Response().Status,
			"latency": time.Since(start).String(),
		}).Debug("request")
		return nil
	}
}

// handleError renders every failure as {"message": "..."}.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	msg := http.StatusText(status)

	var he *echo.HTTPError
	var nf NotFoundError
	var ve ValidationError
	switch {
	case errors.As(err, &he):
		status = he.Code
		msg = fmt.Sprint(he.Message)
	case errors.As(err, &nf):
		status = http.StatusNotFound
		msg = nf.Error()
	case errors.As(err, &ve):
		status = http.StatusBadRequest
		msg = ve.Error()
	default:
		s.log.WithError(err).Error("request failed")
	}
	if werr := c.JSON(status, map[string]string{"message": msg}); werr != nil {
		s.log.WithError(werr).Warn("write error response")
	}
}

// jsonSerializer swaps echo's encoding/json for goccy/go-json.
type jsonSerializer struct{}

func (jsonSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (jsonSerializer) Deserialize(c echo.Context, i interface{}) error {
	err := json.NewDecoder(c.Request().Body).Decode(i)
	if err != nil && !errors.Is(err, io.EOF) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json body").SetInternal(err)
	}
	return nil
}
