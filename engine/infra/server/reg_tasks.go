package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/graffiticode/graffiticode/engine/core"
	"github.com/graffiticode/graffiticode/engine/dao"
	"github.com/graffiticode/graffiticode/engine/infra/server/middleware/auth"
	"github.com/graffiticode/graffiticode/engine/infra/server/router"
	"github.com/graffiticode/graffiticode/engine/task"
)

// CreateTaskRequest is the body of POST /tasks.
type CreateTaskRequest struct {
	Task *task.Task `json:"task"`
	Mark any        `json:"mark,omitempty"`
}

// AppendIDsRequest is the body of POST /ids/append.
type AppendIDsRequest struct {
	IDs []string `json:"ids"`
}

// IDResponse carries a task identifier.
type IDResponse struct {
	ID string `json:"id"`
}

// TasksResponse carries the tasks an identifier addresses.
type TasksResponse struct {
	Tasks []*task.Task `json:"tasks"`
}

func (s *Server) registerTaskRoutes(api *gin.RouterGroup) {
	api.POST("/tasks", s.createTask)
	api.GET("/tasks/:id", s.getTasks)
	api.POST("/ids/append", s.appendIDs)
}

func (s *Server) createTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	id, err := s.dao.Create(c.Request.Context(), &dao.CreateRequest{
		Auth: auth.FromContext(c.Request.Context()),
		Task: req.Task,
		Mark: req.Mark,
	})
	if err != nil {
		router.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, IDResponse{ID: id})
}

func (s *Server) getTasks(c *gin.Context) {
	tasks, err := s.dao.Get(c.Request.Context(), &dao.GetRequest{
		ID:   c.Param("id"),
		Auth: auth.FromContext(c.Request.Context()),
	})
	if err != nil {
		router.RespondError(c, err)
		return
	}
	resp := TasksResponse{Tasks: tasks}
	etag := `"` + core.ETagFromAny(resp) + `"`
	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) appendIDs(c *gin.Context) {
	var req AppendIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if len(req.IDs) == 0 {
		router.RespondProblemWithCode(c, http.StatusBadRequest, router.ErrBadRequestCode, "ids must not be empty")
		return
	}
	id, err := s.dao.AppendIDs(c.Request.Context(), req.IDs[0], req.IDs[1:]...)
	if err != nil {
		router.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, IDResponse{ID: id})
}

func respondBindError(c *gin.Context, err error) {
	if problem := router.ProblemFromError(err); problem.Status == http.StatusRequestEntityTooLarge {
		router.RespondProblem(c, problem)
		return
	}
	router.RespondProblemWithCode(c, http.StatusBadRequest, router.ErrBadRequestCode, "invalid request body: "+err.Error())
}
