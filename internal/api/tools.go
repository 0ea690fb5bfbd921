package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shapedtime/animeschedule/internal/agent"
	"github.com/shapedtime/animeschedule/internal/seasonsync"
)

func (s *Server) listTools(c *gin.Context) {
	c.JSON(http.StatusOK, agent.Definitions())
}

// executeTool runs an agent tool. The body is the tool's JSON arguments
// and the response is the tool's JSON result, including tool errors.
func (s *Server) executeTool(c *gin.Context) {
	name := c.Param("name")
	if !knownTool(name) {
		errorResponse(c, http.StatusNotFound, "Unknown tool: "+name)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if len(body) > 0 && !json.Valid(body) {
		errorResponse(c, http.StatusBadRequest, "Arguments must be a JSON object")
		return
	}

	result := s.tools.Execute(c.Request.Context(), name, body)
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(result))
}

func knownTool(name string) bool {
	for _, d := range agent.Definitions() {
		if d.Name == name {
			return true
		}
	}
	return false
}

func (s *Server) triggerSync(c *gin.Context) {
	if s.seasonSync == nil {
		errorResponse(c, http.StatusServiceUnavailable, "Season sync is disabled")
		return
	}

	if err := s.seasonSync.TriggerSyncAsync(); err != nil {
		if errors.Is(err, seasonsync.ErrSyncInProgress) {
			errorResponse(c, http.StatusConflict, err.Error())
			return
		}
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

func (s *Server) getStatus(c *gin.Context) {
	resp := gin.H{"status": "ok"}

	if s.seasonSync != nil {
		resp["sync"] = s.seasonSync.GetStatus()
	}
	if s.counter != nil {
		counts, err := s.counter.CountByStatus()
		if err != nil {
			errorResponse(c, http.StatusInternalServerError, err.Error())
			return
		}
		total := 0
		for _, n := range counts {
			total += n
		}
		resp["anime_stored"] = total
		resp["anime_by_status"] = counts
	}

	c.JSON(http.StatusOK, resp)
}
