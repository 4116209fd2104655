// Package api serves persisted optimization results over HTTP. The
// surface is read-only except for run deletion.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/faiberforce/dispatch-optimizer/internal/database"
)

// Server represents the API server
type Server struct {
	router *gin.Engine
	repo   *database.Repository
	port   string
}

// NewServer creates a new API server
func NewServer(repo *database.Repository, port string) *Server {
	router := gin.Default()

	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	config.AllowMethods = []string{"GET", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(config))

	server := &Server{
		router: router,
		repo:   repo,
		port:   port,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.Group("/api/v1")

	api.GET("/runs", s.listRuns)
	api.GET("/runs/:id", s.getRun)
	api.DELETE("/runs/:id", s.deleteRun)

	api.GET("/runs/:id/assignments", s.getAssignments)
	api.GET("/runs/:id/unassigned", s.getUnassigned)
	api.GET("/runs/:id/warnings", s.getWarnings)
	api.GET("/runs/:id/training", s.getTrainingMetrics)
	api.GET("/runs/:id/report", s.getReport)

	api.GET("/health", s.healthCheck)
}

// Start starts the server
func (s *Server) Start() error {
	return s.router.Run(":" + s.port)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now(),
	})
}

func (s *Server) listRuns(c *gin.Context) {
	runs, err := s.repo.ListRuns()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) getRun(c *gin.Context) {
	run, err := s.repo.GetRun(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) deleteRun(c *gin.Context) {
	if err := s.repo.DeleteRun(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}

func (s *Server) getAssignments(c *gin.Context) {
	rows, err := s.repo.GetAssignments(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) getUnassigned(c *gin.Context) {
	rows, err := s.repo.GetUnassigned(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) getWarnings(c *gin.Context) {
	rows, err := s.repo.GetWarnings(c.Param("id"), c.Query("technician_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) getTrainingMetrics(c *gin.Context) {
	rows, err := s.repo.GetTrainingMetrics(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) getReport(c *gin.Context) {
	report, err := s.repo.GetReport(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.String(http.StatusOK, report)
}
