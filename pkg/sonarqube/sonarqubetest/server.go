// Package sonarqubetest provides an in-process fake of the SonarQube web API
// endpoints used by the verifier.
package sonarqubetest

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lequal/sonarqube-verify/pkg/sonarqube"
)

const AdminLogin = "admin"

// Server serves a mutable snapshot of the admin API.
type Server struct {
	*httptest.Server

	mu            sync.RWMutex
	adminPassword string
	status        sonarqube.SystemStatus
	plugins       []sonarqube.Plugin
	gates         []sonarqube.QualityGate
	profiles      []sonarqube.QualityProfile
	loginStatus   int
	hits          map[string]int
}

// NewServer starts a fake server accepting admin/adminPassword.
func NewServer(adminPassword string) *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		adminPassword: adminPassword,
		status:        sonarqube.SystemStatus{ID: "fake", Version: "8.9.0", Status: sonarqube.StatusUp},
		hits:          make(map[string]int),
	}

	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(zap.L(), time.RFC3339, true),
		ginzap.RecoveryWithZap(zap.L(), true),
		s.count,
	)

	api := engine.Group("/api")
	api.POST("/authentication/login", s.handleLogin)

	protected := api.Group("", s.basicAuth)
	protected.GET("/system/status", s.handleStatus)
	protected.GET("/plugins/installed", s.handlePlugins)
	protected.GET("/qualitygates/list", s.handleGates)
	protected.GET("/qualityprofiles/search", s.handleProfiles)

	s.Server = httptest.NewServer(engine)
	return s
}

func (s *Server) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Status = status
}

func (s *Server) SetPlugins(plugins ...sonarqube.Plugin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plugins = slices.Clone(plugins)
}

func (s *Server) SetQualityGates(gates ...sonarqube.QualityGate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gates = slices.Clone(gates)
}

func (s *Server) SetQualityProfiles(profiles ...sonarqube.QualityProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = slices.Clone(profiles)
}

// SetLoginStatus forces the status code of the login endpoint. Zero restores credential checking.
func (s *Server) SetLoginStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginStatus = code
}

// Hits returns how many requests reached path.
func (s *Server) Hits(path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hits[path]
}

func (s *Server) count(c *gin.Context) {
	s.mu.Lock()
	s.hits[c.Request.URL.Path]++
	s.mu.Unlock()
	c.Next()
}

func (s *Server) basicAuth(c *gin.Context) {
	login, password, ok := c.Request.BasicAuth()
	s.mu.RLock()
	valid := ok && login == AdminLogin && password == s.adminPassword
	s.mu.RUnlock()
	if !valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"errors": []gin.H{{"msg": "Authentication required"}}})
		return
	}
	c.Next()
}

func (s *Server) handleLogin(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loginStatus != 0 {
		c.Status(s.loginStatus)
		return
	}
	if c.PostForm("login") == AdminLogin && c.PostForm("password") == s.adminPassword {
		c.Status(http.StatusOK)
		return
	}
	c.Status(http.StatusUnauthorized)
}

func (s *Server) handleStatus(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c.JSON(http.StatusOK, s.status)
}

func (s *Server) handlePlugins(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c.JSON(http.StatusOK, gin.H{"plugins": nonNil(s.plugins)})
}

func (s *Server) handleGates(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c.JSON(http.StatusOK, gin.H{"qualitygates": nonNil(s.gates)})
}

func (s *Server) handleProfiles(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c.JSON(http.StatusOK, gin.H{"profiles": nonNil(s.profiles)})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
