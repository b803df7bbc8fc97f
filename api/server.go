package api

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dataspine/metrics-monitoring/common"
	"github.com/dataspine/metrics-monitoring/storage"
	"github.com/gin-gonic/gin"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("api")

type server struct {
	router     *gin.Engine
	httpServer *http.Server
	storage    Storage
	resolver   Resolver
	serviceKey string
	listenAddr string
	startTime  time.Time
	wg         sync.WaitGroup
}

// ArgsWebServer defines the web server arguments
type ArgsWebServer struct {
	ServiceKeyApi string
	ListenAddress string
	Storage       Storage
	Resolver      Resolver
}

// statsResponse is the payload of the runtime stats dump endpoint
type statsResponse struct {
	UptimeSeconds      int64          `json:"uptimeSeconds"`
	NumGoroutines      int            `json:"numGoroutines"`
	HeapAllocBytes     uint64         `json:"heapAllocBytes"`
	NumGC              uint32         `json:"numGC"`
	NumSeries          int            `json:"numSeries"`
	SeriesPerNamespace map[string]int `json:"seriesPerNamespace"`
}

// NewServer initializes the Gin engine and mounts all routes
func NewServer(args ArgsWebServer) (*server, error) {
	if check.IfNil(args.Storage) {
		return nil, errors.New("storage is required")
	}
	if check.IfNil(args.Resolver) {
		return nil, errors.New("resolver is required")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(gin.Recovery())

	s := &server{
		router:     router,
		storage:    args.Storage,
		resolver:   args.Resolver,
		serviceKey: args.ServiceKeyApi,
		listenAddr: args.ListenAddress,
		startTime:  time.Now(),
	}

	s.setupRoutes()
	return s, nil
}

func (s *server) setupRoutes() {
	api := s.router.Group("/api")
	api.Use(s.authAPIKey())
	{
		api.GET("/metrics", s.handleGetMetrics)
		api.GET("/datapoints", s.handleGetLatestDatapoints)
		api.GET("/metrics/:key/history", s.handleGetSeriesHistory)
		api.DELETE("/metrics/:key", s.handleDeleteSeries)
		api.GET("/stats", s.handleStats)
	}
}

// Start listens and serves connections
func (s *server) Start() {
	s.httpServer = &http.Server{
		Addr:    s.listenAddr,
		Handler: s.router,
	}

	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		log.Error("failed to listen", "error", err)
		return
	}
	s.listenAddr = ln.Addr().String()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Info("starting HTTP server", "address", s.listenAddr)

		err := s.httpServer.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
		}
	}()
}

// Address returns the actual listen address
func (s *server) Address() string {
	return s.listenAddr
}

// Close gracefully stops the server
func (s *server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	s.wg.Wait()
	return s.storage.Close()
}

// --- Middlewares ---

func (s *server) authAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-Api-Key")
		if key != s.serviceKey {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// --- Handlers ---

// handleGetMetrics serves the reconciled in-memory snapshot. NaN resolutions
// signal "no valid value" and are omitted from the response.
func (s *server) handleGetMetrics(c *gin.Context) {
	asOf := time.Now()
	resolved := s.resolver.ResolveAll(asOf)

	out := make([]common.DatapointPayload, 0, len(resolved))
	for key, series := range resolved {
		if math.IsNaN(series.Value.Sum) {
			continue
		}

		out = append(out, common.DatapointPayload{
			Key:        key,
			Namespace:  series.Metadata.Category.Namespace,
			Name:       series.Metadata.DisplayName(),
			Tags:       series.Metadata.TagValues,
			Sum:        series.Value.Sum,
			Count:      series.Value.SampleCount,
			Unit:       series.Value.Unit,
			ResolvedAt: asOf.Unix(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key < out[j].Key
	})

	s.writeJSONMaybeGzipped(c, gin.H{"metrics": out})
}

func (s *server) writeJSONMaybeGzipped(c *gin.Context, payload interface{}) {
	if !strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") {
		c.JSON(http.StatusOK, payload)
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Encoding", "gzip")
	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Status(http.StatusOK)

	gz := gzip.NewWriter(c.Writer)
	_, err = gz.Write(body)
	if err != nil {
		log.Warn("failed to write gzipped response", "error", err)
	}
	_ = gz.Close()
}

func (s *server) handleGetLatestDatapoints(c *gin.Context) {
	results, err := s.storage.GetLatestDatapoints(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"series": results})
}

func (s *server) handleGetSeriesHistory(c *gin.Context) {
	key := c.Param("key")
	hist, err := s.storage.GetSeriesHistory(c.Request.Context(), key)
	if errors.Is(err, storage.ErrSeriesNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "series not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, hist)
}

func (s *server) handleDeleteSeries(c *gin.Context) {
	key := c.Param("key")
	err := s.storage.DeleteSeries(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *server) handleStats(c *gin.Context) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	perNamespace := make(map[string]int)
	for _, series := range s.resolver.ResolveAll(time.Now()) {
		perNamespace[series.Metadata.Category.Namespace]++
	}

	c.JSON(http.StatusOK, statsResponse{
		UptimeSeconds:      int64(time.Since(s.startTime).Seconds()),
		NumGoroutines:      runtime.NumGoroutine(),
		HeapAllocBytes:     memStats.HeapAlloc,
		NumGC:              memStats.NumGC,
		NumSeries:          s.resolver.Len(),
		SeriesPerNamespace: perNamespace,
	})
}

// IsInterfaceNil returns true if the value under the interface is nil
func (s *server) IsInterfaceNil() bool {
	return s == nil
}
