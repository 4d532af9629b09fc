// Package api provides the REST API server for wonderswan2midi
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/james-see/wonderswan2midi/pkg/converter"
	"github.com/james-see/wonderswan2midi/pkg/converter/devices"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title WonderSwan2MIDI API
// @version 1.0
// @description API for converting WonderSwan VGM dumps to MIDI
// @host localhost:8080
// @BasePath /api/v1

// StartServer starts the API server on the specified port. opts are the
// conversion defaults; query parameters override them per request.
func StartServer(port int, opts ...converter.Option) error {
	return NewRouter(opts...).Run(fmt.Sprintf(":%d", port))
}

type server struct {
	defaults []converter.Option
}

// NewRouter builds the API routes
func NewRouter(opts ...converter.Option) *gin.Engine {
	srv := &server{defaults: opts}
	r := gin.Default()

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.POST("/convert/vgm2midi", srv.handleVGMToMIDI)
		v1.POST("/inspect", handleInspect)
		v1.GET("/formats", listFormats)
		v1.GET("/devices", listDevices)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "wonderswan2midi",
	})
}

// listFormats godoc
// @Summary List supported formats
// @Description Returns a list of supported file formats
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/formats [get]
func listFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"formats":     []string{"vgm", "vgz", "midi"},
		"conversions": converter.GetSupportedConversions(),
	})
}

// listDevices godoc
// @Summary List supported devices
// @Description Returns a list of supported sound chips
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]map[string]string
// @Router /api/v1/devices [get]
func listDevices(c *gin.Context) {
	ws := devices.NewWonderSwanDevice()
	c.JSON(http.StatusOK, gin.H{
		"devices": []map[string]string{
			{"id": ws.ID(), "name": ws.Name(), "description": "4-channel wavetable PSG"},
		},
	})
}

// handleVGMToMIDI godoc
// @Summary Convert VGM to MIDI
// @Description Upload a .vgm or .vgz file and receive a MIDI file
// @Tags convert
// @Accept multipart/form-data
// @Produce audio/midi
// @Param file formData file true "VGM file to convert"
// @Param ppqn query int false "Ticks per quarter note (default: server setting, 480)"
// @Param program query int false "GM program for every channel (default: server setting, 80)"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/convert/vgm2midi [post]
func (s *server) handleVGMToMIDI(c *gin.Context) {
	data, name, ok := readUpload(c)
	if !ok {
		return
	}

	if format := converter.DetectFormatFromContent(data); format != converter.FormatVGM {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("expected a VGM upload, got %s data", format)})
		return
	}

	opts, err := conversionOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conv := converter.New(devices.NewWonderSwanDevice(), append(slices.Clone(s.defaults), opts...)...)
	result, err := conv.VGMToMIDI(data)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, converter.ErrInvalidVGM) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	outputName := strings.TrimSuffix(name, filepath.Ext(name))
	if outputName == "" {
		outputName = "converted"
	}
	outputName += ".mid"

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", outputName))
	c.Data(http.StatusOK, "audio/midi", result)
}

// handleInspect godoc
// @Summary Inspect a MIDI file
// @Description Upload a MIDI file and receive a JSON summary of its events
// @Tags inspect
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "MIDI file to inspect"
// @Param events query bool false "Include the event log"
// @Success 200 {object} converter.MIDISummary
// @Failure 400 {object} map[string]string
// @Router /api/v1/inspect [post]
func handleInspect(c *gin.Context) {
	data, _, ok := readUpload(c)
	if !ok {
		return
	}

	withEvents := c.DefaultQuery("events", "false") == "true"
	sum, err := converter.InspectMIDI(data, withEvents)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sum)
}

func readUpload(c *gin.Context) ([]byte, string, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return nil, "", false
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return nil, "", false
	}
	return data, filepath.Base(header.Filename), true
}

func conversionOptions(c *gin.Context) ([]converter.Option, error) {
	var opts []converter.Option

	if v := c.Query("ppqn"); v != "" {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil || n == 0 {
			return nil, fmt.Errorf("invalid ppqn %q", v)
		}
		opts = append(opts, converter.WithPPQN(uint16(n)))
	}
	if v := c.Query("program"); v != "" {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil || n > 127 {
			return nil, fmt.Errorf("invalid program %q", v)
		}
		opts = append(opts, converter.WithProgram(uint8(n)))
	}
	return opts, nil
}
