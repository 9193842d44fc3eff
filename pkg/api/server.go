// Package api provides the REST API server for exs2mpc
package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/samplecraft/exs2mpc/pkg/codec"
	"github.com/samplecraft/exs2mpc/pkg/codec/exs"
	"github.com/samplecraft/exs2mpc/pkg/codec/mpc"
)

// @title exs2mpc API
// @version 1.0
// @description API for converting sampler instrument presets between EXS and XPM keygroup formats
// @host localhost:8080
// @BasePath /api/v1

// StartServer starts the API server on the specified port
func StartServer(port int) error {
	r := gin.Default()

	r.Use(corsMiddleware())

	r.GET("/health", healthCheck)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.POST("/convert/exs2xpm", handleEXSToXPM)
		v1.POST("/convert/xpm2exs", handleXPMToEXS)
		v1.GET("/formats", listFormats)
		v1.GET("/codecs", listCodecs)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r.Run(fmt.Sprintf(":%d", port))
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
		"service": "exs2mpc",
	})
}

// listFormats godoc
// @Summary List supported formats
// @Description Returns a list of supported preset formats
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/formats [get]
func listFormats(c *gin.Context) {
	conv := newConverter(nil)
	c.JSON(http.StatusOK, gin.H{
		"formats":     []string{"exs", "xpm"},
		"conversions": conv.SupportedConversions(),
	})
}

// listCodecs godoc
// @Summary List registered codecs
// @Description Returns the registered preset codecs and their extensions
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]map[string]string
// @Router /api/v1/codecs [get]
func listCodecs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"codecs": []map[string]string{
			{"id": "exs", "name": "Binary sampler instrument", "extensions": ".exs"},
			{"id": "xpm", "name": "XML keygroup program", "extensions": ".xpm"},
		},
	})
}

// handleEXSToXPM godoc
// @Summary Convert a binary instrument to a keygroup program
// @Description Upload an .exs file and receive an .xpm file
// @Tags convert
// @Accept multipart/form-data
// @Produce application/octet-stream
// @Param file formData file true ".exs file to convert"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/convert/exs2xpm [post]
func handleEXSToXPM(c *gin.Context) {
	handleConversion(c, codec.FormatEXS, codec.FormatXPM, ".xpm")
}

// handleXPMToEXS godoc
// @Summary Convert a keygroup program to a binary instrument
// @Description Upload an .xpm file and receive an .exs file
// @Tags convert
// @Accept multipart/form-data
// @Produce application/octet-stream
// @Param file formData file true ".xpm file to convert"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/convert/xpm2exs [post]
func handleXPMToEXS(c *gin.Context) {
	handleConversion(c, codec.FormatXPM, codec.FormatEXS, ".exs")
}

func newConverter(warnings *[]string) *codec.Converter {
	conv := codec.New(exs.New(), mpc.New())
	if warnings != nil {
		opts := codec.DefaultOptions()
		opts.Notify = func(level codec.Level, format string, args ...any) {
			*warnings = append(*warnings, fmt.Sprintf("%s: %s", level, fmt.Sprintf(format, args...)))
		}
		conv.SetOptions(opts)
	}
	return conv
}

func handleConversion(c *gin.Context, from, to codec.Format, outputExt string) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	var warnings []string
	conv := newConverter(&warnings)

	result, err := conv.Convert(data, from, to, "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	outputName := header.Filename
	if dot := strings.LastIndex(outputName, "."); dot > 0 {
		outputName = outputName[:dot]
	}
	outputName += outputExt

	for _, w := range warnings {
		c.Header("X-Conversion-Warning", w)
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", outputName))
	c.Data(http.StatusOK, "application/octet-stream", result)
}
