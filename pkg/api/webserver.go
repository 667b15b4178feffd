package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/chenBenjamin97/phone-ad-detector/pkg/detector"
)

//Detector is the part of detector.Manager the web server uses
type Detector interface {
	Snapshot() detector.Snapshot
	SwitchMode(ctx context.Context, mode string) error
}

//FrameProvider returns the latest overlay frame as JPEG, nil if there is none yet
type FrameProvider interface {
	LatestJPEG() []byte
}

type modeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

//SetRouter builds the HTTP API. frames and gatherer may be nil
func SetRouter(d Detector, frames FrameProvider, gatherer prometheus.Gatherer, logger *zap.SugaredLogger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	r := gin.Default()

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	apiRoutes := r.Group("/api")

	apiRoutes.GET("/status", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, statusOf(d.Snapshot()))
	})

	apiRoutes.GET("/detections", func(ctx *gin.Context) {
		s := d.Snapshot()
		ctx.JSON(http.StatusOK, gin.H{
			"frameSeq":   s.FrameSeq,
			"processing": s.Processing,
			"views":      s.Views,
		})
	})

	apiRoutes.GET("/summary", func(ctx *gin.Context) {
		s := d.Snapshot()
		ctx.JSON(http.StatusOK, gin.H{
			"phonesDetected":  s.PhonesDetected,
			"suspiciousAds":   s.SuspiciousAds,
			"totalPhones":     s.TotalPhones,
			"totalSuspicious": s.TotalSuspicious,
			"fps":             s.FPS,
		})
	})

	apiRoutes.GET("/frame.jpg", func(ctx *gin.Context) {
		if frames == nil {
			ctx.Status(http.StatusNoContent)
			return
		}
		data := frames.LatestJPEG()
		if len(data) == 0 {
			ctx.Status(http.StatusNoContent) //nothing rendered yet
			return
		}
		ctx.Header("Cache-Control", "no-store")
		ctx.Data(http.StatusOK, "image/jpeg", data)
	})

	apiRoutes.POST("/mode", func(ctx *gin.Context) {
		var req modeRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !detector.ValidMode(req.Mode) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.Wrapf(detector.ErrUnknownMode, "mode %q", req.Mode).Error()})
			return
		}

		//loading a model outlives the request if the client goes away
		if err := d.SwitchMode(context.WithoutCancel(ctx.Request.Context()), req.Mode); err != nil {
			logger.Errorf("api/mode: Could not switch to %s, got '%v'", req.Mode, err)
			body := statusOf(d.Snapshot())
			body["error"] = err.Error()
			ctx.JSON(http.StatusInternalServerError, body)
			return
		}
		logger.Infof("api/mode: switched to %s", req.Mode)
		ctx.JSON(http.StatusOK, statusOf(d.Snapshot()))
	})

	return r
}

func statusOf(s detector.Snapshot) gin.H {
	h := gin.H{
		"sessionId":  s.SessionID,
		"mode":       s.Mode,
		"state":      s.State,
		"status":     s.Status,
		"fps":        s.FPS,
		"processing": s.Processing,
	}
	if s.Err != "" {
		h["error"] = s.Err
	}
	return h
}
