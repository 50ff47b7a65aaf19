package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"laptopprice/pkg/pipeline"
	"laptopprice/pkg/predict"
	"laptopprice/pkg/runlog"
)

//go:embed templates
var templateFS embed.FS

// Trainer runs the training pipeline. *pipeline.Runner satisfies it.
type Trainer interface {
	Run(ctx context.Context, trigger string) (*pipeline.Result, error)
	Running() bool
}

// History lists past runs. *runlog.Store satisfies it.
type History interface {
	Recent(ctx context.Context, limit int) ([]runlog.Run, error)
}

type Options struct {
	Trainer      Trainer
	Predictor    *predict.Predictor
	History      History
	Logger       *slog.Logger
	TrainTimeout time.Duration
}

// Server is the HTTP surface: the prediction form, retraining and run history.
type Server struct {
	opts Options
	log  *slog.Logger
}

func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Server{opts: opts, log: log.With("component", "http")}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), corsMiddleware())
	r.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.tmpl")))

	r.GET("/", s.index)
	r.POST("/", s.predict)
	r.POST("/predict", s.predict)
	r.GET("/train", s.train)
	r.POST("/train", s.train)
	r.GET("/runs", s.runs)
	r.GET("/healthz", s.health)
	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start).String(),
		)
	}
}

// corsMiddleware allows every origin and answers preflight requests.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, Authorization, Origin, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// page is what index.tmpl renders. Values holds the form fields as submitted.
type page struct {
	Context    string
	Failed     bool
	Version    string
	Values     map[string]string
	TypeNames  []string
	CPUNames   []string
	GPUBrands  []string
	OSFamilies []string
}

func (s *Server) newPage(ctx context.Context, in predict.Input) page {
	p := page{
		Context:    "Enter laptop details for price prediction",
		Values:     in.Record(),
		TypeNames:  []string{"Notebook", "Ultrabook", "Gaming", "2 in 1 Convertible", "Workstation", "Netbook"},
		CPUNames:   []string{"Intel Core i7", "Intel Core i5", "Intel Core i3", "Other Intel Processor", "AMD Processor"},
		GPUBrands:  []string{"Intel", "Nvidia", "AMD"},
		OSFamilies: []string{"windows", "mac", "other"},
	}
	if s.opts.Predictor != nil {
		p.Version, _ = s.opts.Predictor.Version(ctx)
	}
	return p
}

func (s *Server) index(c *gin.Context) {
	defaults := predict.Input{
		Ram:         predict.Float(8),
		Weight:      predict.Float(1.5),
		Touchscreen: predict.Int(0),
		IPS:         predict.Int(0),
		SSD:         predict.Float(256),
		HDD:         predict.Float(0),
	}
	c.HTML(http.StatusOK, "index.tmpl", s.newPage(c.Request.Context(), defaults))
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json") ||
		strings.HasPrefix(c.ContentType(), "application/json")
}

func (s *Server) predict(c *gin.Context) {
	ctx := c.Request.Context()
	asJSON := wantsJSON(c)

	var in predict.Input
	var (
		pred   predict.Prediction
		err    error
		status = http.StatusOK
	)
	if err = c.ShouldBind(&in); err != nil {
		status = http.StatusBadRequest
	} else if s.opts.Predictor == nil {
		err, status = predict.ErrNoModel, http.StatusServiceUnavailable
	} else if pred, err = s.opts.Predictor.Predict(ctx, in); err != nil {
		switch {
		case errors.Is(err, predict.ErrInvalidInput):
			status = http.StatusBadRequest
		case errors.Is(err, predict.ErrNoModel):
			status = http.StatusServiceUnavailable
		default:
			status = http.StatusInternalServerError
		}
	}
	if err != nil {
		s.log.Warn("prediction failed", "status", status, "err", err)
	}

	if asJSON {
		if err != nil {
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, pred)
		return
	}
	p := s.newPage(ctx, in)
	if err != nil {
		p.Context, p.Failed = "Error: "+err.Error(), true
	} else {
		p.Context = pred.Text()
	}
	c.HTML(status, "index.tmpl", p)
}

func (s *Server) train(c *gin.Context) {
	if s.opts.Trainer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "training is not configured"})
		return
	}
	ctx := c.Request.Context()
	if s.opts.TrainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.TrainTimeout)
		defer cancel()
	}

	res, err := s.opts.Trainer.Run(ctx, "http")
	switch {
	case errors.Is(err, pipeline.ErrTrainingInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "kind": pipeline.KindBusy})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
			"kind":  pipeline.KindOf(err),
			"stage": pipeline.StageOf(err),
		})
	default:
		c.JSON(http.StatusOK, res)
	}
}

func (s *Server) runs(c *gin.Context) {
	if s.opts.History == nil {
		c.JSON(http.StatusOK, []runlog.Run{})
		return
	}
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 500"})
			return
		}
		limit = n
	}
	runs, err := s.opts.History.Recent(c.Request.Context(), limit)
	if err != nil {
		s.log.Error("list runs failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []runlog.Run{}
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if s.opts.Trainer != nil {
		body["training"] = s.opts.Trainer.Running()
	}
	if s.opts.Predictor != nil {
		v, err := s.opts.Predictor.Version(c.Request.Context())
		switch {
		case err == nil:
			body["model_version"] = v
		case errors.Is(err, predict.ErrNoModel):
			body["model_version"] = nil
		default:
			body["model_error"] = err.Error()
		}
	}
	c.JSON(http.StatusOK, body)
}
