package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cppla/anonbbs/config"
	"github.com/cppla/anonbbs/controllers"
	"github.com/cppla/anonbbs/middleware"
	"github.com/cppla/anonbbs/service"
	"github.com/cppla/anonbbs/utils"
	"github.com/cppla/anonbbs/views"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(board *service.BoardService, cfg config.AppConfig) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Request log goes to its own rolling file; without one, only recover.
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}
	r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	r.MaxMultipartMemory = 8 << 20

	r.SetHTMLTemplate(views.MustTemplates())

	r.Static("/static", "./static")
	if prefix := "/" + strings.Trim(cfg.UploadURLPrefix, "/"); prefix != "/" {
		r.Static(prefix, cfg.UploadDir)
	}

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	postController := controllers.NewPostController(board, controllers.Notice{Title: cfg.NoticeTitle, HTML: cfg.NoticeHTML})
	configController := controllers.NewConfigController(cfg, board)

	r.GET("/", postController.Index)
	r.POST("/submit", postController.Submit)
	r.POST("/submit_reply/:parent_id", postController.SubmitReply)
	r.GET("/reply/:post_id", postController.Thread)

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	api := r.Group("/api/v1")
	api.Use(cors.New(corsCfg))

	threads := api.Group("/threads")
	threads.GET("", postController.ListThreads)
	threads.POST("", postController.CreateThread)
	threads.GET("/:id", postController.GetThread)
	threads.POST("/:id/replies", postController.CreateReply)

	api.GET("/config/limits", configController.GetLimits)
	api.GET("/config/notice", configController.GetNotice)

	r.NoRoute(func(ctx *gin.Context) {
		path := ctx.Request.URL.Path
		if strings.HasPrefix(path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		if strings.HasPrefix(path, "/static/") {
			ctx.JSON(http.StatusNotFound, gin.H{"message": "static asset not found"})
			return
		}
		ctx.HTML(http.StatusNotFound, "error.html", gin.H{"Status": http.StatusNotFound, "Message": "page not found"})
	})

	return r
}
