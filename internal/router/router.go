package router

import (
	"github.com/fireflyblog/internal/cache"
	"github.com/fireflyblog/internal/handler"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Options 描述路由装配所需的外部依赖。
type Options struct {
	DB            *gorm.DB
	Store         *cache.Store
	SessionSecret string
	UploadDir     string
	UploadURLPath string
}

// Setup 配置 Gin 引擎和路由，返回引擎与共享的 handler 集合。
func Setup(opts Options) (*gin.Engine, *handler.API) {
	r := gin.Default()

	secret := opts.SessionSecret
	if secret == "" {
		secret = "firefly-dev-secret"
	}
	store := cookie.NewStore([]byte(secret))
	r.Use(sessions.Sessions("firefly_session", store))

	api := handler.NewAPI(opts.DB, opts.Store, opts.UploadDir, opts.UploadURLPath)

	// 上传的图片直接按相对路径对外提供
	r.Static(opts.UploadURLPath, opts.UploadDir)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// 对外只读接口
	public := r.Group("/api")
	{
		public.GET("/posts", api.PublicListPosts)
		public.GET("/posts/:slug", api.PublicGetPost)
		public.POST("/posts/:slug/verify", api.VerifyPostPassword)
		public.GET("/tags", api.ListTags)
		public.GET("/categories", api.ListCategories)
	}

	// 后台管理接口
	admin := r.Group("/admin")
	{
		admin.POST("/login", api.Login)
		admin.POST("/logout", api.Logout)

		auth := admin.Group("")
		auth.Use(handler.AuthRequired())
		{
			auth.GET("/me", api.Me)

			adminAPI := auth.Group("/api")
			{
				adminAPI.GET("/posts", api.ListPosts)
				adminAPI.POST("/posts", api.CreatePost)
				adminAPI.GET("/posts/:id", api.GetPost)
				adminAPI.PUT("/posts/:id", api.UpdatePost)
				adminAPI.DELETE("/posts/:id", api.DeletePost)
				adminAPI.POST("/posts/:id/restore", api.RestorePost)
				adminAPI.DELETE("/posts/:id/purge", api.PurgePost)
				adminAPI.POST("/posts/:id/toggle-pin", api.TogglePin)
				adminAPI.PUT("/posts/:id/pin", api.SetPin)
				adminAPI.GET("/posts/:id/scheduled-logs", api.ScheduledLogs)

				adminAPI.GET("/posts/:id/revisions", api.ListRevisions)
				adminAPI.POST("/posts/:id/revisions/:revisionId/restore", api.RestoreRevision)
				adminAPI.DELETE("/posts/:id/revisions/:revisionId", api.DeleteRevision)

				adminAPI.GET("/posts/:id/autosave", api.GetAutosave)
				adminAPI.PUT("/posts/:id/autosave", api.SaveAutosave)
				adminAPI.DELETE("/posts/:id/autosave", api.ClearAutosave)

				adminAPI.POST("/posts/:id/sync-media", api.SyncPostMedia)
				adminAPI.POST("/upload", api.UploadImage)
				adminAPI.GET("/media", api.ListMedia)
				adminAPI.DELETE("/media/:id", api.DeleteMedia)
				adminAPI.POST("/media/rebuild", api.RebuildMedia)

				adminAPI.DELETE("/tags/:id", api.DeleteTag)
				adminAPI.DELETE("/categories/:id", api.DeleteCategory)

				adminAPI.GET("/settings", api.GetSettings)
				adminAPI.PUT("/settings", api.UpdateSettings)
			}
		}
	}

	return r, api
}
