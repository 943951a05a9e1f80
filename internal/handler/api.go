package handler

import (
	"github.com/fireflyblog/internal/cache"
	"github.com/fireflyblog/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db        *gorm.DB
	posts     *service.PostService
	revisions *service.RevisionService
	autosaves *service.AutosaveService
	media     *service.MediaService
	taxonomy  *service.TaxonomyService
	settings  *service.SiteSettingService
	store     *cache.Store
	uploadDir string
	uploadURL string
}

// NewAPI constructs a handler set with shared services.
// 所有会改变读取结果的服务都挂上对应前缀的缓存失效回调。
func NewAPI(gdb *gorm.DB, store *cache.Store, uploadDir, uploadURL string) *API {
	posts := service.NewPostService(gdb)
	revisions := service.NewRevisionService(gdb)
	settings := service.NewSiteSettingService(gdb)

	if store != nil {
		invalidatePosts := func() { store.DeletePrefix(service.CacheKindPosts + ":") }
		posts.SetCacheInvalidator(invalidatePosts)
		revisions.SetCacheInvalidator(invalidatePosts)
		settings.SetCacheInvalidator(func() {
			store.DeletePrefix(service.CacheKindSettings + ":")
		})
		store.SetTTLProvider(settings.CacheTTLProvider())
	}

	return &API{
		db:        gdb,
		posts:     posts,
		revisions: revisions,
		autosaves: service.NewAutosaveService(gdb),
		media:     service.NewMediaService(gdb),
		taxonomy:  service.NewTaxonomyService(gdb),
		settings:  settings,
		store:     store,
		uploadDir: uploadDir,
		uploadURL: uploadURL,
	}
}

// DB exposes the underlying gorm instance for legacy paths.
func (a *API) DB() *gorm.DB {
	return a.db
}

// Posts 暴露文章服务，供后台任务复用同一套失效逻辑。
func (a *API) Posts() *service.PostService {
	return a.posts
}
