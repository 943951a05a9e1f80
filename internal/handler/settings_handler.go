package handler

import (
	"net/http"

	"github.com/fireflyblog/internal/service"
	"github.com/gin-gonic/gin"
)

func toSettingsJSON(settings service.SiteSettings) gin.H {
	return gin.H{
		"site_name":          settings.SiteName,
		"site_description":   settings.SiteDescription,
		"cache_ttl_posts":    settings.PostsCacheTTL,
		"cache_ttl_settings": settings.SettingsCacheTTL,
	}
}

// GetSettings 返回站点设置。
func (a *API) GetSettings(c *gin.Context) {
	settings, err := a.settings.GetSettings()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取站点设置失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": toSettingsJSON(settings)})
}

// UpdateSettings 更新站点设置。
func (a *API) UpdateSettings(c *gin.Context) {
	var input struct {
		SiteName         string `json:"site_name"`
		SiteDescription  string `json:"site_description"`
		PostsCacheTTL    int    `json:"cache_ttl_posts"`
		SettingsCacheTTL int    `json:"cache_ttl_settings"`
	}
	if !bindJSON(c, &input, "请求格式错误") {
		return
	}

	settings, err := a.settings.UpdateSettings(service.SiteSettingsInput{
		SiteName:         input.SiteName,
		SiteDescription:  input.SiteDescription,
		PostsCacheTTL:    input.PostsCacheTTL,
		SettingsCacheTTL: input.SettingsCacheTTL,
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "更新站点设置失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "站点设置已更新", "settings": toSettingsJSON(settings)})
}
