package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/filevault/pkg/internal/handle"
)

// RegisterFilesRoutes 注册文件与分享相关路由.
func RegisterFilesRoutes(g *gin.RouterGroup) {
	filesRoutes := g.Group("/files")
	{
		// 上传与列表
		filesRoutes.POST("", handle.UploadFile)
		filesRoutes.GET("", handle.ListFiles)
		// 管理视图：全部用户的文件
		filesRoutes.GET("/all", handle.ListAllFiles)

		// 单个文件操作
		singleGroup := filesRoutes.Group("/:id")
		{
			singleGroup.GET("", handle.GetFileMeta)
			singleGroup.GET("/view", handle.ViewFile)
			singleGroup.GET("/download", handle.DownloadFile)
			singleGroup.DELETE("", handle.DeleteFile)

			// 锁状态
			singleGroup.POST("/lock", handle.LockFile)
			singleGroup.POST("/unlock", handle.UnlockFile)

			// 定向分享
			sharesGroup := singleGroup.Group("/shares")
			{
				sharesGroup.POST("", handle.CreateDirectShare)
				sharesGroup.GET("", handle.ListDirectShares)
				sharesGroup.DELETE("/:userId", handle.RemoveDirectShare)
			}

			// 公开分享管理
			publicGroup := singleGroup.Group("/public-shares")
			{
				publicGroup.POST("", handle.CreatePublicShare)
				publicGroup.GET("", handle.ListPublicShares)
			}
		}

		// 按分享 ID 撤销（不挂在文件路径下，撤销时未必还记得文件 ID）
		filesRoutes.DELETE("/public-shares/:shareId", handle.RevokePublicShare)
	}
}

// RegisterPublicShareRoutes 注册匿名分享访问路由，挂在根路径 /share 下，
// 不经过认证中间件，由调用方套限流.
func RegisterPublicShareRoutes(g *gin.RouterGroup) {
	shareRoutes := g.Group("/share")
	{
		shareRoutes.GET("/:token", handle.ResolvePublicShare)
		shareRoutes.GET("/:token/download", handle.RedeemPublicShare)
		shareRoutes.POST("/:token/download", handle.RedeemPublicShare)
	}
}
