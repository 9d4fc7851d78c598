package app

import (
	"olp_backend/docs"
	"olp_backend/internal/config"
	"olp_backend/internal/middleware"
	"olp_backend/internal/model"
	"olp_backend/internal/util"
	"olp_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.NoRoute(util.NotFound)

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerLearnerRoutes(authGroup, c)
	}

	// 3. 测验管理（教师与管理员）
	a.registerAdminRoutes(router, c, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}
}

func (a *App) registerLearnerRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/quizzes/:id", c.quiz.GetQuiz)
	rg.POST("/quizzes/:id/attempts/start", c.quiz.StartAttempt)
	rg.POST("/quizzes/:id/submit", c.quiz.SubmitAttempt)
	rg.GET("/quizzes/:id/attempts", c.quiz.ListQuizAttempts)
	rg.POST("/courses/:courseId/final-quiz/start", c.quiz.StartFinalAttempt)

	rg.GET("/quiz-attempts", c.quiz.ListMyAttempts)
	rg.GET("/quiz-attempts/:attemptId/review", c.quiz.ReviewAttempt)
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Instructor))
	{
		admin.POST("/quizzes", c.quizAdmin.CreateQuiz)
		admin.PUT("/quizzes/:id", c.quizAdmin.UpdateQuiz)
		admin.POST("/quizzes/:id/questions", c.quizAdmin.AddQuestion)
		admin.DELETE("/questions/:id", c.quizAdmin.DeleteQuestion)
		admin.POST("/questions/:id/image", c.quizAdmin.UploadQuestionImage)
		admin.DELETE("/answers/:id", c.quizAdmin.DeleteAnswer)

		admin.GET("/courses/:courseId/quizzes", c.quizAdmin.ListCourseQuizzes)
		admin.GET("/courses/:courseId/final-quiz", c.quizAdmin.GetFinalQuizSettings)
		admin.PUT("/courses/:courseId/final-quiz", c.quizAdmin.UpdateFinalQuizSettings)

		admin.GET("/quiz-attempts/:attemptId/review", c.quizAdmin.ReviewAttempt)
	}
}
