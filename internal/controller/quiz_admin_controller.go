package controller

import (
	"olp_backend/internal/service"
	"olp_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizAdminController struct {
	Service *service.QuizAdminService
	Quizzes *service.QuizService
}

func NewQuizAdminController(svc *service.QuizAdminService, quizzes *service.QuizService) *QuizAdminController {
	return &QuizAdminController{Service: svc, Quizzes: quizzes}
}

// @Summary 创建测验
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateQuizRequest true "测验信息"
// @Success 201 {object} util.Response{data=model.Quiz}
// @Failure 400 {object} util.Response
// @Router /admin/quizzes [post]
func (c *QuizAdminController) CreateQuiz(ctx *gin.Context) {
	var req service.CreateQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.Service.CreateQuiz(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, quiz)
}

// @Summary 课程下的测验列表
// @Tags 测验管理
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.Quiz}
// @Router /admin/courses/{courseId}/quizzes [get]
func (c *QuizAdminController) ListCourseQuizzes(ctx *gin.Context) {
	courseID, ok := util.ParamUint(ctx, "courseId")
	if !ok {
		util.BadRequest(ctx, "invalid course id")
		return
	}

	quizzes, err := c.Service.ListCourseQuizzes(ctx.Request.Context(), courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quizzes)
}

// @Summary 更新测验设置
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Param body body service.UpdateQuizSettingsRequest true "要修改的字段"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Router /admin/quizzes/{id} [put]
func (c *QuizAdminController) UpdateQuiz(ctx *gin.Context) {
	quizID, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid quiz id")
		return
	}
	var req service.UpdateQuizSettingsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.Service.UpdateQuizSettings(ctx.Request.Context(), quizID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// @Summary 添加题目
// @Description MCQ/TrueFalse 必须恰有一个正确选项，MSQ 至少一个，ShortAnswer 不带选项
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Param body body service.AddQuestionRequest true "题目"
// @Success 201 {object} util.Response{data=model.Question}
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response "期末测验不能直接添加题目"
// @Router /admin/quizzes/{id}/questions [post]
func (c *QuizAdminController) AddQuestion(ctx *gin.Context) {
	quizID, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid quiz id")
		return
	}
	var req service.AddQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.Service.AddQuestion(ctx.Request.Context(), quizID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, q)
}

// @Summary 删除题目
// @Tags 测验管理
// @Security ApiKeyAuth
// @Param id path int true "题目ID"
// @Success 200 {object} util.Response
// @Router /admin/questions/{id} [delete]
func (c *QuizAdminController) DeleteQuestion(ctx *gin.Context) {
	questionID, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid question id")
		return
	}

	if err := c.Service.DeleteQuestion(ctx.Request.Context(), questionID); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 删除选项
// @Tags 测验管理
// @Security ApiKeyAuth
// @Param id path int true "选项ID"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response "删除后题目不完整"
// @Router /admin/answers/{id} [delete]
func (c *QuizAdminController) DeleteAnswer(ctx *gin.Context) {
	answerID, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid answer id")
		return
	}

	if err := c.Service.DeleteAnswer(ctx.Request.Context(), answerID); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 上传题目图片
// @Tags 测验管理
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "题目ID"
// @Param file formData file true "图片文件"
// @Success 200 {object} util.Response{data=model.Question}
// @Router /admin/questions/{id}/image [post]
func (c *QuizAdminController) UploadQuestionImage(ctx *gin.Context) {
	questionID, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid question id")
		return
	}
	header, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	q, err := c.Service.UploadQuestionImage(ctx.Request.Context(), questionID, file, header.Size)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// @Summary 获取课程期末测验设置
// @Description 期末测验不存在时按默认配置创建
// @Tags 测验管理
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=service.FinalQuizSettings}
// @Router /admin/courses/{courseId}/final-quiz [get]
func (c *QuizAdminController) GetFinalQuizSettings(ctx *gin.Context) {
	courseID, ok := util.ParamUint(ctx, "courseId")
	if !ok {
		util.BadRequest(ctx, "invalid course id")
		return
	}

	settings, err := c.Service.GetFinalQuizSettings(ctx.Request.Context(), courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, settings)
}

// @Summary 更新课程期末测验设置
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Param body body service.UpdateFinalQuizSettingsRequest true "要修改的字段"
// @Success 200 {object} util.Response{data=service.FinalQuizSettings}
// @Router /admin/courses/{courseId}/final-quiz [put]
func (c *QuizAdminController) UpdateFinalQuizSettings(ctx *gin.Context) {
	courseID, ok := util.ParamUint(ctx, "courseId")
	if !ok {
		util.BadRequest(ctx, "invalid course id")
		return
	}
	var req service.UpdateFinalQuizSettingsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	settings, err := c.Service.UpdateFinalQuizSettings(ctx.Request.Context(), courseID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, settings)
}

// @Summary 查看任意作答详情
// @Tags 测验管理
// @Produce json
// @Security ApiKeyAuth
// @Param attemptId path int true "作答ID"
// @Success 200 {object} util.Response{data=service.AttemptReview}
// @Router /admin/quiz-attempts/{attemptId}/review [get]
func (c *QuizAdminController) ReviewAttempt(ctx *gin.Context) {
	attemptID, ok := util.ParamUint(ctx, "attemptId")
	if !ok {
		util.BadRequest(ctx, "invalid attempt id")
		return
	}

	review, err := c.Quizzes.ReviewAttemptAsAdmin(ctx.Request.Context(), attemptID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, review)
}
