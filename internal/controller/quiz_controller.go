package controller

import (
	"olp_backend/internal/service"
	"olp_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	Service *service.QuizService
}

func NewQuizController(svc *service.QuizService) *QuizController {
	return &QuizController{Service: svc}
}

// @Summary 获取测验（学习者视图）
// @Description 返回测验及题目，不包含正确答案
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response{data=service.QuizView}
// @Failure 404 {object} util.Response
// @Router /quizzes/{id} [get]
func (c *QuizController) GetQuiz(ctx *gin.Context) {
	quizID, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid quiz id")
		return
	}

	view, err := c.Service.GetQuizForLearner(ctx.Request.Context(), quizID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 开始测验
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Success 201 {object} util.Response{data=service.AttemptView}
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response "不允许重考"
// @Router /quizzes/{id}/attempts/start [post]
func (c *QuizController) StartAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	quizID, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid quiz id")
		return
	}

	view, err := c.Service.StartAttempt(ctx.Request.Context(), user.UserID, quizID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, view)
}

// @Summary 开始或继续课程期末测验
// @Description 未提交的期末测验会按原题目继续
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=service.AttemptView}
// @Failure 409 {object} util.Response "测验已停用"
// @Failure 422 {object} util.Response "题库为空"
// @Router /courses/{courseId}/final-quiz/start [post]
func (c *QuizController) StartFinalAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	courseID, ok := util.ParamUint(ctx, "courseId")
	if !ok {
		util.BadRequest(ctx, "invalid course id")
		return
	}

	view, err := c.Service.StartFinalAttempt(ctx.Request.Context(), user.UserID, courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if view.Resumed {
		util.Success(ctx, view)
		return
	}
	util.Created(ctx, view)
}

// @Summary 提交测验
// @Description 不带 attemptId 时会新建一次作答并立即提交
// @Tags 测验
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Param body body service.SubmitQuizRequest true "作答内容"
// @Success 200 {object} util.Response{data=service.SubmitResult}
// @Failure 403 {object} util.Response
// @Failure 409 {object} util.Response "已提交或超时"
// @Router /quizzes/{id}/submit [post]
func (c *QuizController) SubmitAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	quizID, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid quiz id")
		return
	}

	var req service.SubmitQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	req.QuizID = quizID

	result, err := c.Service.SubmitAttempt(ctx.Request.Context(), user.UserID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 我在该测验的作答记录
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response{data=[]model.QuizAttempt}
// @Router /quizzes/{id}/attempts [get]
func (c *QuizController) ListQuizAttempts(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	quizID, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid quiz id")
		return
	}

	attempts, err := c.Service.ListAttemptsForQuiz(ctx.Request.Context(), user.UserID, quizID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}

// @Summary 我的全部作答记录
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.QuizAttempt}
// @Router /quiz-attempts [get]
func (c *QuizController) ListMyAttempts(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	attempts, err := c.Service.ListMyAttempts(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}

// @Summary 查看作答详情
// @Description 作答未提交时不返回正确答案
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param attemptId path int true "作答ID"
// @Success 200 {object} util.Response{data=service.AttemptReview}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /quiz-attempts/{attemptId}/review [get]
func (c *QuizController) ReviewAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	attemptID, ok := util.ParamUint(ctx, "attemptId")
	if !ok {
		util.BadRequest(ctx, "invalid attempt id")
		return
	}

	review, err := c.Service.ReviewAttempt(ctx.Request.Context(), attemptID, user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, review)
}
