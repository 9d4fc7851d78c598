// 为本地环境写入一门演示课程的测验数据
//
// 会创建两个章节测验（各含若干题目）以及课程的期末测验，
// 期末测验从章节题库中抽题。
//
// 用法: go run scripts/seed_demo_course.go -course 1

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"olp_backend/internal/config"
	"olp_backend/internal/model"
	"olp_backend/internal/repository"
	"olp_backend/internal/service"
	"olp_backend/pkg/database"
	"olp_backend/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	configDir := flag.String("config", "configs", "配置文件目录")
	courseID := flag.Uint("course", 1, "课程ID")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode, true)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	quizzes := repository.NewQuizRepository(db)
	questions := repository.NewQuestionRepository(db, nil, 0)
	attempts := repository.NewQuizAttemptRepository(db)
	engine := service.NewQuizService(quizzes, questions, attempts, cfg.Quiz)
	admin := service.NewQuizAdminService(quizzes, questions, engine, service.NewStorageService(&cfg.Storage))

	ctx := context.Background()
	course := uint(*courseID)

	for lesson := uint(1); lesson <= 2; lesson++ {
		lessonID := lesson
		quiz, err := admin.CreateQuiz(ctx, service.CreateQuizRequest{
			CourseID:     course,
			LessonID:     &lessonID,
			Title:        fmt.Sprintf("第 %d 章 练习", lesson),
			PassingScore: 60,
			AllowRetake:  true,
		})
		if err != nil {
			log.Fatalf("创建章节测验失败: %v", err)
		}

		for _, req := range demoQuestions(lesson) {
			if _, err := admin.AddQuestion(ctx, quiz.ID, req); err != nil {
				log.Fatalf("添加题目失败: %v", err)
			}
		}
		logger.Log.Info("Seeded lesson quiz", zap.Uint("quizId", quiz.ID), zap.Uint("lessonId", lessonID))
	}

	final, err := admin.GetFinalQuizSettings(ctx, course)
	if err != nil {
		log.Fatalf("创建期末测验失败: %v", err)
	}
	logger.Log.Info("Final quiz ready",
		zap.Uint("quizId", final.QuizID),
		zap.Int("poolSize", final.PoolSize),
		zap.Int("questionCount", final.QuestionCount),
	)
	log.Println("完成！")
}

func demoQuestions(lesson uint) []service.AddQuestionRequest {
	return []service.AddQuestionRequest{
		{
			Text:   fmt.Sprintf("第 %d 章：变量在使用前必须声明吗？", lesson),
			Type:   model.QuestionTypeTrueFalse,
			Points: 1,
			Answers: []service.AnswerRequest{
				{Text: "对", IsCorrect: true},
				{Text: "错"},
			},
		},
		{
			Text:   fmt.Sprintf("第 %d 章：下列哪个是整数类型？", lesson),
			Type:   model.QuestionTypeMCQ,
			Points: 2,
			Answers: []service.AnswerRequest{
				{Text: "int", IsCorrect: true},
				{Text: "string"},
				{Text: "bool"},
			},
		},
		{
			Text:   fmt.Sprintf("第 %d 章：下列哪些是循环语句？", lesson),
			Type:   model.QuestionTypeMSQ,
			Points: 3,
			Answers: []service.AnswerRequest{
				{Text: "for", IsCorrect: true},
				{Text: "while", IsCorrect: true},
				{Text: "switch"},
			},
		},
		{
			Text:   fmt.Sprintf("第 %d 章：简述作用域的含义。", lesson),
			Type:   model.QuestionTypeShortAnswer,
			Points: 1,
		},
	}
}
