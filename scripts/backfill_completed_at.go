// 补全历史收款请求的 completed_at 字段
//
// 早期数据在确认收款时没有记录完成时间，此脚本将 status=completed 且 completed_at 为空的记录
// 以 updated_at 回填，并以 YAML 输出各币种的处理结果。可重复执行。
//
// 用法: go run scripts/backfill_completed_at.go [-dry-run]

package main

import (
	"flag"
	"log"
	"os"

	"splitbill_backend/internal/config"
	"splitbill_backend/internal/model"
	"splitbill_backend/pkg/database"
	"splitbill_backend/pkg/logger"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

type currencyReport struct {
	Currency string `yaml:"currency"`
	Count    int64  `yaml:"count"`
	Amount   int64  `yaml:"amount"`
}

type report struct {
	DryRun     bool             `yaml:"dry_run"`
	Updated    int64            `yaml:"updated"`
	Currencies []currencyReport `yaml:"currencies"`
}

func main() {
	dryRun := flag.Bool("dry-run", false, "只统计，不写入")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	pending := func() *gorm.DB {
		return db.Model(&model.PaymentRequest{}).
			Where("status = ? AND completed_at IS NULL", model.PaymentCompleted)
	}

	out := report{DryRun: *dryRun}
	if err := pending().
		Select("currency, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Group("currency").
		Order("currency").
		Scan(&out.Currencies).Error; err != nil {
		log.Fatalf("统计失败: %v", err)
	}

	if !*dryRun {
		res := pending().UpdateColumn("completed_at", gorm.Expr("updated_at"))
		if res.Error != nil {
			log.Fatalf("回填失败: %v", res.Error)
		}
		out.Updated = res.RowsAffected
		logger.Log.Info("completed_at backfilled", zap.Int64("rows", res.RowsAffected))
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		log.Fatalf("输出结果失败: %v", err)
	}
	enc.Close()
}
