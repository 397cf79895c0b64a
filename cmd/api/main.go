package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpadp "microloan-bazaar/internal/adapter/http"
	"microloan-bazaar/internal/adapter/middleware"
	"microloan-bazaar/internal/adapter/repository/mysql"
	"microloan-bazaar/internal/config"
	"microloan-bazaar/internal/fhe"
	"microloan-bazaar/internal/infrastructure/cache"
	"microloan-bazaar/internal/infrastructure/db"
	"microloan-bazaar/internal/metrics"
	"microloan-bazaar/internal/notify"
	accessuc "microloan-bazaar/internal/usecase/access"
	evaluc "microloan-bazaar/internal/usecase/evaluation"
	fundinguc "microloan-bazaar/internal/usecase/funding"
	loanuc "microloan-bazaar/internal/usecase/loan"
	repayuc "microloan-bazaar/internal/usecase/repayment"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	gdb, err := db.OpenGorm(cfg.MySQLDSN())
	if err != nil {
		log.Fatal(err)
	}
	if err := mysql.Migrate(gdb); err != nil {
		log.Fatal(err)
	}
	if err := mysql.EnsureDefaults(gdb); err != nil {
		log.Fatal(err)
	}

	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Fatal(err)
	}

	engine := fhe.NewMemoryEngineWithSecret(cfg.EngineSecret)
	m := metrics.New(prometheus.DefaultRegisterer)
	notifier := notify.Fanout{notify.LogNotifier{}, notify.NewRedisNotifier(rdb)}
	uow := mysql.NewGormUoW(gdb)

	loans := loanuc.NewUsecase(uow, engine, notifier, m)
	evals := evaluc.NewUsecase(uow, engine, notifier, m)
	funding := fundinguc.NewUsecase(uow, engine, notifier, m)
	repayments := repayuc.NewUsecase(uow, engine, notifier, m)
	admin := accessuc.NewUsecase(uow, notifier, cfg.OwnerID)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger(), echomw.Recover())

	idemp := middleware.IdempotencyMiddleware(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second)
	httpadp.Register(e, httpadp.Handlers{
		Base:       httpadp.NewHandler(),
		Loan:       httpadp.NewLoanHandler(loans),
		Evaluation: httpadp.NewEvaluationHandler(evals),
		Funding:    httpadp.NewFundingHandler(funding),
		Repayment:  httpadp.NewRepaymentHandler(repayments),
		Admin:      httpadp.NewAdminHandler(admin),
	}, idemp)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	addr := ":" + cfg.AppPort
	log.Printf("listening on %s", addr)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
