package main

import (
	"strconv"
	"strings"
	"time"

	"bookshop/internal/config"
	"bookshop/internal/domain/model"
	"bookshop/internal/handler"
	"bookshop/internal/infra/db"
	infraRepo "bookshop/internal/infra/repository"
	"bookshop/internal/payment"
	"bookshop/internal/server"
	"bookshop/internal/usecase"
	auth "bookshop/internal/usecase/auth_usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 注文番号はORD-＋UUID先頭10桁で作る
type orderIDGenerator struct{}

func (g *orderIDGenerator) NewOrderID() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "ORD-" + raw[:10]
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

type jwtIssuer struct {
	secret    []byte
	accessTTL time.Duration
}

func (i *jwtIssuer) Issue(userID int64, role model.Role, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(i.accessTTL)

	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(userID, 10),
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Book{},
		&model.Order{},
	); err != nil {
		log.Fatal("migrate failed", zap.Error(err))
	}

	//Repository（GORM実装）生成
	bookRepo := infraRepo.NewBookGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//決済ゲートウェイ
	gateway := payment.NewClient(payment.ClientConfig{
		Endpoint:  cfg.SPEndpoint,
		Username:  cfg.SPUsername,
		Password:  cfg.SPPassword,
		Prefix:    cfg.SPPrefix,
		ReturnURL: cfg.SPReturnURL,
	}, log)

	//usecaseに渡す部品
	idGen := &orderIDGenerator{}
	clock := &realClock{}
	hasher := auth.NewBcryptPasswordHasher(12)
	verifier := auth.NewBcryptPasswordVerifier()
	issuer := &jwtIssuer{
		secret:    []byte(cfg.JWTSecret),
		accessTTL: 15 * time.Minute,
	}

	//Usecase生成
	registerUC := auth.NewRegisterUserUsecase(userRepo, hasher)
	loginUC := auth.NewLoginUsecase(userRepo, verifier, issuer, clock)
	bookUC := usecase.NewBookUsecase(bookRepo)
	orderUC := usecase.NewOrderUsecase(txManager, orderRepo, bookRepo, userRepo, gateway, idGen, log)

	//Server起動
	e := server.New(cfg, log,
		handler.NewAuthHandler(registerUC, loginUC),
		handler.NewBookHandler(bookUC),
		handler.NewOrderHandler(orderUC),
	)

	addr := cfg.Port
	if !strings.HasPrefix(addr, ":") {
		addr = ":" + addr
	}

	if err := e.Start(addr); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
