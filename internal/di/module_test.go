package di

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"go.uber.org/fx"

	"github.com/polkiloo/refundstatus/internal/adapter/irs"
	"github.com/polkiloo/refundstatus/internal/app"
	"github.com/polkiloo/refundstatus/internal/config"
	"github.com/polkiloo/refundstatus/internal/domain/model"
	"github.com/polkiloo/refundstatus/internal/domain/repository"
	"github.com/polkiloo/refundstatus/internal/storage/postgres"
	"github.com/polkiloo/refundstatus/internal/test"
)

func TestModuleComposesGraphWithReplacements(t *testing.T) {
	cfg := &config.Config{
		RunAddress:         ":0",
		DatabaseURI:        "postgres://stub",
		JWTSecret:          "secret",
		TokenStrategy:      config.TokenStrategyJWT,
		TokenTTL:           time.Hour,
		DemoEnabled:        true,
		TaxYear:            2025,
		ETARefreshInterval: time.Millisecond,
		ETABatchSize:       1,
		WorkerPoolSize:     1,
		ShutdownTimeout:    time.Millisecond,
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	userRepo := test.NewUserRepositoryStub()
	refundRepo := &test.RefundRepositoryStub{}
	auditRepo := &test.AuditRepositoryStub{}

	var facade *app.PortalFacade
	var provider irs.Provider
	var cache repository.RefundCache
	fxApp := fx.New(
		fx.NopLogger,
		fx.Supply(context.Background()),
		Module(
			fx.Replace(cfg),
			fx.Replace(logger),
			fx.Replace(&postgres.Storage{}),
			fx.Replace(fx.Annotate(userRepo, fx.As(new(repository.UserRepository)))),
			fx.Replace(fx.Annotate(refundRepo, fx.As(new(repository.RefundRepository)))),
			fx.Replace(fx.Annotate(auditRepo, fx.As(new(repository.AuditRepository)))),
		),
		fx.Populate(&facade, &provider, &cache),
	)

	if err := fxApp.Err(); err != nil {
		t.Fatalf("fx app returned error: %v", err)
	}
	t.Cleanup(func() { _ = fxApp.Stop(context.Background()) })
	if facade == nil {
		t.Fatal("expected portal facade instance")
	}
	if _, ok := provider.(*irs.MockProvider); !ok {
		t.Fatalf("expected mock agency provider, got %T", provider)
	}
	if cache == nil {
		t.Fatal("expected refund cache without redis address")
	}

	view, err := facade.LatestRefund(context.Background(), 1, 0, "req")
	if err != nil {
		t.Fatalf("latest refund through composed graph failed: %v", err)
	}
	if view.TaxYear != cfg.TaxYear {
		t.Fatalf("expected configured tax year, got %d", view.TaxYear)
	}
	if len(auditRepo.Recorded()) != 1 {
		t.Fatal("expected lookup to be audited through replaced repository")
	}

	answer, err := facade.AskAssistant(context.Background(), 1, "Where is my refund?", "req-2")
	if err != nil {
		t.Fatalf("assistant through composed graph failed: %v", err)
	}
	if answer.Intent != model.IntentRefundStatus {
		t.Fatalf("unexpected intent %s", answer.Intent)
	}
}
