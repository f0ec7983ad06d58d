// Package service реализует бизнес-логику выдачи и погашения кодов.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/clubperks/internal/catalog"
	"github.com/mmeshcher/clubperks/internal/model"
	"github.com/mmeshcher/clubperks/internal/repository"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	UpsertOffer(ctx context.Context, o *model.Offer) error
	GetOffer(ctx context.Context, id int64) (*model.Offer, error)
	IssueCode(ctx context.Context, p repository.IssueParams) (*model.Code, error)
	GetCode(ctx context.Context, code string) (*model.Code, error)
	ListUserCodes(ctx context.Context, userID int64, f model.CodeFilter, now time.Time) ([]model.Code, error)
	RedeemCode(ctx context.Context, code string, partnerID int64, apply repository.RedeemFunc) (*model.Redemption, error)
	GetRedemption(ctx context.Context, code string) (*model.Redemption, error)
	CancelCode(ctx context.Context, code string, check repository.CancelFunc) (*model.Code, error)
	ExpireCodes(ctx context.Context, now time.Time) (int64, error)
	GetBalance(ctx context.Context, userID int64) (int64, error)
	ListLedger(ctx context.Context, userID int64, limit int) ([]model.LedgerEntry, error)
	RelayEvents(ctx context.Context, limit int, publish repository.PublishFunc) (int, error)
}

// Publisher доставляет события outbox во внешнюю систему.
type Publisher interface {
	Publish(ctx context.Context, events []model.Event) error
}

// Options содержит настраиваемые параметры сервиса.
type Options struct {
	// CodeTTL задаёт срок действия кода для предложений без даты окончания.
	CodeTTL time.Duration
	// EventTopic задаёт топик событий погашения и отмены.
	EventTopic string
	// CatalogInterval задаёт период синхронизации с каталогом предложений.
	CatalogInterval time.Duration
}

const (
	defaultCodeTTL         = 30 * 24 * time.Hour
	defaultEventTopic      = "clubperks.redemptions"
	defaultCatalogInterval = time.Minute
	relayBatchSize         = 100
	maxIssueAttempts       = 5
)

// Service содержит бизнес-логику сервиса клубных привилегий.
type Service struct {
	repo          Repository
	catalogClient *catalog.Client
	publisher     Publisher
	logger        *zap.Logger
	opts          Options

	now     func() time.Time
	newCode func(model.CodeType) string
}

// NewService создаёт новый сервис. catalogClient и publisher необязательны:
// без них синхронизация каталога и отправка событий не выполняются.
func NewService(repo Repository, catalogClient *catalog.Client, publisher Publisher, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = defaultCodeTTL
	}
	if opts.EventTopic == "" {
		opts.EventTopic = defaultEventTopic
	}
	if opts.CatalogInterval <= 0 {
		opts.CatalogInterval = defaultCatalogInterval
	}

	return &Service{
		repo:          repo,
		catalogClient: catalogClient,
		publisher:     publisher,
		logger:        logger,
		opts:          opts,
		now:           func() time.Time { return time.Now().UTC() },
		newCode:       newCodeString,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}
