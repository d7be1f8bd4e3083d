package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aiqa-platform/helpdesk-backend/internal/analyzer"
	"github.com/aiqa-platform/helpdesk-backend/internal/config"
	"github.com/aiqa-platform/helpdesk-backend/internal/model"
	"github.com/aiqa-platform/helpdesk-backend/internal/store"
	"github.com/aiqa-platform/helpdesk-backend/pkg/logger"
	"github.com/aiqa-platform/helpdesk-backend/pkg/metrics"
)

// ChatProvider is the external chat provider surface the reconciler depends
// on. Implemented by the bitrix client.
type ChatProvider interface {
	ListActiveConversations(ctx context.Context) ([]string, error)
	FetchMessages(ctx context.Context, chatID string, limit int) (*model.Conversation, error)
	ResolveUserIdentity(ctx context.Context, bitrixUserID *int, email string) (*model.ExternalUserRecord, error)
	ResolveResponsibleOperators(ctx context.Context, chatID string) ([]int, error)
}

// TicketEventPublisher receives a notification after every successful ticket
// upsert. Implementations must be safe for concurrent use.
type TicketEventPublisher interface {
	TicketUpserted(ctx context.Context, ticket *model.Ticket, created bool)
}

// TicketServiceOptions configures the reconciler.
type TicketServiceOptions struct {
	OwnerPolicy     string
	Workers         int
	FetchLimit      int
	ProviderTimeout time.Duration
}

// TicketService drives chat-to-ticket reconciliation: discover, fetch,
// analyze, attribute, upsert.
type TicketService struct {
	provider  ChatProvider
	analyzer  *analyzer.Analyzer
	users     store.UserStore
	tickets   store.TicketStore
	publisher TicketEventPublisher
	opts      TicketServiceOptions
	logger    *logger.Logger
}

// NewTicketService creates the reconciler. publisher may be nil when event
// publishing is disabled.
func NewTicketService(
	provider ChatProvider,
	an *analyzer.Analyzer,
	users store.UserStore,
	tickets store.TicketStore,
	publisher TicketEventPublisher,
	opts TicketServiceOptions,
	log *logger.Logger,
) *TicketService {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.FetchLimit < 1 {
		opts.FetchLimit = 100
	}
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = 10 * time.Second
	}
	if opts.OwnerPolicy == "" {
		opts.OwnerPolicy = config.OwnerPolicyFirst
	}
	return &TicketService{
		provider:  provider,
		analyzer:  an,
		users:     users,
		tickets:   tickets,
		publisher: publisher,
		opts:      opts,
		logger:    log,
	}
}

// DiscoverConversations returns the provider's currently active conversation
// ids.
func (s *TicketService) DiscoverConversations(ctx context.Context) ([]string, error) {
	return s.provider.ListActiveConversations(ctx)
}

// ResolveExternalUser proxies a provider identity lookup by id or email.
func (s *TicketService) ResolveExternalUser(ctx context.Context, bitrixUserID *int, email string) (*model.ExternalUserRecord, error) {
	return s.provider.ResolveUserIdentity(ctx, bitrixUserID, email)
}

// ListTickets returns all persisted tickets.
func (s *TicketService) ListTickets(ctx context.Context) ([]model.Ticket, error) {
	return s.tickets.List(ctx)
}

// DeleteTicket removes a persisted ticket.
func (s *TicketService) DeleteTicket(ctx context.Context, id uuid.UUID) error {
	return s.tickets.Delete(ctx, id)
}

// SyncConversation runs fetch -> analyze for one conversation and, when save
// is set, attribute -> upsert as well. Attribution failures surface as
// explicit errors on this path.
func (s *TicketService) SyncConversation(ctx context.Context, chatID string, limit int, save bool) (*model.ConversationSummary, error) {
	if limit < 1 {
		limit = s.opts.FetchLimit
	}

	conv, err := s.provider.FetchMessages(ctx, chatID, limit)
	if err != nil {
		return nil, err
	}
	summary := s.analyzer.Summarize(conv)

	if !save {
		return summary, nil
	}

	owners, err := s.resolveOwners(ctx, chatID)
	if err != nil {
		return nil, err
	}
	for _, owner := range owners {
		owner := owner
		if _, _, err := s.upsert(ctx, summary, &owner); err != nil {
			return nil, err
		}
	}
	return summary, nil
}

// FullPass reconciles every active conversation. Conversations fan out over
// a bounded worker pool; one conversation's failure skips that conversation
// only and never rolls back another's ticket.
func (s *TicketService) FullPass(ctx context.Context) (*model.SyncReport, error) {
	ctx, span := otel.Tracer("reconciler").Start(ctx, "reconciler.FullPass")
	defer span.End()

	start := time.Now()
	chatIDs, err := s.provider.ListActiveConversations(ctx)
	if err != nil {
		return nil, err
	}

	report := &model.SyncReport{Discovered: len(chatIDs)}
	if len(chatIDs) == 0 {
		// Nothing active is a normal terminal outcome.
		return report, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for _, chatID := range chatIDs {
		chatID := chatID
		g.Go(func() error {
			convCtx, cancel := context.WithTimeout(gctx, s.opts.ProviderTimeout)
			defer cancel()

			upserted, err := s.syncOne(convCtx, chatID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Partial-failure isolation: log and skip, keep the pass going.
				s.logger.Warn("conversation skipped",
					zap.String("chat_id", chatID),
					zap.Error(err),
				)
				metrics.RecordConversationSkipped()
				report.Skipped++
				report.SkippedIDs = append(report.SkippedIDs, chatID)
				return nil
			}
			report.Upserted += upserted
			return nil
		})
	}

	// Workers never return errors; Wait only propagates context cancellation.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("conversations.discovered", report.Discovered),
		attribute.Int("tickets.upserted", report.Upserted),
		attribute.Int("conversations.skipped", report.Skipped),
	)
	metrics.RecordSyncPass(time.Since(start).Seconds())
	s.logger.Info("reconciliation pass finished",
		zap.Int("discovered", report.Discovered),
		zap.Int("upserted", report.Upserted),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}

// syncOne runs fetch -> analyze -> attribute -> upsert for one conversation
// and returns the number of tickets written.
func (s *TicketService) syncOne(ctx context.Context, chatID string) (int, error) {
	conv, err := s.provider.FetchMessages(ctx, chatID, s.opts.FetchLimit)
	if err != nil {
		return 0, err
	}
	summary := s.analyzer.Summarize(conv)

	owners, err := s.resolveOwners(ctx, chatID)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, owner := range owners {
		owner := owner
		if _, _, err := s.upsert(ctx, summary, &owner); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// resolveOwners maps the conversation's responsible operators to local
// accounts according to the configured attribution policy.
func (s *TicketService) resolveOwners(ctx context.Context, chatID string) ([]uuid.UUID, error) {
	operatorIDs, err := s.provider.ResolveResponsibleOperators(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if len(operatorIDs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoResponsibleOperator, chatID)
	}

	var candidates []uuid.UUID
	for _, operatorID := range operatorIDs {
		operatorID := operatorID
		record, err := s.provider.ResolveUserIdentity(ctx, &operatorID, "")
		if err != nil {
			// An operator the provider cannot resolve is not fatal for the
			// conversation; another responsible operator may still match.
			s.logger.Warn("operator identity lookup failed",
				zap.String("chat_id", chatID),
				zap.Int("operator_id", operatorID),
				zap.Error(err),
			)
			continue
		}
		if record.Email == "" {
			continue
		}

		user, err := s.users.GetByEmail(ctx, record.Email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}

		// Refresh the account's provider link when it drifted.
		if user.BitrixID == nil || *user.BitrixID != operatorID {
			if err := s.users.SetBitrixID(ctx, user.ID, operatorID); err != nil {
				s.logger.Warn("failed to refresh operator link",
					zap.String("user_id", user.ID.String()),
					zap.Error(err),
				)
			}
		}
		candidates = append(candidates, user.ID)
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrOperatorNotRegistered, chatID)
	}

	switch s.opts.OwnerPolicy {
	case config.OwnerPolicyFanout:
		return candidates, nil
	case config.OwnerPolicyLast:
		return candidates[len(candidates)-1:], nil
	default:
		return candidates[:1], nil
	}
}

// upsert projects the summary into a ticket for the given owner and writes
// it with find-or-create semantics.
func (s *TicketService) upsert(ctx context.Context, summary *model.ConversationSummary, owner *uuid.UUID) (*model.Ticket, bool, error) {
	status := model.StatusOpen
	var timeClose *time.Time
	if summary.Resolved {
		status = model.StatusClosed
		timeClose = summary.LastMessageAt
	}

	ticket := &model.Ticket{
		ID:             uuid.New(),
		UserID:         owner,
		ChatID:         summary.ChatID,
		ConnectionType: model.ConnectionChat,
		Dialogue:       summary.Dialogue,
		Status:         status,
		TimeOpen:       summary.FirstMessageAt,
		TimeClose:      timeClose,
		Category:       model.CategoryChat,
	}

	created, err := s.tickets.Upsert(ctx, ticket)
	if err != nil {
		return nil, false, err
	}

	metrics.RecordTicketUpsert(created)
	if s.publisher != nil {
		s.publisher.TicketUpserted(ctx, ticket, created)
	}
	return ticket, created, nil
}
