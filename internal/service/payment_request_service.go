package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"splitbill_backend/internal/model"
	"splitbill_backend/internal/repository"
	"splitbill_backend/internal/util"
	"splitbill_backend/pkg/events"
	"splitbill_backend/pkg/logger"
	"splitbill_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PaymentAction string

const (
	ActionAccept   PaymentAction = "accept"
	ActionReject   PaymentAction = "reject"
	ActionMarkPaid PaymentAction = "mark_paid"
	ActionConfirm  PaymentAction = "confirm"
	ActionDispute  PaymentAction = "dispute"
	ActionCancel   PaymentAction = "cancel"
)

type paymentActor int

const (
	actorPayer paymentActor = iota
	actorPayee
)

type transitionRule struct {
	actor paymentActor
	from  []model.PaymentStatus
	to    model.PaymentStatus
}

// 付款方：accept / reject / mark_paid；收款方：confirm / dispute / cancel
var paymentTransitions = map[PaymentAction]transitionRule{
	ActionAccept:   {actorPayer, []model.PaymentStatus{model.PaymentPending, model.PaymentSent}, model.PaymentAccepted},
	ActionReject:   {actorPayer, []model.PaymentStatus{model.PaymentPending, model.PaymentSent}, model.PaymentRejected},
	ActionMarkPaid: {actorPayer, []model.PaymentStatus{model.PaymentSent, model.PaymentAccepted}, model.PaymentPaidPendingConfirmation},
	ActionConfirm:  {actorPayee, []model.PaymentStatus{model.PaymentPaidPendingConfirmation}, model.PaymentCompleted},
	ActionDispute:  {actorPayee, []model.PaymentStatus{model.PaymentPaidPendingConfirmation}, model.PaymentDisputed},
	ActionCancel:   {actorPayee, []model.PaymentStatus{model.PaymentPending, model.PaymentSent, model.PaymentAccepted}, model.PaymentCancelled},
}

// PaymentRequestView 附带查看者视角状态文案的收款请求
type PaymentRequestView struct {
	model.PaymentRequest
	Label             string `json:"label"`
	StatusDescription string `json:"statusDescription"`
}

func NewPaymentRequestView(pr *model.PaymentRequest, viewerID uint) PaymentRequestView {
	view := pr.ViewFor(viewerID)
	return PaymentRequestView{
		PaymentRequest:    *pr,
		Label:             view.Label,
		StatusDescription: view.Description,
	}
}

type CreatePaymentRequestInput struct {
	PayerID     uint
	Amount      int64
	Currency    string
	Description string
	GroupID     *uint
}

type ListPaymentRequestsInput struct {
	Direction string
	Status    string
	Limit     int
	Offset    int
}

// CurrencySummary 单一币种的应付/应收汇总
type CurrencySummary struct {
	Currency      string `json:"currency"`
	YouOwe        int64  `json:"youOwe"`
	OwedToYou     int64  `json:"owedToYou"`
	PaidTotal     int64  `json:"paidTotal"`
	ReceivedTotal int64  `json:"receivedTotal"`
}

type PaymentRequestService struct {
	Repo      PaymentRequestStore
	UserRepo  UserStore
	Friends   FriendChecker
	Groups    MembershipChecker
	Publisher events.Publisher
	now       func() time.Time
}

func NewPaymentRequestService(repo PaymentRequestStore, userRepo UserStore, friends FriendChecker, groups MembershipChecker, publisher events.Publisher) *PaymentRequestService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &PaymentRequestService{
		Repo:      repo,
		UserRepo:  userRepo,
		Friends:   friends,
		Groups:    groups,
		Publisher: publisher,
		now:       time.Now,
	}
}

// Create 由收款方发起，付款方必须是好友或同一群组成员
func (s *PaymentRequestService) Create(ctx context.Context, payeeID uint, in CreatePaymentRequestInput) (*PaymentRequestView, error) {
	if in.PayerID == payeeID {
		return nil, util.ErrSelfPaymentRequest
	}
	if in.Amount <= 0 {
		return nil, util.ErrInvalidAmount
	}
	currency := util.NormalizeCurrency(in.Currency)
	if currency == "" {
		return nil, util.ErrInvalidCurrency
	}

	if _, err := s.UserRepo.FindByID(ctx, in.PayerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}

	if in.GroupID != nil {
		ok, err := allInGroup(ctx, s.Groups, *in.GroupID, []uint{payeeID, in.PayerID})
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, util.ErrNotGroupMember
		}
	} else {
		ok, err := s.Friends.AreFriends(ctx, payeeID, in.PayerID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, util.ErrNotFriends
		}
	}

	pr := &model.PaymentRequest{
		PayerID:     in.PayerID,
		PayeeID:     payeeID,
		Amount:      in.Amount,
		Currency:    currency,
		Description: strings.TrimSpace(in.Description),
		GroupID:     in.GroupID,
		Status:      model.PaymentSent,
	}
	if err := s.Repo.Create(ctx, pr); err != nil {
		return nil, fmt.Errorf("create payment request: %w", err)
	}

	monitoring.PaymentRequestsCreated.WithLabelValues("manual").Inc()
	s.publish(ctx, events.TypePaymentRequestCreated, pr, payeeID)

	view := NewPaymentRequestView(pr, payeeID)
	return &view, nil
}

func (s *PaymentRequestService) List(ctx context.Context, userID uint, in ListPaymentRequestsInput) ([]PaymentRequestView, int64, error) {
	direction := in.Direction
	switch direction {
	case "":
		direction = "all"
	case "incoming", "outgoing", "all":
	default:
		return nil, 0, util.ErrInvalidDirection
	}

	var status model.PaymentStatus
	if in.Status != "" {
		parsed, err := model.ParsePaymentStatus(in.Status)
		if err != nil {
			return nil, 0, err
		}
		status = parsed
	}

	list, total, err := s.Repo.List(ctx, repository.PaymentRequestFilter{
		UserID:    userID,
		Direction: direction,
		Status:    status,
		Limit:     in.Limit,
		Offset:    in.Offset,
	})
	if err != nil {
		return nil, 0, err
	}

	views := make([]PaymentRequestView, 0, len(list))
	for i := range list {
		views = append(views, NewPaymentRequestView(&list[i], userID))
	}
	return views, total, nil
}

func (s *PaymentRequestService) find(ctx context.Context, id uint) (*model.PaymentRequest, error) {
	pr, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrPaymentRequestNotFound
		}
		return nil, err
	}
	return pr, nil
}

// Get 仅付款方与收款方可查看
func (s *PaymentRequestService) Get(ctx context.Context, id, userID uint) (*PaymentRequestView, error) {
	pr, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if pr.PayerID != userID && pr.PayeeID != userID {
		return nil, util.ErrPermissionDenied
	}
	view := NewPaymentRequestView(pr, userID)
	return &view, nil
}

// Apply 执行状态变更。条件更新未命中说明当前状态不允许该操作
func (s *PaymentRequestService) Apply(ctx context.Context, id, actorID uint, action PaymentAction) (*PaymentRequestView, error) {
	rule, ok := paymentTransitions[action]
	if !ok {
		return nil, util.ErrUnknownAction
	}

	pr, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if (rule.actor == actorPayer && pr.PayerID != actorID) ||
		(rule.actor == actorPayee && pr.PayeeID != actorID) {
		return nil, util.ErrPermissionDenied
	}

	now := s.now()
	changed, err := s.Repo.Transition(ctx, id, rule.from, rule.to, now)
	if err != nil {
		return nil, fmt.Errorf("transition payment request: %w", err)
	}
	if !changed {
		return nil, util.ErrInvalidTransition
	}

	monitoring.PaymentTransitions.WithLabelValues(string(action), string(rule.to)).Inc()

	pr.Status = rule.to
	pr.UpdatedAt = now
	if rule.to == model.PaymentCompleted {
		pr.CompletedAt = &now
	}
	s.publish(ctx, events.TypePaymentRequestUpdated, pr, actorID)

	view := NewPaymentRequestView(pr, actorID)
	return &view, nil
}

// Summary 按币种汇总：未结束的请求计入应付/应收，已完成的计入已付/已收
func (s *PaymentRequestService) Summary(ctx context.Context, userID uint) ([]CurrencySummary, error) {
	list, err := s.Repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return SummarizePayments(list, userID), nil
}

func SummarizePayments(list []model.PaymentRequest, userID uint) []CurrencySummary {
	byCurrency := map[string]*CurrencySummary{}
	for _, pr := range list {
		sum, ok := byCurrency[pr.Currency]
		if !ok {
			sum = &CurrencySummary{Currency: pr.Currency}
			byCurrency[pr.Currency] = sum
		}

		switch {
		case pr.Status == model.PaymentCompleted && pr.PayerID == userID:
			sum.PaidTotal += pr.Amount
		case pr.Status == model.PaymentCompleted && pr.PayeeID == userID:
			sum.ReceivedTotal += pr.Amount
		case pr.Status.Terminal():
			// 已拒绝、取消或有争议的请求不计入
		case pr.PayerID == userID:
			sum.YouOwe += pr.Amount
		case pr.PayeeID == userID:
			sum.OwedToYou += pr.Amount
		}
	}

	out := make([]CurrencySummary, 0, len(byCurrency))
	for _, sum := range byCurrency {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out
}

func (s *PaymentRequestService) publish(ctx context.Context, typ string, pr *model.PaymentRequest, actorID uint) {
	publishPaymentEvent(ctx, s.Publisher, typ, pr, actorID, s.now())
}

// publishPaymentEvent 事件发送失败只记录日志，不影响已提交的业务操作
func publishPaymentEvent(ctx context.Context, publisher events.Publisher, typ string, pr *model.PaymentRequest, actorID uint, at time.Time) {
	evt := events.PaymentRequestEvent{
		Type:       typ,
		RequestID:  pr.ID,
		PayerID:    pr.PayerID,
		PayeeID:    pr.PayeeID,
		ActorID:    actorID,
		Status:     string(pr.Status),
		Amount:     pr.Amount,
		Currency:   pr.Currency,
		BillID:     pr.BillID,
		OccurredAt: at,
	}
	if err := publisher.PublishPaymentRequest(ctx, evt); err != nil {
		logger.Log.Warn("publish payment request event failed",
			zap.Uint("request_id", pr.ID),
			zap.String("type", typ),
			zap.Error(err),
		)
	}
}
