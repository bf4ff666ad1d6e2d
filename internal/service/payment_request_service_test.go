package service

import (
	"context"
	"testing"
	"time"

	"splitbill_backend/internal/model"
	"splitbill_backend/internal/util"
	"splitbill_backend/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	payerID uint = 1
	payeeID uint = 2
	otherID uint = 3
)

type paymentFixture struct {
	svc       *PaymentRequestService
	repo      *fakePayments
	friends   *fakeFriends
	groups    *fakeGroups
	publisher *recordingPublisher
	now       time.Time
}

func newPaymentFixture() *paymentFixture {
	users := newFakeUsers(
		model.User{BaseModel: model.BaseModel{ID: payerID}, Name: "payer", Email: "payer@example.com"},
		model.User{BaseModel: model.BaseModel{ID: payeeID}, Name: "payee", Email: "payee@example.com"},
		model.User{BaseModel: model.BaseModel{ID: otherID}, Name: "other", Email: "other@example.com"},
	)
	f := &paymentFixture{
		repo:      newFakePayments(),
		friends:   newFakeFriends(),
		groups:    newFakeGroups(),
		publisher: &recordingPublisher{},
		now:       time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	f.friends.befriend(payerID, payeeID)
	f.svc = NewPaymentRequestService(f.repo, users, f.friends, f.groups, f.publisher)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *paymentFixture) seed(status model.PaymentStatus) uint {
	f.repo.put(model.PaymentRequest{
		ID: 10, PayerID: payerID, PayeeID: payeeID, Amount: 1500, Currency: "USD", Status: status,
	})
	return 10
}

func TestPaymentRequestService_Create(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	view, err := f.svc.Create(ctx, payeeID, CreatePaymentRequestInput{
		PayerID: payerID, Amount: 2500, Currency: "usd", Description: " dinner ",
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentSent, view.Status)
	assert.Equal(t, "USD", view.Currency)
	assert.Equal(t, "dinner", view.Description)
	assert.Equal(t, "Sent", view.Label)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, events.TypePaymentRequestCreated, f.publisher.events[0].Type)
	assert.Equal(t, payeeID, f.publisher.events[0].ActorID)

	stored, err := f.repo.FindByID(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), stored.Amount)
}

func TestPaymentRequestService_CreateValidation(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	cases := []struct {
		name string
		in   CreatePaymentRequestInput
		want error
	}{
		{"self", CreatePaymentRequestInput{PayerID: payeeID, Amount: 100, Currency: "USD"}, util.ErrSelfPaymentRequest},
		{"zero amount", CreatePaymentRequestInput{PayerID: payerID, Amount: 0, Currency: "USD"}, util.ErrInvalidAmount},
		{"bad currency", CreatePaymentRequestInput{PayerID: payerID, Amount: 100, Currency: "US"}, util.ErrInvalidCurrency},
		{"unknown payer", CreatePaymentRequestInput{PayerID: 42, Amount: 100, Currency: "USD"}, util.ErrUserNotFound},
		{"not friends", CreatePaymentRequestInput{PayerID: otherID, Amount: 100, Currency: "USD"}, util.ErrNotFriends},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, payeeID, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, f.publisher.events)
}

func TestPaymentRequestService_CreateInGroup(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	f.groups.seed(5, map[uint]model.GroupRole{payeeID: model.RoleAdmin, otherID: model.RoleMember})
	groupID := uint(5)

	view, err := f.svc.Create(ctx, payeeID, CreatePaymentRequestInput{
		PayerID: otherID, Amount: 700, Currency: "EUR", GroupID: &groupID,
	})
	require.NoError(t, err)
	require.NotNil(t, view.GroupID)
	assert.Equal(t, groupID, *view.GroupID)

	_, err = f.svc.Create(ctx, payeeID, CreatePaymentRequestInput{
		PayerID: payerID, Amount: 700, Currency: "EUR", GroupID: &groupID,
	})
	assert.ErrorIs(t, err, util.ErrNotGroupMember)
}

func TestPaymentRequestService_TransitionTable(t *testing.T) {
	cases := []struct {
		from   model.PaymentStatus
		action PaymentAction
		actor  uint
		want   model.PaymentStatus
	}{
		{model.PaymentSent, ActionAccept, payerID, model.PaymentAccepted},
		{model.PaymentPending, ActionAccept, payerID, model.PaymentAccepted},
		{model.PaymentSent, ActionReject, payerID, model.PaymentRejected},
		{model.PaymentSent, ActionMarkPaid, payerID, model.PaymentPaidPendingConfirmation},
		{model.PaymentAccepted, ActionMarkPaid, payerID, model.PaymentPaidPendingConfirmation},
		{model.PaymentPaidPendingConfirmation, ActionConfirm, payeeID, model.PaymentCompleted},
		{model.PaymentPaidPendingConfirmation, ActionDispute, payeeID, model.PaymentDisputed},
		{model.PaymentAccepted, ActionCancel, payeeID, model.PaymentCancelled},
		{model.PaymentPending, ActionCancel, payeeID, model.PaymentCancelled},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"/"+string(tc.action), func(t *testing.T) {
			f := newPaymentFixture()
			id := f.seed(tc.from)

			view, err := f.svc.Apply(context.Background(), id, tc.actor, tc.action)
			require.NoError(t, err)
			assert.Equal(t, tc.want, view.Status)

			stored, _ := f.repo.FindByID(context.Background(), id)
			assert.Equal(t, tc.want, stored.Status)
			require.Len(t, f.publisher.events, 1)
			assert.Equal(t, events.TypePaymentRequestUpdated, f.publisher.events[0].Type)
			assert.Equal(t, string(tc.want), f.publisher.events[0].Status)
		})
	}
}

func TestPaymentRequestService_ConfirmSetsCompletedAt(t *testing.T) {
	f := newPaymentFixture()
	id := f.seed(model.PaymentPaidPendingConfirmation)

	view, err := f.svc.Apply(context.Background(), id, payeeID, ActionConfirm)
	require.NoError(t, err)
	require.NotNil(t, view.CompletedAt)
	assert.True(t, f.now.Equal(*view.CompletedAt))
	assert.Equal(t, "completed", view.Label)
}

func TestPaymentRequestService_InvalidTransition(t *testing.T) {
	cases := []struct {
		from   model.PaymentStatus
		action PaymentAction
		actor  uint
	}{
		{model.PaymentCompleted, ActionAccept, payerID},
		{model.PaymentAccepted, ActionAccept, payerID},
		{model.PaymentSent, ActionConfirm, payeeID},
		{model.PaymentPaidPendingConfirmation, ActionCancel, payeeID},
		{model.PaymentRejected, ActionMarkPaid, payerID},
		{model.PaymentDisputed, ActionDispute, payeeID},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"/"+string(tc.action), func(t *testing.T) {
			f := newPaymentFixture()
			id := f.seed(tc.from)

			_, err := f.svc.Apply(context.Background(), id, tc.actor, tc.action)
			assert.ErrorIs(t, err, util.ErrInvalidTransition)

			stored, _ := f.repo.FindByID(context.Background(), id)
			assert.Equal(t, tc.from, stored.Status)
			assert.Empty(t, f.publisher.events)
		})
	}
}

func TestPaymentRequestService_WrongActor(t *testing.T) {
	f := newPaymentFixture()
	id := f.seed(model.PaymentSent)
	ctx := context.Background()

	_, err := f.svc.Apply(ctx, id, payeeID, ActionAccept)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = f.svc.Apply(ctx, id, payerID, ActionCancel)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = f.svc.Apply(ctx, id, otherID, ActionReject)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = f.svc.Apply(ctx, id, payerID, PaymentAction("pay"))
	assert.ErrorIs(t, err, util.ErrUnknownAction)

	_, err = f.svc.Apply(ctx, 999, payerID, ActionAccept)
	assert.ErrorIs(t, err, util.ErrPaymentRequestNotFound)
}

func TestPaymentRequestService_PublishFailureDoesNotFail(t *testing.T) {
	f := newPaymentFixture()
	f.publisher.err = errStoreDown
	id := f.seed(model.PaymentSent)

	view, err := f.svc.Apply(context.Background(), id, payerID, ActionAccept)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentAccepted, view.Status)
}

func TestPaymentRequestService_GetAndList(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	f.repo.put(model.PaymentRequest{ID: 1, PayerID: payerID, PayeeID: payeeID, Amount: 100, Currency: "USD", Status: model.PaymentSent})
	f.repo.put(model.PaymentRequest{ID: 2, PayerID: payeeID, PayeeID: payerID, Amount: 200, Currency: "USD", Status: model.PaymentAccepted})
	f.repo.put(model.PaymentRequest{ID: 3, PayerID: otherID, PayeeID: payeeID, Amount: 300, Currency: "USD", Status: model.PaymentSent})

	view, err := f.svc.Get(ctx, 1, payerID)
	require.NoError(t, err)
	assert.Equal(t, "Waiting for your response", view.Label)

	_, err = f.svc.Get(ctx, 3, payerID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	incoming, total, err := f.svc.List(ctx, payerID, ListPaymentRequestsInput{Direction: "incoming"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, uint(1), incoming[0].ID)

	all, total, err := f.svc.List(ctx, payerID, ListPaymentRequestsInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	accepted, _, err := f.svc.List(ctx, payerID, ListPaymentRequestsInput{Status: "accepted"})
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, uint(2), accepted[0].ID)

	_, _, err = f.svc.List(ctx, payerID, ListPaymentRequestsInput{Direction: "sideways"})
	assert.ErrorIs(t, err, util.ErrInvalidDirection)

	_, _, err = f.svc.List(ctx, payerID, ListPaymentRequestsInput{Status: "paid"})
	assert.ErrorIs(t, err, model.ErrInvalidPaymentStatus)
}

func TestSummarizePayments(t *testing.T) {
	list := []model.PaymentRequest{
		{PayerID: 1, PayeeID: 2, Amount: 100, Currency: "USD", Status: model.PaymentSent},
		{PayerID: 1, PayeeID: 3, Amount: 50, Currency: "USD", Status: model.PaymentPaidPendingConfirmation},
		{PayerID: 2, PayeeID: 1, Amount: 70, Currency: "USD", Status: model.PaymentAccepted},
		{PayerID: 1, PayeeID: 2, Amount: 30, Currency: "USD", Status: model.PaymentCompleted},
		{PayerID: 3, PayeeID: 1, Amount: 40, Currency: "EUR", Status: model.PaymentCompleted},
		{PayerID: 1, PayeeID: 2, Amount: 999, Currency: "EUR", Status: model.PaymentRejected},
		{PayerID: 2, PayeeID: 1, Amount: 999, Currency: "EUR", Status: model.PaymentDisputed},
	}

	got := SummarizePayments(list, 1)
	require.Len(t, got, 2)
	assert.Equal(t, CurrencySummary{Currency: "EUR", ReceivedTotal: 40}, got[0])
	assert.Equal(t, CurrencySummary{Currency: "USD", YouOwe: 150, OwedToYou: 70, PaidTotal: 30}, got[1])

	assert.Empty(t, SummarizePayments(nil, 1))
}
