package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"splitbill_backend/internal/model"
	"splitbill_backend/internal/util"
	"splitbill_backend/pkg/events"
	"splitbill_backend/pkg/monitoring"

	"gorm.io/gorm"
)

// ReceiptStorage 收据文件存储
type ReceiptStorage interface {
	Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error)
}

type BillItemInput struct {
	Name        string
	Price       int64
	Quantity    int
	AssigneeIDs []uint
}

type CreateBillInput struct {
	Title    string
	Currency string
	GroupID  *uint
	Tax      int64
	Tip      int64
	Items    []BillItemInput
}

// BillDetail 账单详情及当前分摊结果。存在未分配的明细时 Shares 为空
type BillDetail struct {
	*model.Bill
	Subtotal int64             `json:"subtotal"`
	Total    int64             `json:"total"`
	Shares   []model.BillShare `json:"shares"`
	Complete bool              `json:"complete"`
}

type BillService struct {
	BillRepo  BillStore
	Friends   FriendChecker
	Groups    MembershipChecker
	Storage   ReceiptStorage
	Publisher events.Publisher
	now       func() time.Time
}

func NewBillService(billRepo BillStore, friends FriendChecker, groups MembershipChecker, storage ReceiptStorage, publisher events.Publisher) *BillService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &BillService{
		BillRepo:  billRepo,
		Friends:   friends,
		Groups:    groups,
		Storage:   storage,
		Publisher: publisher,
		now:       time.Now,
	}
}

// checkParticipants 分摊人只能是创建者本人、创建者的好友或账单所属群组的成员
func (s *BillService) checkParticipants(ctx context.Context, creatorID uint, groupID *uint, userIDs []uint) error {
	var others []uint
	for _, id := range uniqueIDs(userIDs) {
		if id != creatorID {
			others = append(others, id)
		}
	}
	if len(others) == 0 {
		return nil
	}

	if groupID != nil {
		ok, err := allInGroup(ctx, s.Groups, *groupID, others)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}

	for _, id := range others {
		ok, err := s.Friends.AreFriends(ctx, creatorID, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("user %d: %w", id, util.ErrNotFriends)
		}
	}
	return nil
}

func (s *BillService) Create(ctx context.Context, creatorID uint, in CreateBillInput) (*BillDetail, error) {
	if len(in.Items) == 0 {
		return nil, util.ErrBillEmpty
	}
	if len(in.Items) > util.MaxBillItems || !validAmount(in.Tax) || !validAmount(in.Tip) {
		return nil, util.ErrInvalidAmount
	}
	currency := util.NormalizeCurrency(in.Currency)
	if currency == "" {
		return nil, util.ErrInvalidCurrency
	}
	if in.GroupID != nil {
		ok, err := allInGroup(ctx, s.Groups, *in.GroupID, []uint{creatorID})
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, util.ErrNotGroupMember
		}
	}

	bill := &model.Bill{
		CreatorID: creatorID,
		GroupID:   in.GroupID,
		Title:     strings.TrimSpace(in.Title),
		Currency:  currency,
		Tax:       in.Tax,
		Tip:       in.Tip,
		Status:    model.BillDraft,
	}
	for _, it := range in.Items {
		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}
		if !validAmount(it.Price) || qty > util.MaxItemQuantity {
			return nil, util.ErrInvalidAmount
		}
		if err := s.checkParticipants(ctx, creatorID, in.GroupID, it.AssigneeIDs); err != nil {
			return nil, err
		}

		item := model.BillItem{Name: strings.TrimSpace(it.Name), Price: it.Price, Quantity: qty}
		for _, id := range uniqueIDs(it.AssigneeIDs) {
			item.Assignees = append(item.Assignees, model.BillItemAssignee{UserID: id})
		}
		bill.Items = append(bill.Items, item)
	}

	if err := s.BillRepo.Create(ctx, bill); err != nil {
		return nil, fmt.Errorf("create bill: %w", err)
	}
	return newBillDetail(bill), nil
}

func newBillDetail(bill *model.Bill) *BillDetail {
	detail := &BillDetail{
		Bill:     bill,
		Subtotal: bill.Subtotal(),
		Total:    bill.Total(),
		Shares:   []model.BillShare{},
	}
	if shares, err := ComputeShares(bill); err == nil {
		detail.Shares = shares
		detail.Complete = true
	}
	return detail
}

func (s *BillService) List(ctx context.Context, userID uint) ([]model.Bill, error) {
	bills, err := s.BillRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if bills == nil {
		bills = []model.Bill{}
	}
	return bills, nil
}

func (s *BillService) find(ctx context.Context, billID uint) (*model.Bill, error) {
	bill, err := s.BillRepo.FindByID(ctx, billID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrBillNotFound
		}
		return nil, err
	}
	return bill, nil
}

// findOwned 查找账单并要求当前用户为创建者
func (s *BillService) findOwned(ctx context.Context, billID, userID uint) (*model.Bill, error) {
	bill, err := s.find(ctx, billID)
	if err != nil {
		return nil, err
	}
	if bill.CreatorID != userID {
		return nil, util.ErrPermissionDenied
	}
	return bill, nil
}

// Get 创建者、任一分摊人或所属群组成员可查看
func (s *BillService) Get(ctx context.Context, billID, userID uint) (*BillDetail, error) {
	bill, err := s.find(ctx, billID)
	if err != nil {
		return nil, err
	}

	allowed := bill.CreatorID == userID
	for i := 0; !allowed && i < len(bill.Items); i++ {
		for _, id := range bill.Items[i].AssigneeIDs() {
			if id == userID {
				allowed = true
				break
			}
		}
	}
	if !allowed && bill.GroupID != nil {
		if allowed, err = allInGroup(ctx, s.Groups, *bill.GroupID, []uint{userID}); err != nil {
			return nil, err
		}
	}
	if !allowed {
		return nil, util.ErrPermissionDenied
	}
	return newBillDetail(bill), nil
}

// SetAssignees 覆盖某条明细的分摊人，仅草稿状态的账单可修改
func (s *BillService) SetAssignees(ctx context.Context, billID, itemID, userID uint, assigneeIDs []uint) (*BillDetail, error) {
	bill, err := s.findOwned(ctx, billID, userID)
	if err != nil {
		return nil, err
	}
	if bill.Status != model.BillDraft {
		return nil, util.ErrBillAlreadyRequested
	}

	var item *model.BillItem
	for i := range bill.Items {
		if bill.Items[i].ID == itemID {
			item = &bill.Items[i]
			break
		}
	}
	if item == nil {
		return nil, util.ErrBillItemNotFound
	}

	ids := uniqueIDs(assigneeIDs)
	if err := s.checkParticipants(ctx, bill.CreatorID, bill.GroupID, ids); err != nil {
		return nil, err
	}
	if err := s.BillRepo.SetAssignees(ctx, itemID, ids); err != nil {
		return nil, fmt.Errorf("set assignees: %w", err)
	}

	item.Assignees = item.Assignees[:0]
	for _, id := range ids {
		item.Assignees = append(item.Assignees, model.BillItemAssignee{ItemID: itemID, UserID: id})
	}
	return newBillDetail(bill), nil
}

// UploadReceipt 保存收据文件并记录访问地址，ext 需带点（如 ".png"）
func (s *BillService) UploadReceipt(ctx context.Context, billID, userID uint, ext string, reader io.Reader, size int64, contentType string) (string, error) {
	if _, err := s.findOwned(ctx, billID, userID); err != nil {
		return "", err
	}

	filename := fmt.Sprintf("receipts/%d/%s%s", billID, model.GenerateUUID(), strings.ToLower(ext))
	url, err := s.Storage.Upload(ctx, filename, reader, size, contentType)
	if err != nil {
		return "", fmt.Errorf("upload receipt: %w", err)
	}
	if err := s.BillRepo.UpdateReceipt(ctx, billID, url); err != nil {
		return "", fmt.Errorf("save receipt url: %w", err)
	}
	return url, nil
}

// RequestPayments 为创建者以外的每个分摊人生成一条 sent 状态的收款请求
func (s *BillService) RequestPayments(ctx context.Context, billID, userID uint) ([]model.PaymentRequest, error) {
	bill, err := s.findOwned(ctx, billID, userID)
	if err != nil {
		return nil, err
	}
	if bill.Status != model.BillDraft {
		return nil, util.ErrBillAlreadyRequested
	}

	shares, err := ComputeShares(bill)
	if err != nil {
		return nil, err
	}

	requests := make([]model.PaymentRequest, 0, len(shares))
	for _, share := range shares {
		if share.UserID == bill.CreatorID || share.Total <= 0 {
			continue
		}
		requests = append(requests, model.PaymentRequest{
			PayerID:     share.UserID,
			PayeeID:     bill.CreatorID,
			Amount:      share.Total,
			Currency:    bill.Currency,
			Description: bill.Title,
			GroupID:     bill.GroupID,
			BillID:      &bill.ID,
			Status:      model.PaymentSent,
		})
	}

	if err := s.BillRepo.CreateRequests(ctx, bill.ID, requests); err != nil {
		return nil, fmt.Errorf("create bill payment requests: %w", err)
	}

	monitoring.PaymentRequestsCreated.WithLabelValues("bill").Add(float64(len(requests)))
	now := s.now()
	for i := range requests {
		publishPaymentEvent(ctx, s.Publisher, events.TypePaymentRequestCreated, &requests[i], userID, now)
	}
	return requests, nil
}
