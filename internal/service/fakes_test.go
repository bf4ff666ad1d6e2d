package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"splitbill_backend/internal/model"
	"splitbill_backend/internal/repository"
	"splitbill_backend/pkg/events"

	"gorm.io/gorm"
)

// 内存版存储实现，只覆盖服务层依赖的行为

type fakeUsers struct {
	byID   map[uint]*model.User
	nextID uint
}

func newFakeUsers(users ...model.User) *fakeUsers {
	f := &fakeUsers{byID: map[uint]*model.User{}, nextID: 1}
	for i := range users {
		u := users[i]
		f.byID[u.ID] = &u
		if u.ID >= f.nextID {
			f.nextID = u.ID + 1
		}
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, user *model.User) error {
	for _, u := range f.byID {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	user.ID = f.nextID
	f.nextID++
	cp := *user
	f.byID[user.ID] = &cp
	return nil
}

func (f *fakeUsers) FindByID(_ context.Context, id uint) (*model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) Search(_ context.Context, query string, excludeID uint, limit int) ([]model.User, error) {
	var out []model.User
	for _, u := range f.byID {
		if u.ID == excludeID {
			continue
		}
		if strings.Contains(u.Name, query) || strings.Contains(u.Email, query) {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeUsers) UpdateLastLogin(_ context.Context, userID uint, at time.Time) error {
	u, ok := f.byID[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.LastLogin = &at
	return nil
}

func (f *fakeUsers) UpdateFields(_ context.Context, userID uint, fields map[string]interface{}) error {
	u, ok := f.byID[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range fields {
		switch k {
		case "name":
			u.Name = v.(string)
		case "avatar":
			u.Avatar = v.(string)
		case "currency":
			u.Currency = v.(string)
		case "password":
			u.Password = v.(string)
		}
	}
	return nil
}

type fakeFriends struct {
	rows map[[2]uint]*model.Friendship
}

func newFakeFriends() *fakeFriends {
	return &fakeFriends{rows: map[[2]uint]*model.Friendship{}}
}

func (f *fakeFriends) befriend(a, b uint) {
	f.rows[[2]uint{a, b}] = &model.Friendship{UserID: a, FriendID: b, Status: model.FriendshipAccepted}
	f.rows[[2]uint{b, a}] = &model.Friendship{UserID: b, FriendID: a, Status: model.FriendshipAccepted}
}

func (f *fakeFriends) Get(_ context.Context, userID, friendID uint) (*model.Friendship, error) {
	row, ok := f.rows[[2]uint{userID, friendID}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *row
	return &cp, nil
}

func (f *fakeFriends) CreateRequest(_ context.Context, fr *model.Friendship) error {
	cp := *fr
	f.rows[[2]uint{fr.UserID, fr.FriendID}] = &cp
	return nil
}

func (f *fakeFriends) Accept(_ context.Context, requesterID, receiverID uint) error {
	row, ok := f.rows[[2]uint{requesterID, receiverID}]
	if !ok || row.Status != model.FriendshipPending {
		return gorm.ErrRecordNotFound
	}
	f.befriend(requesterID, receiverID)
	return nil
}

func (f *fakeFriends) Block(_ context.Context, requesterID, receiverID uint) error {
	row, ok := f.rows[[2]uint{requesterID, receiverID}]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	row.Status = model.FriendshipBlocked
	return nil
}

func (f *fakeFriends) DeleteRequest(_ context.Context, requesterID, receiverID uint) error {
	if _, ok := f.rows[[2]uint{requesterID, receiverID}]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.rows, [2]uint{requesterID, receiverID})
	return nil
}

func (f *fakeFriends) DeletePair(_ context.Context, userID, friendID uint) error {
	delete(f.rows, [2]uint{userID, friendID})
	delete(f.rows, [2]uint{friendID, userID})
	return nil
}

func (f *fakeFriends) ListFriends(_ context.Context, userID uint, _ string) ([]model.User, error) {
	var out []model.User
	for k, row := range f.rows {
		if k[0] == userID && row.Status == model.FriendshipAccepted {
			out = append(out, model.User{BaseModel: model.BaseModel{ID: k[1]}})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeFriends) ListIncoming(_ context.Context, userID uint) ([]model.Friendship, error) {
	var out []model.Friendship
	for k, row := range f.rows {
		if k[1] == userID && row.Status == model.FriendshipPending {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakeFriends) ListBetween(_ context.Context, userID uint, otherIDs []uint) ([]model.Friendship, error) {
	var out []model.Friendship
	for _, id := range otherIDs {
		if row, ok := f.rows[[2]uint{userID, id}]; ok {
			out = append(out, *row)
		}
		if row, ok := f.rows[[2]uint{id, userID}]; ok {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakeFriends) AreFriends(_ context.Context, userID, otherID uint) (bool, error) {
	row, ok := f.rows[[2]uint{userID, otherID}]
	return ok && row.Status == model.FriendshipAccepted, nil
}

type fakeGroups struct {
	groups      map[uint]*model.Group
	members     map[uint]map[uint]model.GroupRole
	invitations map[string]*model.GroupInvitation
	nextID      uint
	deleted     []uint

	// 与 GroupRepository.Delete 一致，删除群组时解除关联的收款请求与账单
	payments *fakePayments
	bills    *fakeBills
}

func newFakeGroups() *fakeGroups {
	return &fakeGroups{
		groups:      map[uint]*model.Group{},
		members:     map[uint]map[uint]model.GroupRole{},
		invitations: map[string]*model.GroupInvitation{},
		nextID:      1,
	}
}

// seed 直接写入一个群组及其成员
func (f *fakeGroups) seed(id uint, roles map[uint]model.GroupRole) {
	f.groups[id] = &model.Group{BaseModel: model.BaseModel{ID: id}, Name: "trip", Currency: "USD"}
	f.members[id] = roles
	if id >= f.nextID {
		f.nextID = id + 1
	}
}

func (f *fakeGroups) Create(_ context.Context, group *model.Group, members []model.GroupMember) error {
	group.ID = f.nextID
	f.nextID++
	cp := *group
	f.groups[group.ID] = &cp
	f.members[group.ID] = map[uint]model.GroupRole{}
	for _, m := range members {
		f.members[group.ID][m.UserID] = m.Role
	}
	return nil
}

func (f *fakeGroups) FindByID(_ context.Context, id uint) (*model.Group, error) {
	g, ok := f.groups[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *g
	cp.Members = nil
	ids := make([]uint, 0, len(f.members[id]))
	for uid := range f.members[id] {
		ids = append(ids, uid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, uid := range ids {
		cp.Members = append(cp.Members, model.GroupMember{GroupID: id, UserID: uid, Role: f.members[id][uid]})
	}
	return &cp, nil
}

func (f *fakeGroups) ListForUser(_ context.Context, userID uint) ([]model.GroupSummary, error) {
	var out []model.GroupSummary
	for id, roles := range f.members {
		if role, ok := roles[userID]; ok {
			out = append(out, model.GroupSummary{Group: *f.groups[id], Role: role, MemberCount: int64(len(roles))})
		}
	}
	return out, nil
}

func (f *fakeGroups) Member(_ context.Context, groupID, userID uint) (*model.GroupMember, error) {
	role, ok := f.members[groupID][userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &model.GroupMember{GroupID: groupID, UserID: userID, Role: role}, nil
}

func (f *fakeGroups) CountMembers(_ context.Context, groupID uint, userIDs []uint) (int64, error) {
	var n int64
	for _, id := range userIDs {
		if _, ok := f.members[groupID][id]; ok {
			n++
		}
	}
	return n, nil
}

func (f *fakeGroups) CountByRole(_ context.Context, groupID uint) (int64, int64, error) {
	var admins int64
	for _, role := range f.members[groupID] {
		if role == model.RoleAdmin {
			admins++
		}
	}
	return admins, int64(len(f.members[groupID])), nil
}

func (f *fakeGroups) Update(_ context.Context, groupID uint, fields map[string]interface{}) error {
	g := f.groups[groupID]
	if v, ok := fields["name"]; ok {
		g.Name = v.(string)
	}
	if v, ok := fields["description"]; ok {
		g.Description = v.(string)
	}
	if v, ok := fields["currency"]; ok {
		g.Currency = v.(string)
	}
	return nil
}

func (f *fakeGroups) RemoveMember(_ context.Context, groupID, userID uint) error {
	delete(f.members[groupID], userID)
	return nil
}

func (f *fakeGroups) UpdateRole(_ context.Context, groupID, userID uint, role model.GroupRole) error {
	f.members[groupID][userID] = role
	return nil
}

func (f *fakeGroups) Delete(_ context.Context, groupID uint) error {
	for token, inv := range f.invitations {
		if inv.GroupID == groupID {
			delete(f.invitations, token)
		}
	}
	if f.payments != nil {
		for _, pr := range f.payments.byID {
			if pr.GroupID != nil && *pr.GroupID == groupID {
				pr.GroupID = nil
			}
		}
	}
	if f.bills != nil {
		for _, b := range f.bills.byID {
			if b.GroupID != nil && *b.GroupID == groupID {
				b.GroupID = nil
			}
		}
	}
	delete(f.groups, groupID)
	delete(f.members, groupID)
	f.deleted = append(f.deleted, groupID)
	return nil
}

func (f *fakeGroups) CreateInvitation(_ context.Context, inv *model.GroupInvitation) error {
	cp := *inv
	f.invitations[inv.Token] = &cp
	return nil
}

func (f *fakeGroups) FindInvitation(_ context.Context, token string) (*model.GroupInvitation, error) {
	inv, ok := f.invitations[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeGroups) AcceptInvitation(_ context.Context, token string, userID uint, at time.Time) error {
	inv, ok := f.invitations[token]
	if !ok || inv.Accepted || !at.Before(inv.ExpiresAt) {
		return gorm.ErrRecordNotFound
	}
	inv.Accepted = true
	inv.AcceptedBy = &userID
	inv.AcceptedAt = &at
	f.members[inv.GroupID][userID] = model.RoleMember
	return nil
}

type fakePayments struct {
	mu     sync.Mutex
	byID   map[uint]*model.PaymentRequest
	nextID uint
}

func newFakePayments() *fakePayments {
	return &fakePayments{byID: map[uint]*model.PaymentRequest{}, nextID: 1}
}

func (f *fakePayments) put(pr model.PaymentRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[pr.ID] = &pr
	if pr.ID >= f.nextID {
		f.nextID = pr.ID + 1
	}
}

func (f *fakePayments) Create(_ context.Context, pr *model.PaymentRequest) error {
	if err := pr.BeforeCreate(nil); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	pr.ID = f.nextID
	f.nextID++
	cp := *pr
	f.byID[pr.ID] = &cp
	return nil
}

func (f *fakePayments) FindByID(_ context.Context, id uint) (*model.PaymentRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pr, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *pr
	return &cp, nil
}

func (f *fakePayments) List(_ context.Context, filter repository.PaymentRequestFilter) ([]model.PaymentRequest, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.PaymentRequest
	for _, pr := range f.byID {
		switch filter.Direction {
		case "incoming":
			if pr.PayerID != filter.UserID {
				continue
			}
		case "outgoing":
			if pr.PayeeID != filter.UserID {
				continue
			}
		default:
			if pr.PayerID != filter.UserID && pr.PayeeID != filter.UserID {
				continue
			}
		}
		if filter.Status != "" && pr.Status != filter.Status {
			continue
		}
		out = append(out, *pr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakePayments) ListForUser(_ context.Context, userID uint) ([]model.PaymentRequest, error) {
	list, _, err := f.List(context.Background(), repository.PaymentRequestFilter{UserID: userID, Direction: "all"})
	return list, err
}

// Transition 模拟带状态条件的 UPDATE
func (f *fakePayments) Transition(_ context.Context, id uint, from []model.PaymentStatus, to model.PaymentStatus, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pr, ok := f.byID[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if pr.Status == s {
			pr.Status = to
			pr.UpdatedAt = at
			if to == model.PaymentCompleted {
				pr.CompletedAt = &at
			}
			return true, nil
		}
	}
	return false, nil
}

type fakeBills struct {
	byID     map[uint]*model.Bill
	nextID   uint
	nextItem uint
	requests []model.PaymentRequest
	receipt  string
}

func newFakeBills() *fakeBills {
	return &fakeBills{byID: map[uint]*model.Bill{}, nextID: 1, nextItem: 1}
}

func (f *fakeBills) Create(_ context.Context, bill *model.Bill) error {
	bill.ID = f.nextID
	f.nextID++
	for i := range bill.Items {
		bill.Items[i].ID = f.nextItem
		bill.Items[i].BillID = bill.ID
		f.nextItem++
		for j := range bill.Items[i].Assignees {
			bill.Items[i].Assignees[j].ItemID = bill.Items[i].ID
		}
	}
	f.byID[bill.ID] = bill
	return nil
}

func (f *fakeBills) FindByID(_ context.Context, id uint) (*model.Bill, error) {
	b, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return b, nil
}

func (f *fakeBills) ListForUser(_ context.Context, userID uint) ([]model.Bill, error) {
	var out []model.Bill
	for _, b := range f.byID {
		if b.CreatorID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBills) SetAssignees(_ context.Context, itemID uint, userIDs []uint) error {
	for _, b := range f.byID {
		for i := range b.Items {
			if b.Items[i].ID != itemID {
				continue
			}
			b.Items[i].Assignees = nil
			for _, id := range userIDs {
				b.Items[i].Assignees = append(b.Items[i].Assignees, model.BillItemAssignee{ItemID: itemID, UserID: id})
			}
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeBills) UpdateReceipt(_ context.Context, billID uint, url string) error {
	f.byID[billID].ReceiptURL = url
	f.receipt = url
	return nil
}

func (f *fakeBills) CreateRequests(_ context.Context, billID uint, requests []model.PaymentRequest) error {
	b := f.byID[billID]
	if b.Status != model.BillDraft {
		return gorm.ErrRecordNotFound
	}
	b.Status = model.BillRequested
	for i := range requests {
		requests[i].ID = uint(len(f.requests) + 1)
		f.requests = append(f.requests, requests[i])
	}
	return nil
}

type recordingPublisher struct {
	events []events.PaymentRequestEvent
	err    error
}

func (p *recordingPublisher) PublishPaymentRequest(_ context.Context, evt events.PaymentRequestEvent) error {
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type memoryStorage struct {
	files map[string]string
}

func (m *memoryStorage) Upload(_ context.Context, filename string, reader io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	if m.files == nil {
		m.files = map[string]string{}
	}
	m.files[filename] = string(data)
	return "/uploads/" + filename, nil
}

var errStoreDown = errors.New("store unavailable")
