package model

type BillStatus string

const (
	BillDraft     BillStatus = "draft"
	BillRequested BillStatus = "requested"
)

// Bill 账单：CreatorID 为实际付款给商家的人，分摊后向其他人发起收款请求
// swagger:model Bill
type Bill struct {
	BaseModel
	CreatorID  uint       `gorm:"index;not null" json:"creatorId"`
	GroupID    *uint      `gorm:"index" json:"groupId,omitempty"`
	Title      string     `gorm:"size:200;not null" json:"title"`
	Currency   string     `gorm:"size:3;not null" json:"currency"`
	Tax        int64      `gorm:"default:0" json:"tax"`
	Tip        int64      `gorm:"default:0" json:"tip"`
	ReceiptURL string     `gorm:"size:500" json:"receiptUrl,omitempty"`
	Status     BillStatus `gorm:"size:16;not null;default:'draft';check:chk_bills_status,status IN ('draft','requested')" json:"status"`
	Items      []BillItem `gorm:"foreignKey:BillID" json:"items"`
}

func (Bill) TableName() string {
	return "bills"
}

func (b *Bill) Subtotal() int64 {
	var total int64
	for i := range b.Items {
		total += b.Items[i].LineTotal()
	}
	return total
}

func (b *Bill) Total() int64 {
	return b.Subtotal() + b.Tax + b.Tip
}

type BillItem struct {
	ID        uint               `gorm:"primaryKey;autoIncrement" json:"id"`
	BillID    uint               `gorm:"index;not null" json:"billId"`
	Name      string             `gorm:"size:200;not null" json:"name"`
	Price     int64              `gorm:"not null" json:"price"`
	Quantity  int                `gorm:"not null;default:1" json:"quantity"`
	Assignees []BillItemAssignee `gorm:"foreignKey:ItemID" json:"assignees"`
}

func (BillItem) TableName() string {
	return "bill_items"
}

func (i *BillItem) LineTotal() int64 {
	qty := i.Quantity
	if qty < 1 {
		qty = 1
	}
	return i.Price * int64(qty)
}

func (i *BillItem) AssigneeIDs() []uint {
	ids := make([]uint, 0, len(i.Assignees))
	for _, a := range i.Assignees {
		ids = append(ids, a.UserID)
	}
	return ids
}

type BillItemAssignee struct {
	ItemID uint `gorm:"primaryKey" json:"itemId"`
	UserID uint `gorm:"primaryKey;index" json:"userId"`
}

func (BillItemAssignee) TableName() string {
	return "bill_item_assignees"
}

// BillShare 单个参与者的分摊结果
type BillShare struct {
	UserID   uint  `json:"userId"`
	Subtotal int64 `json:"subtotal"`
	Extra    int64 `json:"extra"`
	Total    int64 `json:"total"`
}
