package service

import (
	"math/bits"
	"sort"

	"splitbill_backend/internal/model"
	"splitbill_backend/internal/util"
)

// ComputeShares 计算账单每位参与者的应付金额。
//
// 每条明细的金额在分摊人之间平均分配，余下的分按用户 ID 升序逐个补 1；
// 税费和小费按小计比例分配（最大余数法），保证所有份额之和等于账单总额。
// 小计全为 0 时税费和小费平均分配。
func ComputeShares(bill *model.Bill) ([]model.BillShare, error) {
	if len(bill.Items) == 0 {
		return nil, util.ErrBillEmpty
	}
	if err := checkBounds(bill); err != nil {
		return nil, err
	}

	subtotals := map[uint]int64{}
	for i := range bill.Items {
		item := &bill.Items[i]
		ids := uniqueIDs(item.AssigneeIDs())
		if len(ids) == 0 {
			return nil, util.ErrUnassignedItem
		}
		sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

		for j, amount := range splitEven(item.LineTotal(), len(ids)) {
			subtotals[ids[j]] += amount
		}
	}

	users := make([]uint, 0, len(subtotals))
	var subtotal int64
	for id, amount := range subtotals {
		users = append(users, id)
		subtotal += amount
	}
	sort.Slice(users, func(a, b int) bool { return users[a] < users[b] })

	extras := allocateExtras(bill.Tax+bill.Tip, users, subtotals, subtotal)

	shares := make([]model.BillShare, 0, len(users))
	for i, id := range users {
		shares = append(shares, model.BillShare{
			UserID:   id,
			Subtotal: subtotals[id],
			Extra:    extras[i],
			Total:    subtotals[id] + extras[i],
		})
	}
	return shares, nil
}

func validAmount(v int64) bool {
	return v >= 0 && v <= util.MaxAmountCents
}

// checkBounds 拒绝超出上限的金额和数量，避免合计溢出
func checkBounds(bill *model.Bill) error {
	if len(bill.Items) > util.MaxBillItems || !validAmount(bill.Tax) || !validAmount(bill.Tip) {
		return util.ErrInvalidAmount
	}
	for i := range bill.Items {
		if !validAmount(bill.Items[i].Price) || bill.Items[i].Quantity > util.MaxItemQuantity {
			return util.ErrInvalidAmount
		}
	}
	return nil
}

// splitEven 将 amount 分成 n 份，前 amount%n 份各多 1
func splitEven(amount int64, n int) []int64 {
	out := make([]int64, n)
	base := amount / int64(n)
	rem := amount % int64(n)
	for i := range out {
		out[i] = base
		if int64(i) < rem {
			out[i]++
		}
	}
	return out
}

// allocateExtras 按 users 顺序返回每人分得的税费与小费
func allocateExtras(extras int64, users []uint, subtotals map[uint]int64, subtotal int64) []int64 {
	if extras == 0 {
		return make([]int64, len(users))
	}
	if subtotal == 0 {
		return splitEven(extras, len(users))
	}

	type part struct {
		idx       int
		remainder int64
	}
	out := make([]int64, len(users))
	parts := make([]part, len(users))
	var assigned int64
	for i, id := range users {
		// extras*subtotals[id] 可能超出 int64，按 128 位计算；商不超过 extras
		hi, lo := bits.Mul64(uint64(extras), uint64(subtotals[id]))
		quo, rem := bits.Div64(hi, lo, uint64(subtotal))
		out[i] = int64(quo)
		parts[i] = part{idx: i, remainder: int64(rem)}
		assigned += out[i]
	}

	sort.SliceStable(parts, func(a, b int) bool {
		if parts[a].remainder != parts[b].remainder {
			return parts[a].remainder > parts[b].remainder
		}
		return users[parts[a].idx] < users[parts[b].idx]
	})
	for i := 0; i < len(parts) && int64(i) < extras-assigned; i++ {
		out[parts[i].idx]++
	}
	return out
}
