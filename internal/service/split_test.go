package service

import (
	"testing"

	"splitbill_backend/internal/model"
	"splitbill_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(price int64, qty int, userIDs ...uint) model.BillItem {
	it := model.BillItem{Name: "item", Price: price, Quantity: qty}
	for _, id := range userIDs {
		it.Assignees = append(it.Assignees, model.BillItemAssignee{UserID: id})
	}
	return it
}

func sumShares(shares []model.BillShare) int64 {
	var total int64
	for _, s := range shares {
		total += s.Total
	}
	return total
}

func TestComputeShares_RemainderGoesToLowestIDs(t *testing.T) {
	bill := &model.Bill{
		Tax:   100,
		Items: []model.BillItem{item(1000, 1, 3, 1, 2)},
	}

	shares, err := ComputeShares(bill)
	require.NoError(t, err)
	require.Len(t, shares, 3)

	assert.Equal(t, model.BillShare{UserID: 1, Subtotal: 334, Extra: 34, Total: 368}, shares[0])
	assert.Equal(t, model.BillShare{UserID: 2, Subtotal: 333, Extra: 33, Total: 366}, shares[1])
	assert.Equal(t, model.BillShare{UserID: 3, Subtotal: 333, Extra: 33, Total: 366}, shares[2])
	assert.Equal(t, bill.Total(), sumShares(shares))
}

func TestComputeShares_ProportionalExtras(t *testing.T) {
	bill := &model.Bill{
		Tax: 90,
		Tip: 210,
		Items: []model.BillItem{
			item(3000, 1, 1),
			item(500, 2, 2),
			item(2000, 1, 1, 2),
		},
	}

	shares, err := ComputeShares(bill)
	require.NoError(t, err)
	require.Len(t, shares, 2)

	// 小计 1: 3000+1000=4000, 2: 1000+1000=2000
	assert.Equal(t, int64(4000), shares[0].Subtotal)
	assert.Equal(t, int64(2000), shares[1].Subtotal)
	assert.Equal(t, int64(200), shares[0].Extra)
	assert.Equal(t, int64(100), shares[1].Extra)
	assert.Equal(t, bill.Total(), sumShares(shares))
}

func TestComputeShares_SumsToTotal(t *testing.T) {
	bill := &model.Bill{
		Tax: 97,
		Tip: 301,
		Items: []model.BillItem{
			item(1999, 3, 1, 2, 3, 4, 5, 6, 7),
			item(7, 1, 2, 5),
			item(1, 1, 6, 7, 1),
			item(12345, 1, 4),
		},
	}

	shares, err := ComputeShares(bill)
	require.NoError(t, err)
	assert.Equal(t, bill.Total(), sumShares(shares))

	for i := 1; i < len(shares); i++ {
		assert.Less(t, shares[i-1].UserID, shares[i].UserID)
	}
}

func TestComputeShares_ZeroSubtotalSplitsExtrasEvenly(t *testing.T) {
	bill := &model.Bill{
		Tip:   5,
		Items: []model.BillItem{item(0, 1, 2, 1)},
	}

	shares, err := ComputeShares(bill)
	require.NoError(t, err)
	require.Len(t, shares, 2)
	assert.Equal(t, int64(3), shares[0].Total)
	assert.Equal(t, int64(2), shares[1].Total)
}

func TestComputeShares_DuplicateAssigneesCountOnce(t *testing.T) {
	bill := &model.Bill{Items: []model.BillItem{item(100, 1, 1, 1, 2)}}

	shares, err := ComputeShares(bill)
	require.NoError(t, err)
	require.Len(t, shares, 2)
	assert.Equal(t, int64(50), shares[0].Total)
	assert.Equal(t, int64(50), shares[1].Total)
}

func TestComputeShares_Errors(t *testing.T) {
	_, err := ComputeShares(&model.Bill{})
	assert.ErrorIs(t, err, util.ErrBillEmpty)

	_, err = ComputeShares(&model.Bill{Items: []model.BillItem{item(100, 1, 1), item(50, 1)}})
	assert.ErrorIs(t, err, util.ErrUnassignedItem)
}

func TestComputeShares_LargeAmounts(t *testing.T) {
	bill := &model.Bill{
		Tax:   10_000_000_000,
		Items: []model.BillItem{item(10_000_000_000, 1, 1, 2)},
	}

	shares, err := ComputeShares(bill)
	require.NoError(t, err)
	require.Len(t, shares, 2)
	assert.Equal(t, int64(10_000_000_000), shares[0].Total)
	assert.Equal(t, int64(10_000_000_000), shares[1].Total)
	assert.Equal(t, bill.Total(), sumShares(shares))
}

func TestComputeShares_AtUpperBounds(t *testing.T) {
	bill := &model.Bill{
		Tax: util.MaxAmountCents,
		Tip: 7,
		Items: []model.BillItem{
			item(util.MaxAmountCents, util.MaxItemQuantity, 1, 2, 3),
			item(util.MaxAmountCents, util.MaxItemQuantity, 1),
			item(1, 1, 3),
		},
	}

	shares, err := ComputeShares(bill)
	require.NoError(t, err)
	require.Len(t, shares, 3)
	assert.Equal(t, bill.Total(), sumShares(shares))
	for _, s := range shares {
		assert.GreaterOrEqual(t, s.Extra, int64(0))
	}
}

func TestComputeShares_RejectsOutOfRangeAmounts(t *testing.T) {
	_, err := ComputeShares(&model.Bill{Items: []model.BillItem{item(util.MaxAmountCents+1, 1, 1)}})
	assert.ErrorIs(t, err, util.ErrInvalidAmount)

	_, err = ComputeShares(&model.Bill{Items: []model.BillItem{item(100, util.MaxItemQuantity+1, 1)}})
	assert.ErrorIs(t, err, util.ErrInvalidAmount)

	_, err = ComputeShares(&model.Bill{Tip: -1, Items: []model.BillItem{item(100, 1, 1)}})
	assert.ErrorIs(t, err, util.ErrInvalidAmount)
}

func TestSplitEven(t *testing.T) {
	assert.Equal(t, []int64{4, 3, 3}, splitEven(10, 3))
	assert.Equal(t, []int64{5, 5}, splitEven(10, 2))
	assert.Equal(t, []int64{1, 0, 0}, splitEven(1, 3))
}
