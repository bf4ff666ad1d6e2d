package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBill_Totals(t *testing.T) {
	b := &Bill{
		Tax: 150,
		Tip: 200,
		Items: []BillItem{
			{Name: "pizza", Price: 1200, Quantity: 2},
			{Name: "soda", Price: 250, Quantity: 0},
		},
	}
	assert.Equal(t, int64(2400), b.Items[0].LineTotal())
	assert.Equal(t, int64(250), b.Items[1].LineTotal())
	assert.Equal(t, int64(2650), b.Subtotal())
	assert.Equal(t, int64(3000), b.Total())
}

func TestBillItem_AssigneeIDs(t *testing.T) {
	item := BillItem{Assignees: []BillItemAssignee{{ItemID: 1, UserID: 4}, {ItemID: 1, UserID: 2}}}
	assert.Equal(t, []uint{4, 2}, item.AssigneeIDs())
	assert.Empty(t, (&BillItem{}).AssigneeIDs())
}
