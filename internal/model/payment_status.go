package model

// StatusView 某个查看者看到的状态文案
type StatusView struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

type statusCopy struct {
	payer string
	payee string
	other string
}

var statusDescriptions = map[PaymentStatus]statusCopy{
	PaymentPending: {
		payer: "This request has not been sent to you yet.",
		payee: "Your request is saved but has not been sent.",
		other: "The request has not been sent yet.",
	},
	PaymentSent: {
		payer: "You have been asked to pay. Accept or reject the request.",
		payee: "Your request was sent and is waiting for a response.",
		other: "The request is waiting for the payer to respond.",
	},
	PaymentAccepted: {
		payer: "You accepted this request. Mark it as paid once you have paid.",
		payee: "The payer accepted your request and has not paid yet.",
		other: "The payer accepted the request.",
	},
	PaymentPaidPendingConfirmation: {
		payer: "You marked this request as paid. Waiting for the recipient to confirm.",
		payee: "The payer says this request is paid. Confirm once you have received it.",
		other: "Payment was reported and is waiting for confirmation.",
	},
	PaymentCompleted: {
		payer: "Payment confirmed. This request is settled.",
		payee: "You confirmed the payment. This request is settled.",
		other: "The request is settled.",
	},
	PaymentRejected: {
		payer: "You rejected this request.",
		payee: "The payer rejected your request.",
		other: "The request was rejected.",
	},
	PaymentCancelled: {
		payer: "The requester cancelled this request.",
		payee: "You cancelled this request.",
		other: "The request was cancelled.",
	},
	PaymentDisputed: {
		payer: "The recipient disputed your payment.",
		payee: "You disputed the reported payment.",
		other: "The payment is disputed.",
	},
}

// ProjectPaymentStatus 根据查看者与请求的关系生成状态文案。
// 目前只有 sent 区分视角，其余状态的 label 直接使用状态值。
func ProjectPaymentStatus(status PaymentStatus, isPayer, isPayee bool) StatusView {
	view := StatusView{Label: string(status), Description: string(status)}

	if status == PaymentSent {
		switch {
		case isPayee:
			view.Label = "Sent"
		case isPayer:
			view.Label = "Waiting for your response"
		}
	}

	if c, ok := statusDescriptions[status]; ok {
		switch {
		case isPayee:
			view.Description = c.payee
		case isPayer:
			view.Description = c.payer
		default:
			view.Description = c.other
		}
	}
	return view
}

// ViewFor 以 userID 的视角投影状态
func (p *PaymentRequest) ViewFor(userID uint) StatusView {
	return ProjectPaymentStatus(p.Status, p.PayerID == userID, p.PayeeID == userID)
}
