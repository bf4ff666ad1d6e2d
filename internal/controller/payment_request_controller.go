package controller

import (
	"splitbill_backend/internal/service"
	"splitbill_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type PaymentRequestController struct {
	PaymentService *service.PaymentRequestService
}

func NewPaymentRequestController(paymentService *service.PaymentRequestService) *PaymentRequestController {
	return &PaymentRequestController{PaymentService: paymentService}
}

// CreatePaymentRequestRequest 金额以最小货币单位（分）表示
type CreatePaymentRequestRequest struct {
	PayerID     uint   `json:"payerId" binding:"required" example:"2"`
	Amount      int64  `json:"amount" binding:"required,gt=0" example:"1250"`
	Currency    string `json:"currency" binding:"required,len=3" example:"USD"`
	Description string `json:"description" binding:"max=255" example:"Dinner"`
	GroupID     *uint  `json:"groupId" example:"1"`
}

// CreateRequest godoc
// @Summary 发起收款请求
// @Description 由收款方发起，付款方必须是好友或同一群组成员
// @Tags 收款请求
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   request body CreatePaymentRequestRequest true "收款请求"
// @Success 201 {object} util.Response{data=service.PaymentRequestView} "成功"
// @Failure 400 {object} util.Response "参数错误"
// @Failure 403 {object} util.Response "不是好友或群组成员"
// @Router /api/payments/requests [post]
func (c *PaymentRequestController) CreateRequest(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req CreatePaymentRequestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	view, err := c.PaymentService.Create(ctx.Request.Context(), userID, service.CreatePaymentRequestInput{
		PayerID:     req.PayerID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		GroupID:     req.GroupID,
	})
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, view)
}

// ListRequests godoc
// @Summary 收款请求列表
// @Description 每条记录附带按当前用户视角生成的 label 与 statusDescription
// @Tags 收款请求
// @Produce  json
// @Security ApiKeyAuth
// @Param   direction query string false "incoming=我需付款, outgoing=我发起的" Enums(incoming, outgoing, all)
// @Param   status query string false "状态过滤"
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse{list=[]service.PaymentRequestView}} "成功"
// @Router /api/payments/requests [get]
func (c *PaymentRequestController) ListRequests(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	page, limit, offset := util.Pagination(ctx)

	list, total, err := c.PaymentService.List(ctx.Request.Context(), userID, service.ListPaymentRequestsInput{
		Direction: ctx.Query("direction"),
		Status:    ctx.Query("status"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  list,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetRequest godoc
// @Summary 收款请求详情
// @Tags 收款请求
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path uint true "收款请求ID"
// @Success 200 {object} util.Response{data=service.PaymentRequestView} "成功"
// @Failure 403 {object} util.Response "无权查看"
// @Failure 404 {object} util.Response "不存在"
// @Router /api/payments/requests/{id} [get]
func (c *PaymentRequestController) GetRequest(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := util.ParamUint(ctx, "id")
	if !ok {
		return
	}

	view, err := c.PaymentService.Get(ctx.Request.Context(), id, userID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

type UpdatePaymentRequestRequest struct {
	Action string `json:"action" binding:"required" example:"accept" enums:"accept,reject,mark_paid,confirm,dispute,cancel"`
}

// UpdateRequest godoc
// @Summary 变更收款请求状态
// @Description 付款方：accept / reject / mark_paid；收款方：confirm / dispute / cancel。当前状态不允许时返回 409
// @Tags 收款请求
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path uint true "收款请求ID"
// @Param   request body UpdatePaymentRequestRequest true "动作"
// @Success 200 {object} util.Response{data=service.PaymentRequestView} "成功"
// @Failure 400 {object} util.Response "未知动作"
// @Failure 403 {object} util.Response "无权执行该动作"
// @Failure 409 {object} util.Response "状态冲突"
// @Router /api/payments/requests/{id} [put]
func (c *PaymentRequestController) UpdateRequest(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := util.ParamUint(ctx, "id")
	if !ok {
		return
	}
	var req UpdatePaymentRequestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	view, err := c.PaymentService.Apply(ctx.Request.Context(), id, userID, service.PaymentAction(req.Action))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// Summary godoc
// @Summary 收支汇总
// @Description 按币种汇总未结束请求的应付/应收以及已完成的已付/已收
// @Tags 收款请求
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.CurrencySummary} "成功"
// @Router /api/payments/summary [get]
func (c *PaymentRequestController) Summary(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	summary, err := c.PaymentService.Summary(ctx.Request.Context(), userID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}
