package controller

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"splitbill_backend/internal/config"
	"splitbill_backend/internal/service"
	"splitbill_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type BillController struct {
	BillService *service.BillService
	Config      *config.Config
}

func NewBillController(billService *service.BillService, cfg *config.Config) *BillController {
	return &BillController{BillService: billService, Config: cfg}
}

type BillItemRequest struct {
	Name        string `json:"name" binding:"required,max=200" example:"Pizza"`
	Price       int64  `json:"price" binding:"gte=0,lte=1000000000000" example:"1800"`
	Quantity    int    `json:"quantity" binding:"omitempty,gte=1,lte=10000" example:"1"`
	AssigneeIDs []uint `json:"assigneeIds" swaggertype:"array,number" example:"1,2"`
}

// CreateBillRequest 金额以最小货币单位（分）表示
type CreateBillRequest struct {
	Title    string            `json:"title" binding:"required,max=200" example:"Friday dinner"`
	Currency string            `json:"currency" binding:"required,len=3" example:"USD"`
	GroupID  *uint             `json:"groupId"`
	Tax      int64             `json:"tax" binding:"gte=0,lte=1000000000000"`
	Tip      int64             `json:"tip" binding:"gte=0,lte=1000000000000"`
	Items    []BillItemRequest `json:"items" binding:"required,min=1,max=200,dive"`
}

// CreateBill godoc
// @Summary 创建账单
// @Tags 账单
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   request body CreateBillRequest true "账单及明细"
// @Success 201 {object} util.Response{data=service.BillDetail} "成功"
// @Failure 400 {object} util.Response "参数错误"
// @Router /api/bills [post]
func (c *BillController) CreateBill(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req CreateBillRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	in := service.CreateBillInput{
		Title:    req.Title,
		Currency: req.Currency,
		GroupID:  req.GroupID,
		Tax:      req.Tax,
		Tip:      req.Tip,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, service.BillItemInput{
			Name:        it.Name,
			Price:       it.Price,
			Quantity:    it.Quantity,
			AssigneeIDs: it.AssigneeIDs,
		})
	}

	detail, err := c.BillService.Create(ctx.Request.Context(), userID, in)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, detail)
}

// ListBills godoc
// @Summary 我的账单
// @Description 我创建的或被分配了明细的账单
// @Tags 账单
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Bill} "成功"
// @Router /api/bills [get]
func (c *BillController) ListBills(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	bills, err := c.BillService.List(ctx.Request.Context(), userID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, bills)
}

// GetBill godoc
// @Summary 账单详情
// @Description 返回明细、分摊人与当前的分摊结果
// @Tags 账单
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path uint true "账单ID"
// @Success 200 {object} util.Response{data=service.BillDetail} "成功"
// @Failure 404 {object} util.Response "不存在"
// @Router /api/bills/{id} [get]
func (c *BillController) GetBill(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	billID, ok := util.ParamUint(ctx, "id")
	if !ok {
		return
	}

	detail, err := c.BillService.Get(ctx.Request.Context(), billID, userID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

type SetAssigneesRequest struct {
	UserIDs []uint `json:"userIds" binding:"required" swaggertype:"array,number" example:"1,2"`
}

// SetAssignees godoc
// @Summary 设置明细分摊人
// @Tags 账单
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path uint true "账单ID"
// @Param   itemId path uint true "明细ID"
// @Param   request body SetAssigneesRequest true "分摊人"
// @Success 200 {object} util.Response{data=service.BillDetail} "成功"
// @Failure 403 {object} util.Response "仅创建者可修改"
// @Failure 409 {object} util.Response "账单已发起收款"
// @Router /api/bills/{id}/items/{itemId}/assignees [put]
func (c *BillController) SetAssignees(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	billID, ok := util.ParamUint(ctx, "id")
	if !ok {
		return
	}
	itemID, ok := util.ParamUint(ctx, "itemId")
	if !ok {
		return
	}
	var req SetAssigneesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	detail, err := c.BillService.SetAssignees(ctx.Request.Context(), billID, itemID, userID, req.UserIDs)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// UploadReceipt godoc
// @Summary 上传收据
// @Description 支持 jpg/png/webp/pdf，按文件内容校验类型
// @Tags 账单
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path uint true "账单ID"
// @Param   file formData file true "收据文件"
// @Success 200 {object} util.Response{data=map[string]string} "成功，返回文件URL"
// @Failure 400 {object} util.Response "文件类型不支持"
// @Failure 413 {object} util.Response "文件过大"
// @Router /api/bills/{id}/receipt [post]
func (c *BillController) UploadReceipt(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	billID, ok := util.ParamUint(ctx, "id")
	if !ok {
		return
	}

	maxBytes := int64(c.Config.Upload.MaxReceiptMB) << 20
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxBytes+1<<20)

	file, err := ctx.FormFile("file")
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || (err == nil && file.Size > maxBytes) {
		util.Error(ctx, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d MB", c.Config.Upload.MaxReceiptMB))
		return
	}
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !util.HasAllowedExtension(ext, util.AllowedReceiptExtensions) {
		util.HandleServiceError(ctx, util.ErrInvalidFile)
		return
	}

	src, err := file.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer src.Close()

	mimeType, err := util.ValidateMimeType(src, util.AllowedReceiptMimeTypes)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	// 校验时读取了文件头，需要回到开头再上传
	if _, err := src.Seek(0, 0); err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	url, err := c.BillService.UploadReceipt(ctx.Request.Context(), billID, userID, ext, src, file.Size, mimeType)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"url": url})
}

// RequestPayments godoc
// @Summary 按分摊结果发起收款
// @Description 为创建者以外的每个分摊人生成一条收款请求，账单随即变为 requested
// @Tags 账单
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path uint true "账单ID"
// @Success 201 {object} util.Response{data=[]model.PaymentRequest} "成功"
// @Failure 400 {object} util.Response "存在未分配的明细"
// @Failure 409 {object} util.Response "已发起过收款"
// @Router /api/bills/{id}/requests [post]
func (c *BillController) RequestPayments(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	billID, ok := util.ParamUint(ctx, "id")
	if !ok {
		return
	}

	requests, err := c.BillService.RequestPayments(ctx.Request.Context(), billID, userID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, requests)
}
